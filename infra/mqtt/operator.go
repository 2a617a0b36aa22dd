package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/robotaxi/core/command"
	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
	"github.com/kilianp07/robotaxi/core/report"
)

// Operator is the remote side of the command bridge: it submits commands
// and reads the retained status of a running service.
type Operator struct {
	cli pahoClient
	cfg Config
}

// NewOperator connects to the broker of cfg. A unique client id is derived
// from cfg.ClientID so that the operator does not kick the service off.
func NewOperator(cfg Config) (*Operator, error) {
	suffix := time.Now().UnixNano()
	if cfg.ClientID != "" {
		cfg.ClientID = fmt.Sprintf("%s-op-%d", cfg.ClientID, suffix)
	} else {
		cfg.ClientID = fmt.Sprintf("robotaxi-op-%d", suffix)
	}
	cfg.LWTTopic = ""
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Operator{cli: c, cfg: cfg}, nil
}

// Send publishes cmd and waits for the service acknowledgement. A rejected
// command is returned as an error.
func (o *Operator) Send(ctx context.Context, cmd command.Command) (command.Envelope, error) {
	acks := make(chan Ack, 1)
	topic := o.cfg.AckTopic()
	token := o.cli.Subscribe(topic, o.qos("ack"), func(_ paho.Client, msg paho.Message) {
		var a Ack
		if err := json.Unmarshal(msg.Payload(), &a); err != nil {
			return
		}
		select {
		case acks <- a:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return command.Envelope{}, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}

	payload, err := json.Marshal(command.Request{Kind: string(cmd.Kind()), Count: cmd.Requested()})
	if err != nil {
		return command.Envelope{}, err
	}
	if token := o.cli.Publish(o.cfg.CommandTopic(), o.qos("command"), false, payload); token.Wait() && token.Error() != nil {
		return command.Envelope{}, fmt.Errorf("%w: %v", coremqtt.ErrPublishFailed, token.Error())
	}
	select {
	case a := <-acks:
		if !a.Accepted || a.Envelope == nil {
			return command.Envelope{}, fmt.Errorf("command rejected: %s", a.Error)
		}
		return *a.Envelope, nil
	case <-ctx.Done():
		return command.Envelope{}, fmt.Errorf("waiting for ack: %w", ctx.Err())
	}
}

// Status returns the retained snapshot published by the service.
func (o *Operator) Status(ctx context.Context) (report.Snapshot, error) {
	snaps := make(chan report.Snapshot, 1)
	errs := make(chan error, 1)
	topic := o.cfg.StatusTopic()
	token := o.cli.Subscribe(topic, o.qos("status"), func(_ paho.Client, msg paho.Message) {
		var s report.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			select {
			case errs <- fmt.Errorf("decode status: %w", err):
			default:
			}
			return
		}
		select {
		case snaps <- s:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return report.Snapshot{}, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	select {
	case s := <-snaps:
		return s, nil
	case err := <-errs:
		return report.Snapshot{}, err
	case <-ctx.Done():
		return report.Snapshot{}, fmt.Errorf("waiting for status: %w", ctx.Err())
	}
}

func (o *Operator) qos(kind string) byte { return o.cfg.QoS[kind] }

// Close disconnects from the broker.
func (o *Operator) Close() {
	if o.cli.IsConnected() {
		o.cli.Disconnect(250)
	}
}
