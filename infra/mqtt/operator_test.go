package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/robotaxi/core/command"
	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
	"github.com/kilianp07/robotaxi/core/report"
)

// echoClient answers every publish with reply and every subscription with
// the retained payload, as a broker with a running service would.
type echoClient struct {
	*mockClient
	reply    []byte
	retained []byte
}

func (e *echoClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	tok := e.mockClient.Publish(topic, qos, retained, payload)
	if tok.Error() == nil && e.reply != nil {
		e.deliver(mockMessage{p: e.reply})
	}
	return tok
}

func (e *echoClient) Subscribe(topic string, qos byte, h paho.MessageHandler) paho.Token {
	tok := e.mockClient.Subscribe(topic, qos, h)
	if e.retained != nil {
		h(e, mockMessage{p: e.retained})
	}
	return tok
}

func useEcho(t *testing.T, ec *echoClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { ec.opts = o; return ec }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestOperatorSend(t *testing.T) {
	env := command.Wrap(command.AddTaxis{Count: 2}, "mqtt")
	reply, err := json.Marshal(Ack{Accepted: true, Envelope: &env})
	if err != nil {
		t.Fatal(err)
	}
	ec := &echoClient{mockClient: &mockClient{}, reply: reply}
	useEcho(t, ec)

	op, err := NewOperator(Config{Broker: "tcp://localhost:1883", ClientID: "svc", TopicPrefix: "city", LWTTopic: "city/lwt"})
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	defer op.Close()
	if !strings.HasPrefix(ec.opts.ClientID, "svc-op-") {
		t.Fatalf("client id not derived: %s", ec.opts.ClientID)
	}
	if ec.opts.WillEnabled {
		t.Fatal("operator must not register the service will")
	}

	got, err := op.Send(context.Background(), command.AddTaxis{Count: 2})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ID != env.ID || got.Command != (command.AddTaxis{Count: 2}) {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if ec.subscribed[0].topic != "city/commands/ack" || ec.published[0].topic != "city/commands" {
		t.Fatalf("unexpected topics %+v %+v", ec.subscribed, ec.published)
	}
	var req command.Request
	if err := json.Unmarshal(ec.published[0].payload, &req); err != nil || req.Kind != "add_taxi" || req.Count != 2 {
		t.Fatalf("unexpected request %s", ec.published[0].payload)
	}
}

func TestOperatorSendRejected(t *testing.T) {
	ec := &echoClient{mockClient: &mockClient{}, reply: []byte(`{"accepted":false,"error":"unknown command kind"}`)}
	useEcho(t, ec)
	op, err := NewOperator(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	if _, err := op.Send(context.Background(), command.AddChargers{Count: 1}); err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestOperatorSendTimesOut(t *testing.T) {
	ec := &echoClient{mockClient: &mockClient{}}
	useEcho(t, ec)
	op, err := NewOperator(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := op.Send(ctx, command.AddTaxis{Count: 1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestOperatorSendPublishError(t *testing.T) {
	ec := &echoClient{mockClient: &mockClient{publishErrs: []error{errors.New("down")}}}
	useEcho(t, ec)
	op, err := NewOperator(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	if _, err := op.Send(context.Background(), command.AddTaxis{Count: 1}); !errors.Is(err, coremqtt.ErrPublishFailed) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestOperatorStatus(t *testing.T) {
	snap, err := json.Marshal(report.Snapshot{Tick: 120, Completed: 9})
	if err != nil {
		t.Fatal(err)
	}
	ec := &echoClient{mockClient: &mockClient{}, retained: snap}
	useEcho(t, ec)
	op, err := NewOperator(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	got, err := op.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Tick != 120 || got.Completed != 9 || ec.subscribed[0].topic != "robotaxi/status" {
		t.Fatalf("unexpected status %+v", got)
	}

	ec.retained = []byte("garbage")
	if _, err := op.Status(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
