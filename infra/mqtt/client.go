package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/robotaxi/core/command"
	coremon "github.com/kilianp07/robotaxi/core/monitoring"
	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
	"github.com/kilianp07/robotaxi/core/report"
	"github.com/kilianp07/robotaxi/infra/logger"
)

// DefaultTopicPrefix roots every topic when none is configured.
const DefaultTopicPrefix = "robotaxi"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

func (c Config) prefix() string {
	if c.TopicPrefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(c.TopicPrefix, "/")
}

// CommandTopic is where external producers publish fleet commands.
func (c Config) CommandTopic() string { return c.prefix() + "/commands" }

// AckTopic receives the envelope or rejection of each command.
func (c Config) AckTopic() string { return c.prefix() + "/commands/ack" }

// StatusTopic receives a snapshot on every engine report.
func (c Config) StatusTopic() string { return c.prefix() + "/status" }

// Validate checks the settings of an enabled client.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("unknown auth_method %q", c.AuthMethod)
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("qos %s: %d is not 0, 1 or 2", k, q)
		}
	}
	if c.MaxRetries < 0 || c.BackoffMS < 0 {
		return fmt.Errorf("max_retries and backoff_ms must not be negative")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient bridges the engine and an MQTT broker. Commands received on
// the command topic are pushed onto the engine queue and acknowledged;
// snapshots are published on the status topic.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	queue   coremqtt.CommandQueue
	logger  logger.Logger
	monitor coremon.Monitor

	maxRetries int
	backoff    time.Duration

	accepted atomic.Int64
	rejected atomic.Int64
}

var _ coremqtt.StatusPublisher = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker and subscribes to the command topic.
// The subscription is renewed on every reconnect.
func NewPahoClient(cfg Config, queue coremqtt.CommandQueue, mon coremon.Monitor) (*PahoClient, error) {
	if queue == nil {
		return nil, fmt.Errorf("mqtt: command queue is required")
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if mon == nil {
		mon = coremon.NopMonitor{}
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:        cfg,
		queue:      queue,
		logger:     log,
		monitor:    mon,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if pc.maxRetries <= 0 {
		pc.maxRetries = 3
	}
	if pc.backoff <= 0 {
		pc.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		topic := cfg.CommandTopic()
		if token := c.Subscribe(topic, pc.qos("command"), pc.onCommand); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) qos(kind string) byte {
	if q, ok := p.cfg.QoS[kind]; ok {
		return q
	}
	return 0
}

// Ack answers every message received on the command topic.
type Ack struct {
	Accepted bool              `json:"accepted"`
	Envelope *command.Envelope `json:"envelope,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func (p *PahoClient) onCommand(_ paho.Client, msg paho.Message) {
	cmd, err := command.Decode(msg.Payload())
	if err != nil {
		p.rejected.Add(1)
		p.logger.Warnf("rejected command on %s: %v", msg.Topic(), err)
		p.sendAck(Ack{Error: err.Error()})
		return
	}
	env := p.queue.Push(cmd, "mqtt")
	p.accepted.Add(1)
	p.logger.Infof("queued command %s %s x%d", env.ID, cmd.Kind(), cmd.Requested())
	p.sendAck(Ack{Accepted: true, Envelope: &env})
}

func (p *PahoClient) sendAck(a Ack) {
	payload, err := json.Marshal(a)
	if err != nil {
		p.logger.Errorf("encode ack: %v", err)
		return
	}
	if err := p.publish(p.cfg.AckTopic(), p.qos("ack"), false, payload); err != nil {
		p.logger.Errorf("ack: %v", err)
	}
}

// PublishStatus publishes snap on the status topic as a retained message.
func (p *PahoClient) PublishStatus(snap report.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return p.publish(p.cfg.StatusTopic(), p.qos("status"), true, payload)
}

func (p *PahoClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	err := fmt.Errorf("%w: %s: %v", coremqtt.ErrPublishFailed, topic, publishErr)
	p.monitor.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
	return err
}

// Stats returns the number of accepted and rejected commands.
func (p *PahoClient) Stats() (accepted, rejected int64) {
	return p.accepted.Load(), p.rejected.Load()
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
