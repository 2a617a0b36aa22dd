package mqtt

import (
	"errors"
	"fmt"
	"testing"
	"time"

	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
	"github.com/kilianp07/robotaxi/core/report"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestPublishErrorCaptured(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), fmt.Errorf("net fail")}}
	useMock(t, mc)
	mon := &recordMonitor{}
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}
	cli, err := NewPahoClient(cfg, &fakeQueue{}, mon)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	err = cli.PublishStatus(report.Snapshot{})
	if !errors.Is(err, coremqtt.ErrPublishFailed) {
		t.Fatalf("expected publish failure, got %v", err)
	}
	if mon.err == nil {
		t.Fatalf("error not captured")
	}
	if mon.tags["topic"] != cfg.StatusTopic() || mon.tags["module"] != "mqtt" {
		t.Fatalf("tags not set: %v", mon.tags)
	}
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	if err := m.PublishStatus(report.Snapshot{Tick: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	m.Fail = true
	if err := m.PublishStatus(report.Snapshot{Tick: 2}); !errors.Is(err, coremqtt.ErrPublishFailed) {
		t.Fatalf("expected failure, got %v", err)
	}
	if m.Published() != 1 {
		t.Fatalf("expected 1 snapshot, got %d", m.Published())
	}
}
