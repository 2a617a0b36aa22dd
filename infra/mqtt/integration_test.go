//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/robotaxi/core/report"
	"github.com/kilianp07/robotaxi/test/util"
)

// TestBrokerRoundTrip verifies command intake and status publishing against a
// real Mosquitto broker.
func TestBrokerRoundTrip(t *testing.T) {
	ctx := context.Background()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	cfg := Config{Broker: broker, ClientID: "engine", TopicPrefix: "it", QoS: map[string]byte{"command": 1, "ack": 1, "status": 1}}
	q := &fakeQueue{}
	cli, err := NewPahoClient(cfg, q, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer cli.Disconnect()

	peer := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("operator"))
	if tok := peer.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("peer connect: %v", tok.Error())
	}
	defer peer.Disconnect(100)

	acks := make(chan Ack, 4)
	status := make(chan report.Snapshot, 1)
	if tok := peer.Subscribe(cfg.AckTopic(), 1, func(_ paho.Client, m paho.Message) {
		var a Ack
		if json.Unmarshal(m.Payload(), &a) == nil {
			acks <- a
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe ack: %v", tok.Error())
	}
	if tok := peer.Subscribe(cfg.StatusTopic(), 1, func(_ paho.Client, m paho.Message) {
		var s report.Snapshot
		if json.Unmarshal(m.Payload(), &s) == nil {
			status <- s
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe status: %v", tok.Error())
	}

	if tok := peer.Publish(cfg.CommandTopic(), 1, false, `{"kind":"add_taxi","count":2}`); tok.Wait() && tok.Error() != nil {
		t.Fatalf("publish command: %v", tok.Error())
	}
	select {
	case a := <-acks:
		if !a.Accepted || a.Envelope == nil {
			t.Fatalf("command not accepted: %+v", a)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no ack received")
	}
	q.mu.Lock()
	queued := len(q.cmds)
	q.mu.Unlock()
	if queued != 1 {
		t.Fatalf("expected 1 queued command, got %d", queued)
	}

	if tok := peer.Publish(cfg.CommandTopic(), 1, false, `{"kind":"warp","count":1}`); tok.Wait() && tok.Error() != nil {
		t.Fatalf("publish command: %v", tok.Error())
	}
	select {
	case a := <-acks:
		if a.Accepted || a.Error == "" {
			t.Fatalf("unknown command accepted: %+v", a)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no rejection ack")
	}

	if err := cli.PublishStatus(report.Snapshot{Tick: 42, Completed: 7}); err != nil {
		t.Fatalf("publish status: %v", err)
	}
	select {
	case s := <-status:
		if s.Tick != 42 || s.Completed != 7 {
			t.Fatalf("unexpected status %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("status not received")
	}
	if acc, rej := cli.Stats(); acc != 1 || rej != 1 {
		t.Fatalf("stats %d/%d", acc, rej)
	}
}
