package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBatteryConsumeClamps(t *testing.T) {
	b := NewBattery(10)
	drawn, err := b.Consume(4)
	if err != nil || drawn != 4 || b.Level != 6 {
		t.Fatalf("unexpected consume result drawn=%v level=%v err=%v", drawn, b.Level, err)
	}
	drawn, err = b.Consume(100)
	if !errors.Is(err, ErrBatteryExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if drawn != 6 || b.Level != 0 {
		t.Fatalf("level must clamp at zero, got %v drawn %v", b.Level, drawn)
	}
	if added := b.Refill(); added != 10 || b.Level != b.Capacity {
		t.Fatalf("refill added %v", added)
	}
	if b.Percent() != 100 {
		t.Fatalf("percent %v", b.Percent())
	}
}

func TestBatteryNegativeConsumeIgnored(t *testing.T) {
	b := NewBattery(5)
	if _, err := b.Consume(-3); err != nil || b.Level != 5 {
		t.Fatalf("negative consume changed level to %v", b.Level)
	}
}

func TestLocationReached(t *testing.T) {
	target := Location{Edge: "e1", Offset: 20}
	cases := []struct {
		at   Location
		want bool
	}{
		{Location{Edge: "e1", Offset: 19.9}, false},
		{Location{Edge: "e1", Offset: 20}, true},
		{Location{Edge: "e1", Offset: 35}, true},
		{Location{Edge: "e2", Offset: 50}, false},
	}
	for _, c := range cases {
		if got := c.at.Reached(target); got != c.want {
			t.Fatalf("%v reached %v = %v, want %v", c.at, target, got, c.want)
		}
	}
}

func TestReservationTransitions(t *testing.T) {
	r := &Reservation{ID: "res00001", Depart: 10}
	if r.Due(5) {
		t.Fatalf("not due before depart")
	}
	if !r.Due(10) {
		t.Fatalf("due at depart")
	}
	r.Activate(10)
	if err := r.Board(11); err == nil {
		t.Fatalf("board from waiting must fail")
	}
	if err := r.Assign("taxi0001"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := r.Assign("taxi0002"); err == nil {
		t.Fatalf("double assignment must fail")
	}
	if err := r.Board(12); err != nil {
		t.Fatalf("board: %v", err)
	}
	if err := r.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r.State != ReservationCompleted || r.TaxiID != "" {
		t.Fatalf("unexpected final state %v taxi %q", r.State, r.TaxiID)
	}
}

func TestReservationResumeKeepsDestination(t *testing.T) {
	dst := Location{Edge: "E", Offset: 3}
	r := &Reservation{ID: "res00002", Dropoff: dst, State: ReservationInTransit, TaxiID: "taxi0001"}
	r.Resume(Location{Edge: "mid", Offset: 7}, Route{Edges: []string{"mid", "E"}, Length: 40}, 99)
	if r.State != ReservationWaiting || r.Dropoff != dst || r.Depart != 99 || r.TaxiID != "" || !r.Resumed {
		t.Fatalf("unexpected resume result %+v", r)
	}
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		T TaxiState
		R ReservationState
	}{TaxiOutOfCommission, ReservationInTransit})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"T":"out_of_commission","R":"in_transit"}` {
		t.Fatalf("unexpected json %s", b)
	}
	if s, ok := ParseTaxiState("idle"); !ok || s != TaxiIdle {
		t.Fatalf("parse idle")
	}
}

func TestTaxiRetireReinstate(t *testing.T) {
	tx := &Taxi{ID: "taxi0001", Battery: Battery{Level: 0, Capacity: 50}, ReservationID: "r"}
	tx.Retire(OutTowed, 600)
	if tx.State != TaxiOutOfCommission || tx.ReservationID != "" || tx.ReturnAt != 600 {
		t.Fatalf("retire %+v", tx)
	}
	if !tx.Removable() {
		t.Fatalf("out of commission taxi must be removable")
	}
	tx.Reinstate()
	if tx.State != TaxiIdle || tx.Battery.Level != 50 {
		t.Fatalf("reinstate %+v", tx)
	}
}
