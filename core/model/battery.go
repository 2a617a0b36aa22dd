package model

import "errors"

// ErrBatteryExhausted signals that a taxi ran out of energy.
var ErrBatteryExhausted = errors.New("battery exhausted")

// Battery holds the energy state of a taxi in kWh.
type Battery struct {
	Level    float64 `json:"level"`
	Capacity float64 `json:"capacity"`
}

// NewBattery returns a full battery of the given capacity.
func NewBattery(capacity float64) Battery {
	return Battery{Level: capacity, Capacity: capacity}
}

// Consume removes energy and returns the amount actually drawn. The level is
// clamped at zero and ErrBatteryExhausted is returned once empty.
func (b *Battery) Consume(kwh float64) (float64, error) {
	if kwh < 0 {
		kwh = 0
	}
	if kwh > b.Level {
		kwh = b.Level
	}
	b.Level -= kwh
	if b.Level <= 0 {
		b.Level = 0
		return kwh, ErrBatteryExhausted
	}
	return kwh, nil
}

// Refill charges to capacity and returns the energy added.
func (b *Battery) Refill() float64 {
	added := b.Capacity - b.Level
	if added < 0 {
		added = 0
	}
	b.Level = b.Capacity
	return added
}

// Percent returns the state of charge in [0,100].
func (b Battery) Percent() float64 {
	if b.Capacity <= 0 {
		return 0
	}
	return b.Level / b.Capacity * 100
}

// Empty reports whether no energy is left.
func (b Battery) Empty() bool { return b.Level <= 0 }
