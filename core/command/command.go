// Package command carries structural mutations submitted by external actors.
// Commands are queued from any goroutine and applied by the tick loop.
package command

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names a command variant.
type Kind string

const (
	KindAddReservation    Kind = "add_reservation"
	KindRemoveReservation Kind = "remove_reservation"
	KindAddTaxi           Kind = "add_taxi"
	KindRemoveTaxi        Kind = "remove_taxi"
	KindAddCharger        Kind = "add_charger"
	KindRemoveCharger     Kind = "remove_charger"
)

// Command is a tagged union of the supported mutations.
type Command interface {
	Kind() Kind
	Requested() int
	sealed()
}

type (
	// AddReservations creates riders with random trips departing now.
	AddReservations struct{ Count int }
	// RemoveReservations drops waiting, unassigned reservations.
	RemoveReservations struct{ Count int }
	// AddTaxis spawns taxis at random locations with full batteries.
	AddTaxis struct{ Count int }
	// RemoveTaxis removes idle or out-of-commission taxis.
	RemoveTaxis struct{ Count int }
	// AddChargers places active chargers at random positions.
	AddChargers struct{ Count int }
	// RemoveChargers deactivates the most recently added chargers.
	RemoveChargers struct{ Count int }
)

func (c AddReservations) Kind() Kind    { return KindAddReservation }
func (c RemoveReservations) Kind() Kind { return KindRemoveReservation }
func (c AddTaxis) Kind() Kind           { return KindAddTaxi }
func (c RemoveTaxis) Kind() Kind        { return KindRemoveTaxi }
func (c AddChargers) Kind() Kind        { return KindAddCharger }
func (c RemoveChargers) Kind() Kind     { return KindRemoveCharger }

func (c AddReservations) Requested() int    { return c.Count }
func (c RemoveReservations) Requested() int { return c.Count }
func (c AddTaxis) Requested() int           { return c.Count }
func (c RemoveTaxis) Requested() int        { return c.Count }
func (c AddChargers) Requested() int        { return c.Count }
func (c RemoveChargers) Requested() int     { return c.Count }

func (AddReservations) sealed()    {}
func (RemoveReservations) sealed() {}
func (AddTaxis) sealed()           {}
func (RemoveTaxis) sealed()        {}
func (AddChargers) sealed()        {}
func (RemoveChargers) sealed()     {}

// Parse builds a command from its external representation. Kind names are
// case-insensitive and accept the plural form ("add_taxis").
func Parse(kind string, count int) (Command, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}
	k := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(kind)), "s")
	switch Kind(k) {
	case KindAddReservation, "add_person", "add_people":
		return AddReservations{Count: count}, nil
	case KindRemoveReservation, "remove_person":
		return RemoveReservations{Count: count}, nil
	case KindAddTaxi:
		return AddTaxis{Count: count}, nil
	case KindRemoveTaxi:
		return RemoveTaxis{Count: count}, nil
	case KindAddCharger:
		return AddChargers{Count: count}, nil
	case KindRemoveCharger:
		return RemoveChargers{Count: count}, nil
	default:
		return nil, fmt.Errorf("unknown command kind %q", kind)
	}
}

// Request is the wire form accepted by the HTTP and MQTT front ends.
type Request struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Decode parses a JSON request.
func Decode(data []byte) (Command, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	return Parse(r.Kind, r.Count)
}

// Envelope wraps a queued command with its identity.
type Envelope struct {
	ID        string    `json:"id"`
	Command   Command   `json:"-"`
	Source    string    `json:"source"`
	Submitted time.Time `json:"submitted"`
}

// MarshalJSON flattens the command into kind and count.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias struct {
		ID        string    `json:"id"`
		Kind      Kind      `json:"kind"`
		Count     int       `json:"count"`
		Source    string    `json:"source"`
		Submitted time.Time `json:"submitted"`
	}
	return json.Marshal(alias{ID: e.ID, Kind: e.Command.Kind(), Count: e.Command.Requested(), Source: e.Source, Submitted: e.Submitted})
}

// UnmarshalJSON restores an envelope encoded by MarshalJSON.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string    `json:"id"`
		Kind      string    `json:"kind"`
		Count     int       `json:"count"`
		Source    string    `json:"source"`
		Submitted time.Time `json:"submitted"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cmd, err := Parse(raw.Kind, raw.Count)
	if err != nil {
		return err
	}
	*e = Envelope{ID: raw.ID, Command: cmd, Source: raw.Source, Submitted: raw.Submitted}
	return nil
}

// Wrap assigns an id to cmd.
func Wrap(cmd Command, source string) Envelope {
	return Envelope{ID: uuid.NewString(), Command: cmd, Source: source, Submitted: time.Now().UTC()}
}

// Result reports how much of a command was applied. Partial fulfilment is
// not an error.
type Result struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
}

// Underfulfilled returns the number of requested items not applied.
func (r Result) Underfulfilled() int { return r.Requested - r.Applied }
