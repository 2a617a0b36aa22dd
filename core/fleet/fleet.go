// Package fleet holds the mutable simulation state: the reservation, taxi and
// charger registries. Entities reference each other only by ID.
package fleet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/robotaxi/core/model"
)

// ErrNotFound is returned when an ID is not registered.
var ErrNotFound = errors.New("not found")

// Fleet is the context object passed to every engine component. It is
// owned by the tick loop and must not be mutated concurrently.
type Fleet struct {
	Reservations *Registry[*model.Reservation]
	Taxis        *Registry[*model.Taxi]
	Chargers     *ChargerRegistry

	// WaitSamples holds the wait time of every reservation picked up so far,
	// including those no longer tracked.
	WaitSamples []float64
	Completed   int
	// RetiredLedgers keeps the books of taxis removed from the fleet.
	RetiredLedgers []model.Ledger

	resSeq, taxiSeq, riderSeq int
}

// New returns an empty fleet.
func New() *Fleet {
	return &Fleet{
		Reservations: newRegistry[*model.Reservation](),
		Taxis:        newRegistry[*model.Taxi](),
		Chargers:     &ChargerRegistry{reg: newRegistry[*model.Charger]()},
	}
}

// NextReservationID allocates a reservation and rider id pair.
func (f *Fleet) NextReservationID() (string, string) {
	f.resSeq++
	f.riderSeq++
	return fmt.Sprintf("res%05d", f.resSeq), fmt.Sprintf("rider%05d", f.riderSeq)
}

// NextTaxiID allocates a taxi id.
func (f *Fleet) NextTaxiID() string {
	f.taxiSeq++
	return fmt.Sprintf("taxi%04d", f.taxiSeq)
}

// Carrier returns the taxi currently holding reservation id, if any.
func (f *Fleet) Carrier(reservationID string) (*model.Taxi, bool) {
	for _, t := range f.Taxis.Sorted() {
		if t.ReservationID == reservationID {
			return t, true
		}
	}
	return nil, false
}

// ReservationsIn returns reservations in state s, ascending by id.
func (f *Fleet) ReservationsIn(s model.ReservationState) []*model.Reservation {
	return f.Reservations.Filter(func(r *model.Reservation) bool { return r.State == s })
}

// TaxisIn returns taxis in state s, ascending by id.
func (f *Fleet) TaxisIn(s model.TaxiState) []*model.Taxi {
	return f.Taxis.Filter(func(t *model.Taxi) bool { return t.State == s })
}

// RemoveTaxi unregisters a taxi and archives its ledger.
func (f *Fleet) RemoveTaxi(id string) bool {
	t, err := f.Taxis.Get(id)
	if err != nil {
		return false
	}
	f.RetiredLedgers = append(f.RetiredLedgers, t.Ledger)
	return f.Taxis.Delete(id)
}

// Ledgers returns the ledgers of registered taxis in id order followed by
// those of removed taxis.
func (f *Fleet) Ledgers() []model.Ledger {
	taxis := f.Taxis.Sorted()
	out := make([]model.Ledger, 0, len(taxis)+len(f.RetiredLedgers))
	for _, t := range taxis {
		out = append(out, t.Ledger)
	}
	return append(out, f.RetiredLedgers...)
}

// RecordWait stores a pickup wait sample.
func (f *Fleet) RecordWait(seconds float64) {
	f.WaitSamples = append(f.WaitSamples, seconds)
}

// Registry stores entities by ID.
type Registry[T any] struct {
	items map[string]T
}

func newRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Put adds or replaces an entity.
func (r *Registry[T]) Put(id string, v T) { r.items[id] = v }

// Get looks an entity up.
func (r *Registry[T]) Get(id string) (T, error) {
	v, ok := r.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return v, nil
}

// Delete removes an entity and reports whether it existed.
func (r *Registry[T]) Delete(id string) bool {
	_, ok := r.items[id]
	delete(r.items, id)
	return ok
}

// Len returns the number of entities.
func (r *Registry[T]) Len() int { return len(r.items) }

// IDs returns all ids in ascending order (see LessID).
func (r *Registry[T]) IDs() []string {
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return LessID(ids[i], ids[j]) })
	return ids
}

// LessID orders ids by creation. Ids share a prefix and a zero-padded
// sequence, so a shorter id was allocated earlier once the sequence outgrows
// its padding (taxi9999 < taxi10000).
func LessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Sorted returns all entities in ascending id order.
func (r *Registry[T]) Sorted() []T {
	ids := r.IDs()
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = r.items[id]
	}
	return out
}

// Filter returns matching entities in ascending id order.
func (r *Registry[T]) Filter(keep func(T) bool) []T {
	var out []T
	for _, v := range r.Sorted() {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
