package fleet

import (
	"fmt"

	"github.com/kilianp07/robotaxi/core/model"
)

// ChargerRegistry keeps chargers in creation order. Removal never deletes a
// charger: it deactivates the most recently added active entry.
type ChargerRegistry struct {
	reg   *Registry[*model.Charger]
	order []string
}

// Add registers a new active charger at loc.
func (c *ChargerRegistry) Add(loc model.Location) *model.Charger {
	ch := &model.Charger{ID: fmt.Sprintf("chg%04d", len(c.order)+1), Location: loc, Active: true}
	c.reg.Put(ch.ID, ch)
	c.order = append(c.order, ch.ID)
	return ch
}

// Get looks a charger up.
func (c *ChargerRegistry) Get(id string) (*model.Charger, error) { return c.reg.Get(id) }

// Len returns the number of chargers ever added.
func (c *ChargerRegistry) Len() int { return len(c.order) }

// All returns every charger in creation order.
func (c *ChargerRegistry) All() []*model.Charger {
	out := make([]*model.Charger, 0, len(c.order))
	for _, id := range c.order {
		ch, _ := c.reg.Get(id)
		out = append(out, ch)
	}
	return out
}

// Active returns active chargers in creation order.
func (c *ChargerRegistry) Active() []*model.Charger {
	var out []*model.Charger
	for _, ch := range c.All() {
		if ch.Active {
			out = append(out, ch)
		}
	}
	return out
}

// DeactivateLatest deactivates the most recently added active charger.
func (c *ChargerRegistry) DeactivateLatest() (*model.Charger, bool) {
	for i := len(c.order) - 1; i >= 0; i-- {
		ch, _ := c.reg.Get(c.order[i])
		if ch.Active {
			ch.Active = false
			return ch, true
		}
	}
	return nil, false
}
