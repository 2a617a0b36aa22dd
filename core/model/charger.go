package model

// Charger is a fixed charging point. Only its active flag changes after
// creation.
type Charger struct {
	ID       string   `json:"id"`
	Location Location `json:"location"`
	Active   bool     `json:"active"`
}
