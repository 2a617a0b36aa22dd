package economics

import (
	"math"
	"sort"
)

// Schedule maps simulated time onto day intervals.
type Schedule struct {
	dayLength float64
	intervals []Interval
}

// NewSchedule sorts the configured intervals by start hour.
func NewSchedule(cfg Config) *Schedule {
	iv := append([]Interval(nil), cfg.Intervals...)
	sort.Slice(iv, func(i, j int) bool { return iv[i].StartHour < iv[j].StartHour })
	return &Schedule{dayLength: cfg.DayLength, intervals: iv}
}

// Slot identifies one interval occurrence: the day number and the interval index.
type Slot struct {
	Day   int
	Index int
}

// SlotAt returns the interval occurrence containing t.
func (s *Schedule) SlotAt(t float64) Slot {
	if t < 0 {
		t = 0
	}
	day := int(math.Floor(t / s.dayLength))
	hour := math.Mod(t, s.dayLength) / s.dayLength * 24
	idx := sort.Search(len(s.intervals), func(i int) bool { return s.intervals[i].EndHour > hour })
	if idx == len(s.intervals) {
		idx = len(s.intervals) - 1
	}
	return Slot{Day: day, Index: idx}
}

// At returns the interval containing t.
func (s *Schedule) At(t float64) Interval { return s.intervals[s.SlotAt(t).Index] }

// Intervals returns the ordered intervals.
func (s *Schedule) Intervals() []Interval { return s.intervals }

// DayLength returns the simulated seconds per day.
func (s *Schedule) DayLength() float64 { return s.dayLength }

// Span returns the simulated start and end second of interval i within a day.
func (s *Schedule) Span(i int) (float64, float64) {
	in := s.intervals[i]
	return in.StartHour / 24 * s.dayLength, in.EndHour / 24 * s.dayLength
}
