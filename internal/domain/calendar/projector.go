// Package calendar is the read side of the scheduler: it turns appointment
// rows into day-bucketed, deterministically ordered events for calendar
// rendering. It never mutates the store.
package calendar

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Source is the minimal slice of an appointment the projector needs.
type Source struct {
	ID    uuid.UUID
	Title string
	Start time.Time
	End   time.Time
	Free  bool
}

// Event is a calendar-displayable appointment.
type Event struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Free     bool      `json:"free"`
	MultiDay bool      `json:"multiDay"`
}

// FromAppointments projects appointment rows into events.
func FromAppointments(src []Source) []Event {
	events := make([]Event, 0, len(src))
	for _, s := range src {
		events = append(events, Event{
			ID:       s.ID,
			Title:    s.Title,
			Start:    s.Start,
			End:      s.End,
			Free:     s.Free,
			MultiDay: IsMultiDay(s.Start, s.End),
		})
	}
	return events
}

// IsMultiDay reports whether start and end fall on different calendar dates.
// Time of day is ignored.
func IsMultiDay(start, end time.Time) bool {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.In(start.Location()).Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// startOfDay truncates t to midnight in day's location.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EventsForDay returns the events whose start date falls on day.
func EventsForDay(events []Event, day time.Time) []Event {
	loc := day.Location()
	sod := startOfDay(day, loc)
	var out []Event
	for _, e := range events {
		if startOfDay(e.Start, loc).Equal(sod) {
			out = append(out, e)
		}
	}
	return out
}

// SpanningEventsForDay returns the events that started before day and are
// still running on it: multi-day events continuing into this day.
func SpanningEventsForDay(events []Event, day time.Time) []Event {
	loc := day.Location()
	sod := startOfDay(day, loc)
	var out []Event
	for _, e := range events {
		if startOfDay(e.Start, loc).Before(sod) && !startOfDay(e.End, loc).Before(sod) {
			out = append(out, e)
		}
	}
	return out
}

// AllEventsForDay unions spanning and same-day events in a stable render
// order: by start time, longer events first on ties, then by id.
func AllEventsForDay(events []Event, day time.Time) []Event {
	out := append(SpanningEventsForDay(events, day), EventsForDay(events, day)...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		di, dj := out[i].End.Sub(out[i].Start), out[j].End.Sub(out[j].Start)
		if di != dj {
			return di > dj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// VisibleCount returns how many events a container of the given capacity
// should render before collapsing the rest behind an overflow indicator. When
// everything fits, everything is shown; otherwise one slot is reserved for
// the indicator itself.
func VisibleCount(total, capacity int) int {
	if total <= capacity {
		return total
	}
	if capacity <= 1 {
		return 0
	}
	return capacity - 1
}
