package entity

import "time"

// FilterCriteria is the active dashboard selection. Date bounds are inclusive
// calendar dates. An empty Units or Specialties set matches nothing.
type FilterCriteria struct {
	DateStart   time.Time
	DateEnd     time.Time
	Units       map[string]struct{}
	Specialties map[string]struct{}
}

// NewFilterCriteria builds criteria from plain slices. A zero end date means a
// single-day selection.
func NewFilterCriteria(start, end time.Time, units, specialties []string) FilterCriteria {
	if end.IsZero() {
		end = start
	}
	return FilterCriteria{
		DateStart:   truncateDay(start),
		DateEnd:     truncateDay(end),
		Units:       toSet(units),
		Specialties: toSet(specialties),
	}
}

// Valid reports whether DateStart <= DateEnd.
func (c FilterCriteria) Valid() bool {
	return !c.DateStart.After(c.DateEnd)
}

// Matches is the per-record predicate.
func (c FilterCriteria) Matches(a Appointment) bool {
	if a.Date.Before(c.DateStart) || a.Date.After(c.DateEnd) {
		return false
	}
	if _, ok := c.Units[a.Unit]; !ok {
		return false
	}
	_, ok := c.Specialties[a.SpecialtyType]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
