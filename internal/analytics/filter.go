// Package analytics holds the pure dashboard pipeline: filtering, grouped
// reductions and export serialisation. Nothing here mutates its input.
package analytics

import "clinic-dashboard/internal/domain/entity"

// Filter returns the records matching criteria, preserving their relative order.
// The input slice is never modified.
func Filter(records []entity.Appointment, criteria entity.FilterCriteria) []entity.Appointment {
	out := make([]entity.Appointment, 0, len(records))
	for _, r := range records {
		if criteria.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
