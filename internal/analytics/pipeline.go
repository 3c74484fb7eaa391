package analytics

import "clinic-dashboard/internal/domain/entity"

// EmptyResultNotice is shown to the user when the criteria match nothing.
const EmptyResultNotice = "no data for the selected filters"

// Result is the outcome of one pipeline run. When Empty is true the
// aggregation step was skipped and Dashboard is nil.
type Result struct {
	Criteria  entity.FilterCriteria
	Records   []entity.Appointment
	Dashboard *entity.Dashboard
	Empty     bool
}

// Run filters records and aggregates the matches. An empty match is a normal
// outcome, reported through Result.Empty.
func Run(records []entity.Appointment, criteria entity.FilterCriteria) Result {
	filtered := Filter(records, criteria)
	if len(filtered) == 0 {
		return Result{Criteria: criteria, Records: filtered, Empty: true}
	}

	// Aggregate only fails on empty input, excluded above.
	dashboard, _ := Aggregate(filtered)
	return Result{Criteria: criteria, Records: filtered, Dashboard: dashboard}
}
