package analytics

import (
	"errors"
	"sort"
	"time"

	"clinic-dashboard/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// ErrNoRecords is returned by Aggregate for an empty record set; the mean of
// zero records is undefined.
var ErrNoRecords = errors.New("no records to aggregate")

// Aggregate computes the metrics and every chart series over records.
func Aggregate(records []entity.Appointment) (*entity.Dashboard, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	return &entity.Dashboard{
		Metrics:               ComputeMetrics(records),
		RevenueByUnit:         SumBy(records, func(a entity.Appointment) string { return a.Unit }),
		SpecialtyDistribution: CountBy(records, func(a entity.Appointment) string { return a.SpecialtyType }),
		RevenueByDoctor:       SumBy(records, func(a entity.Appointment) string { return a.Doctor }),
		AppointmentsOverTime:  CountByDate(records),
		ValueVsReturn:         ScatterPoints(records),
	}, nil
}

// ComputeMetrics returns total revenue, count and mean value. Records with a
// null value are counted but left out of the sum and the mean. The mean is
// zero when no record has a value.
func ComputeMetrics(records []entity.Appointment) entity.Metrics {
	total := decimal.Zero
	valued := 0
	for _, r := range records {
		if !r.Value.Valid {
			continue
		}
		total = total.Add(r.Value.Decimal)
		valued++
	}

	m := entity.Metrics{
		TotalRevenue:      total,
		TotalAppointments: len(records),
		AverageValue:      decimal.Zero,
	}
	if valued > 0 {
		m.AverageValue = total.Div(decimal.NewFromInt(int64(valued)))
	}
	return m
}

// SumBy sums Value per key. Groups appear in first-seen order; a group whose
// records all lack a value totals zero.
func SumBy(records []entity.Appointment, key func(entity.Appointment) string) []entity.GroupSum {
	index := make(map[string]int)
	var out []entity.GroupSum
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, entity.GroupSum{Key: k, Total: decimal.Zero})
		}
		if r.Value.Valid {
			out[i].Total = out[i].Total.Add(r.Value.Decimal)
		}
	}
	return out
}

// CountBy counts records per key. Groups appear in first-seen order.
func CountBy(records []entity.Appointment, key func(entity.Appointment) string) []entity.GroupCount {
	index := make(map[string]int)
	var out []entity.GroupCount
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, entity.GroupCount{Key: k})
		}
		out[i].Count++
	}
	return out
}

// CountByDate counts records per calendar date, ascending by date.
func CountByDate(records []entity.Appointment) []entity.DatePoint {
	counts := make(map[time.Time]int)
	for _, r := range records {
		counts[r.Date]++
	}

	out := make([]entity.DatePoint, 0, len(counts))
	for d, c := range counts {
		out = append(out, entity.DatePoint{Date: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ScatterPoints passes every record through as a value vs. return-visit tuple.
func ScatterPoints(records []entity.Appointment) []entity.ScatterPoint {
	out := make([]entity.ScatterPoint, len(records))
	for i, r := range records {
		out[i] = entity.ScatterPoint{
			Value:         r.Value,
			ReturnVisit:   r.ReturnVisit,
			SpecialtyType: r.SpecialtyType,
			Doctor:        r.Doctor,
			Unit:          r.Unit,
		}
	}
	return out
}
