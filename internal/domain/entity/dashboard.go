package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metrics holds the three headline numbers. AverageValue is taken over the
// records with a value; TotalAppointments counts every record.
type Metrics struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalAppointments int             `json:"total_appointments"`
	AverageValue      decimal.Decimal `json:"average_value"`
}

// GroupSum is a (key, sum) pair of a grouped revenue series.
type GroupSum struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
}

// GroupCount is a (key, count) pair of a grouped count series.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DatePoint is one point of the appointments-over-time series.
type DatePoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// ScatterPoint carries one record for the value vs. return-visit chart.
type ScatterPoint struct {
	Value         decimal.NullDecimal `json:"value"`
	ReturnVisit   string              `json:"return_visit"`
	SpecialtyType string              `json:"specialty_type"`
	Doctor        string              `json:"doctor"`
	Unit          string              `json:"unit"`
}

// Dashboard is everything the presentation host renders for one criteria selection.
type Dashboard struct {
	Metrics               Metrics        `json:"metrics"`
	RevenueByUnit         []GroupSum     `json:"revenue_by_unit"`
	SpecialtyDistribution []GroupCount   `json:"specialty_distribution"`
	RevenueByDoctor       []GroupSum     `json:"revenue_by_doctor"`
	AppointmentsOverTime  []DatePoint    `json:"appointments_over_time"`
	ValueVsReturn         []ScatterPoint `json:"value_vs_return"`
}
