package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request DTOs

// DashboardRequest is the filter selection sent by the presentation host.
// Dates use YYYY-MM-DD. A missing (null) units or specialties list selects
// every value in the dataset; an empty list selects nothing.
type DashboardRequest struct {
	StartDate   string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Units       []string `json:"units" validate:"omitempty,dive,required"`
	Specialties []string `json:"specialties" validate:"omitempty,dive,required"`
}

type ExportRequest struct {
	DashboardRequest
	Format  string `json:"format" validate:"omitempty,oneof=csv xlsx"`
	Display bool   `json:"display"`
}

// Response DTOs

type CriteriaResponse struct {
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Units       []string `json:"units"`
	Specialties []string `json:"specialties"`
}

type MetricsResponse struct {
	TotalRevenue             decimal.Decimal `json:"total_revenue"`
	TotalRevenueDisplay      string          `json:"total_revenue_display"`
	TotalAppointments        int             `json:"total_appointments"`
	TotalAppointmentsDisplay string          `json:"total_appointments_display"`
	AverageValue             decimal.Decimal `json:"average_value"`
	AverageValueDisplay      string          `json:"average_value_display"`
}

type RevenuePoint struct {
	Key     string          `json:"key"`
	Total   decimal.Decimal `json:"total"`
	Display string          `json:"display"`
}

type CountPoint struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type TimePoint struct {
	Date  string `json:"date"` // Format: YYYY-MM-DD
	Count int    `json:"count"`
}

type ScatterPoint struct {
	Value              decimal.NullDecimal `json:"value"`
	ReturnVisit        string              `json:"return_visit"`
	ReturnVisitNumeric *float64            `json:"return_visit_numeric,omitempty"`
	SpecialtyType      string              `json:"specialty_type"`
	Doctor             string              `json:"doctor"`
	Unit               string              `json:"unit"`
}

type ChartsResponse struct {
	RevenueByUnit         []RevenuePoint `json:"revenue_by_unit"`
	SpecialtyDistribution []CountPoint   `json:"specialty_distribution"`
	RevenueByDoctor       []RevenuePoint `json:"revenue_by_doctor"`
	AppointmentsOverTime  []TimePoint    `json:"appointments_over_time"`
	ValueVsReturn         []ScatterPoint `json:"value_vs_return"`
}

type DashboardResponse struct {
	DatasetVersion uint64           `json:"dataset_version"`
	Criteria       CriteriaResponse `json:"criteria"`
	Empty          bool             `json:"empty"`
	Notice         string           `json:"notice,omitempty"`
	Metrics        *MetricsResponse `json:"metrics,omitempty"`
	Charts         *ChartsResponse  `json:"charts,omitempty"`
}

type FilterOptionsResponse struct {
	DatasetVersion uint64    `json:"dataset_version"`
	Source         string    `json:"source"`
	Records        int       `json:"records"`
	Dropped        int       `json:"dropped"`
	LoadedAt       time.Time `json:"loaded_at"`
	MinDate        string    `json:"min_date,omitempty"`
	MaxDate        string    `json:"max_date,omitempty"`
	Units          []string  `json:"units"`
	Specialties    []string  `json:"specialties"`
}

// ExportFile is a serialised export ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
