package converter

import (
	"sort"
	"strings"

	"clinic-dashboard/internal/analytics"
	"clinic-dashboard/internal/delivery/dto"
	"clinic-dashboard/internal/domain/entity"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dateLayout     = "2006-01-02"
	currencyPrefix = "R$ "
)

// DisplayFormatter renders numbers with the grouping and decimal separators of a locale.
type DisplayFormatter struct {
	printer          *message.Printer
	decimalSeparator string
}

// NewDisplayFormatter falls back to Brazilian Portuguese for an unknown locale.
func NewDisplayFormatter(locale string) *DisplayFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	printer := message.NewPrinter(tag)

	// "0,5" in pt-BR, "0.5" in en.
	separator := strings.TrimSuffix(strings.TrimPrefix(printer.Sprintf("%.1f", 0.5), "0"), "5")
	if separator == "" {
		separator = "."
	}

	return &DisplayFormatter{printer: printer, decimalSeparator: separator}
}

// Currency formats an amount with two decimals, e.g. "R$ 1.234,50" in pt-BR.
// The digits come from the decimal itself; the printer only groups the
// integer part.
func (f *DisplayFormatter) Currency(d decimal.Decimal) string {
	rounded := d.Round(2)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	fixed := rounded.StringFixed(2)
	return currencyPrefix + sign + f.printer.Sprintf("%d", rounded.IntPart()) + f.decimalSeparator + fixed[len(fixed)-2:]
}

// Count formats an integer with locale grouping.
func (f *DisplayFormatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// CriteriaToResponse lists set members sorted for stable output.
func CriteriaToResponse(c entity.FilterCriteria) dto.CriteriaResponse {
	return dto.CriteriaResponse{
		StartDate:   c.DateStart.Format(dateLayout),
		EndDate:     c.DateEnd.Format(dateLayout),
		Units:       sortedKeys(c.Units),
		Specialties: sortedKeys(c.Specialties),
	}
}

// DashboardToResponse converts a pipeline outcome. An empty outcome carries
// only the criteria and the notice.
func DashboardToResponse(version uint64, criteria entity.FilterCriteria, dashboard *entity.Dashboard, f *DisplayFormatter) *dto.DashboardResponse {
	response := &dto.DashboardResponse{
		DatasetVersion: version,
		Criteria:       CriteriaToResponse(criteria),
	}

	if dashboard == nil {
		response.Empty = true
		response.Notice = analytics.EmptyResultNotice
		return response
	}

	m := dashboard.Metrics
	response.Metrics = &dto.MetricsResponse{
		TotalRevenue:             m.TotalRevenue,
		TotalRevenueDisplay:      f.Currency(m.TotalRevenue),
		TotalAppointments:        m.TotalAppointments,
		TotalAppointmentsDisplay: f.Count(m.TotalAppointments),
		AverageValue:             m.AverageValue,
		AverageValueDisplay:      f.Currency(m.AverageValue),
	}

	response.Charts = &dto.ChartsResponse{
		RevenueByUnit:         revenuePoints(dashboard.RevenueByUnit, f),
		SpecialtyDistribution: countPoints(dashboard.SpecialtyDistribution),
		RevenueByDoctor:       revenuePoints(dashboard.RevenueByDoctor, f),
		AppointmentsOverTime:  timePoints(dashboard.AppointmentsOverTime),
		ValueVsReturn:         scatterPoints(dashboard.ValueVsReturn),
	}

	return response
}

// DatasetToOptionsResponse describes a dataset and its selectable values.
func DatasetToOptionsResponse(ds *entity.Dataset) *dto.FilterOptionsResponse {
	if ds == nil {
		return nil
	}

	opts := ds.Options()
	response := &dto.FilterOptionsResponse{
		DatasetVersion: ds.Version,
		Source:         ds.Source,
		Records:        len(ds.Records),
		Dropped:        ds.Dropped,
		LoadedAt:       ds.LoadedAt,
		Units:          nonNil(opts.Units),
		Specialties:    nonNil(opts.Specialties),
	}
	if len(ds.Records) > 0 {
		response.MinDate = opts.MinDate.Format(dateLayout)
		response.MaxDate = opts.MaxDate.Format(dateLayout)
	}
	return response
}

func revenuePoints(groups []entity.GroupSum, f *DisplayFormatter) []dto.RevenuePoint {
	points := make([]dto.RevenuePoint, len(groups))
	for i, g := range groups {
		points[i] = dto.RevenuePoint{Key: g.Key, Total: g.Total, Display: f.Currency(g.Total)}
	}
	return points
}

func countPoints(groups []entity.GroupCount) []dto.CountPoint {
	points := make([]dto.CountPoint, len(groups))
	for i, g := range groups {
		points[i] = dto.CountPoint{Key: g.Key, Count: g.Count}
	}
	return points
}

func timePoints(series []entity.DatePoint) []dto.TimePoint {
	points := make([]dto.TimePoint, len(series))
	for i, p := range series {
		points[i] = dto.TimePoint{Date: p.Date.Format(dateLayout), Count: p.Count}
	}
	return points
}

func scatterPoints(series []entity.ScatterPoint) []dto.ScatterPoint {
	points := make([]dto.ScatterPoint, len(series))
	for i, p := range series {
		points[i] = dto.ScatterPoint{
			Value:         p.Value,
			ReturnVisit:   p.ReturnVisit,
			SpecialtyType: p.SpecialtyType,
			Doctor:        p.Doctor,
			Unit:          p.Unit,
		}
		if n, ok := entity.ParseReturnVisit(p.ReturnVisit); ok {
			points[i].ReturnVisitNumeric = &n
		}
	}
	return points
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
