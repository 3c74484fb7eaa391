package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"clinic-dashboard/internal/domain/entity"
	domainRepo "clinic-dashboard/internal/domain/repository"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Slash and dash dates are ambiguous; one of these sets is tried before the
// generic parser depending on SOURCE_DAY_FIRST.
var (
	dayFirstLayouts = []string{
		"02/01/2006",
		"02/01/2006 15:04",
		"02/01/2006 15:04:05",
		"02-01-2006",
	}
	monthFirstLayouts = []string{
		"01/02/2006",
		"01/02/2006 15:04",
		"01/02/2006 15:04:05",
		"01-02-2006",
	}
)

type appointmentCSVRepository struct {
	fs       afero.Fs
	path     string
	dayFirst bool
	log      *logrus.Logger
}

// NewAppointmentCSVRepository reads path from fs. dayFirst selects how
// ambiguous dates such as 03/04/2024 are read (3 April when true, 4 March
// when false).
func NewAppointmentCSVRepository(fs afero.Fs, path string, dayFirst bool, log *logrus.Logger) domainRepo.AppointmentRepository {
	return &appointmentCSVRepository{fs: fs, path: path, dayFirst: dayFirst, log: log}
}

func (r *appointmentCSVRepository) Source() string {
	return r.path
}

func (r *appointmentCSVRepository) Load(ctx context.Context) (*entity.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		return nil, r.sourceError(err)
	}

	if !isText(data) {
		return nil, r.sourceError(fmt.Errorf("not a text file (%s)", mimetype.Detect(data).String()))
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(data)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, r.sourceError(errors.New("file is empty"))
		}
		return nil, r.sourceError(fmt.Errorf("read header: %w", err))
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, r.sourceError(err)
	}

	dataset := &entity.Dataset{Source: r.path}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, r.sourceError(fmt.Errorf("read line %d: %w", line, err))
		}

		appointment, ok := parseRow(row, index, r.dayFirst)
		if !ok {
			dataset.Dropped++
			r.log.WithFields(logrus.Fields{"source": r.path, "line": line}).Debug("Dropping row with unparseable date")
			continue
		}
		dataset.Records = append(dataset.Records, appointment)
	}

	dataset.LoadedAt = time.Now()
	r.log.WithFields(logrus.Fields{
		"source":  r.path,
		"rows":    len(dataset.Records),
		"dropped": dataset.Dropped,
	}).Info("Appointments loaded from CSV")

	return dataset, nil
}

func (r *appointmentCSVRepository) sourceError(err error) error {
	return &domainRepo.DataSourceError{Source: r.path, Err: err}
}

// isText accepts any detected type descending from text/plain (text/csv included).
func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func sniffDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range entity.Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domainRepo.ErrMissingColumn, strings.Join(missing, ", "))
	}

	return index, nil
}

// parseRow rejects a row only for its date. Text fields are kept verbatim and
// an unreadable value becomes null.
func parseRow(row []string, index map[string]int, dayFirst bool) (entity.Appointment, bool) {
	get := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	date, ok := ParseDate(get(entity.ColumnDate), dayFirst)
	if !ok {
		return entity.Appointment{}, false
	}
	value, ok := ParseValue(get(entity.ColumnValue))

	return entity.Appointment{
		Date:          date,
		Unit:          get(entity.ColumnUnit),
		SpecialtyType: get(entity.ColumnSpecialty),
		Doctor:        get(entity.ColumnDoctor),
		Value:         decimal.NullDecimal{Decimal: value, Valid: ok},
		ReturnVisit:   get(entity.ColumnReturnVisit),
	}, true
}

// ParseDate reads a date in any common layout and truncates it to the calendar
// day in UTC. dayFirst reads 03/04/2024 as 3 April; otherwise it is 4 March,
// as a month-first parser would read it.
func ParseDate(raw string, dayFirst bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	layouts := monthFirstLayouts
	if dayFirst {
		layouts = dayFirstLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return calendarDay(t), true
		}
	}

	t, err := cast.ToTimeInDefaultLocationE(raw, time.UTC)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return calendarDay(t), true
}

// ParseValue reads a monetary amount, accepting a comma as decimal separator.
func ParseValue(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
