package analytics

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"clinic-dashboard/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	// DateLayout is the canonical export date format.
	DateLayout = "2006-01-02"
	// DisplayDateLayout is the DD/MM/YYYY format of the display export.
	DisplayDateLayout = "02/01/2006"

	xlsxSheet = "consultas"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ToCSV serialises records with a header row, in input order, dates as YYYY-MM-DD.
func ToCSV(records []entity.Appointment) ([]byte, error) {
	return writeCSV(records, DateLayout)
}

// ToDisplayCSV is ToCSV with dates rendered as DD/MM/YYYY.
func ToDisplayCSV(records []entity.Appointment) ([]byte, error) {
	return writeCSV(records, DisplayDateLayout)
}

// Export dispatches on format; display switches the date column to DD/MM/YYYY.
func Export(records []entity.Appointment, format string, display bool) ([]byte, error) {
	layout := DateLayout
	if display {
		layout = DisplayDateLayout
	}

	switch format {
	case "", FormatCSV:
		return writeCSV(records, layout)
	case FormatXLSX:
		return toXLSX(records, layout)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ToXLSX writes records to a single-sheet workbook with numeric values. A null
// value leaves its cell blank.
func ToXLSX(records []entity.Appointment) ([]byte, error) {
	return toXLSX(records, DateLayout)
}

func writeCSV(records []entity.Appointment, dateLayout string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(entity.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		if err := w.Write(row(r, dateLayout)); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func row(r entity.Appointment, dateLayout string) []string {
	return []string{
		r.Date.Format(dateLayout),
		r.Unit,
		r.SpecialtyType,
		r.Doctor,
		valueText(r.Value),
		r.ReturnVisit,
	}
}

func valueText(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func toXLSX(records []entity.Appointment, dateLayout string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(entity.Columns))
	for i, c := range entity.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		var value interface{}
		if r.Value.Valid {
			value = r.Value.Decimal.InexactFloat64()
		}
		values := []interface{}{
			r.Date.Format(dateLayout),
			r.Unit,
			r.SpecialtyType,
			r.Doctor,
			value,
			r.ReturnVisit,
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
