package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Source column names, shared by the CSV loader, the consultas table and the exporters.
const (
	ColumnDate        = "dataconsulta"
	ColumnUnit        = "unidade"
	ColumnSpecialty   = "tipoconsulta"
	ColumnDoctor      = "medico"
	ColumnValue       = "valor"
	ColumnReturnVisit = "retornodaconsulta"
)

// Columns lists the required columns in export order.
var Columns = []string{
	ColumnDate,
	ColumnUnit,
	ColumnSpecialty,
	ColumnDoctor,
	ColumnValue,
	ColumnReturnVisit,
}

// Appointment is one consultation row. Date is always a valid calendar date
// (midnight UTC); rows without one never make it into a Dataset. Value is
// null when the source cell is empty or not a number; such rows still count
// as appointments but add nothing to revenue.
type Appointment struct {
	Date          time.Time           `gorm:"column:dataconsulta;type:date;not null;index" json:"date"`
	Unit          string              `gorm:"column:unidade;type:varchar(255);not null;index" json:"unit"`
	SpecialtyType string              `gorm:"column:tipoconsulta;type:varchar(255);not null;index" json:"specialty_type"`
	Doctor        string              `gorm:"column:medico;type:varchar(255);not null" json:"doctor"`
	Value         decimal.NullDecimal `gorm:"column:valor;type:decimal(12,2)" json:"value"`
	ReturnVisit   string              `gorm:"column:retornodaconsulta;type:varchar(64)" json:"return_visit"`
}

func (Appointment) TableName() string {
	return "consultas"
}

// ReturnVisitNumeric reads the return-visit column as a number when it holds one.
func (a Appointment) ReturnVisitNumeric() (float64, bool) {
	return ParseReturnVisit(a.ReturnVisit)
}

// ParseReturnVisit reads a raw return-visit value as a number. Categorical
// values such as "sim" report false.
func ParseReturnVisit(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := cast.ToFloat64E(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		return 0, false
	}
	return f, true
}
