package analytics

import (
	"time"

	"clinic-dashboard/internal/domain/entity"

	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// appt builds a record; an empty value is a missing valor.
func appt(date, unit, specialty, doctor, value, returnVisit string) entity.Appointment {
	var v decimal.NullDecimal
	if value != "" {
		v = decimal.NewNullDecimal(decimal.RequireFromString(value))
	}
	return entity.Appointment{
		Date:          day(date),
		Unit:          unit,
		SpecialtyType: specialty,
		Doctor:        doctor,
		Value:         v,
		ReturnVisit:   returnVisit,
	}
}

func sampleRecords() []entity.Appointment {
	return []entity.Appointment{
		appt("2024-01-03", "Centro", "Cardiologia", "Dra. Ana", "250.00", "1"),
		appt("2024-01-01", "Norte", "Pediatria", "Dr. Bruno", "120.50", "0"),
		appt("2024-01-02", "Centro", "Pediatria", "Dr. Bruno", "130.25", "2"),
		appt("2024-01-01", "Sul", "Dermatologia", "Dra. Carla", "310.10", "0"),
		appt("2024-01-05", "Norte", "Cardiologia", "Dra. Ana", "0.15", "sim"),
	}
}

func allCriteria(records []entity.Appointment) entity.FilterCriteria {
	ds := &entity.Dataset{Records: records}
	opts := ds.Options()
	return entity.NewFilterCriteria(opts.MinDate, opts.MaxDate, opts.Units, opts.Specialties)
}
