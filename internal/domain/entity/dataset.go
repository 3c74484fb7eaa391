package entity

import "time"

// Dataset is an immutable snapshot of the loaded appointments.
type Dataset struct {
	Records  []Appointment
	Source   string
	Version  uint64
	LoadedAt time.Time
	// Fingerprint identifies the record content; equal content, equal fingerprint.
	Fingerprint uint64
	// Dropped counts rows discarded at load time for an unparseable date.
	Dropped int
}

// FilterOptions describes the selectable values of a dataset.
type FilterOptions struct {
	MinDate     time.Time
	MaxDate     time.Time
	Units       []string
	Specialties []string
}

// Options returns date bounds and the distinct units and specialties in
// first-seen order. The zero value is returned for an empty dataset.
func (d *Dataset) Options() FilterOptions {
	var opts FilterOptions
	if d == nil || len(d.Records) == 0 {
		return opts
	}

	seenUnits := make(map[string]struct{})
	seenSpecialties := make(map[string]struct{})
	opts.MinDate = d.Records[0].Date
	opts.MaxDate = d.Records[0].Date

	for _, r := range d.Records {
		if r.Date.Before(opts.MinDate) {
			opts.MinDate = r.Date
		}
		if r.Date.After(opts.MaxDate) {
			opts.MaxDate = r.Date
		}
		if _, ok := seenUnits[r.Unit]; !ok {
			seenUnits[r.Unit] = struct{}{}
			opts.Units = append(opts.Units, r.Unit)
		}
		if _, ok := seenSpecialties[r.SpecialtyType]; !ok {
			seenSpecialties[r.SpecialtyType] = struct{}{}
			opts.Specialties = append(opts.Specialties, r.SpecialtyType)
		}
	}

	return opts
}
