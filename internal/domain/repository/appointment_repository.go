package repository

import (
	"context"

	"clinic-dashboard/internal/domain/entity"
)

// AppointmentRepository loads the full appointment dataset from its source.
type AppointmentRepository interface {
	Load(ctx context.Context) (*entity.Dataset, error)
	// Source names the backing source, e.g. the CSV path or the table name.
	Source() string
}
