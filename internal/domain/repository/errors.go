package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrDataSource marks a source that cannot be read at all.
	ErrDataSource = errors.New("data source unavailable")
	// ErrMissingColumn is returned when a required column is absent from the source.
	ErrMissingColumn = errors.New("required column missing")
)

// DataSourceError describes why a source could not be loaded.
// It matches ErrDataSource with errors.Is.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %q: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

func (e *DataSourceError) Is(target error) bool {
	return target == ErrDataSource
}
