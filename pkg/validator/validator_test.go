package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filterRequest struct {
	StartDate string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Units     []string `json:"units" validate:"omitempty,dive,required"`
	Format    string   `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

func TestCustomValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&filterRequest{}))
	assert.NoError(t, v.Validate(&filterRequest{StartDate: "2024-01-31", Units: []string{"Centro"}, Format: "xlsx"}))

	err := v.Validate(&filterRequest{StartDate: "31/01/2024", Format: "pdf"})
	require.Error(t, err)

	messages := v.FormatValidationErrors(err)
	assert.Equal(t, "start_date must be a date in 2006-01-02 format", messages["start_date"])
	assert.Equal(t, "format must be one of: csv xlsx", messages["format"])
}

func TestCustomValidator_DiveUsesJSONName(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&filterRequest{Units: []string{"Centro", ""}})
	require.Error(t, err)

	messages := v.FormatValidationErrors(err)
	assert.Equal(t, "units[1] is required", messages["units[1]"])
}
