package controller

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		catalog map[string]string
		want    map[string]string
	}{
		{
			name: "nil",
			err:  nil,
			want: nil,
		},
		{
			name: "short code fallback",
			err: validation.Errors{
				"name":  validation.ErrRequired,
				"email": validation.NewError("validation_is_email", "must be a valid email address"),
			},
			want: map[string]string{"name": "required", "email": "is_email"},
		},
		{
			name:    "catalog by full code",
			err:     validation.Errors{"name": validation.ErrRequired},
			catalog: map[string]string{"validation_required": "The name field is required."},
			want:    map[string]string{"name": "The name field is required."},
		},
		{
			name:    "catalog by short code",
			err:     validation.Errors{"name": validation.ErrRequired},
			catalog: map[string]string{"required": "is required"},
			want:    map[string]string{"name": "is required"},
		},
		{
			name: "custom code is lowercased",
			err:  validation.Errors{"sku": validation.NewError("SKU_Format", "bad sku")},
			want: map[string]string{"sku": "sku_format"},
		},
		{
			name: "plain error",
			err:  validation.Errors{"sku": errors.New("Bad SKU")},
			want: map[string]string{"sku": "bad sku"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reduceValidation(tt.err, tt.catalog)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReduceValidationInternalError(t *testing.T) {
	cause := errors.New("lookup failed")

	_, err := reduceValidation(validation.NewInternalError(cause), nil)

	assert.ErrorIs(t, err, cause)
}

func TestIsForbidden(t *testing.T) {
	assert.True(t, IsForbidden(ErrForbidden))
	assert.False(t, IsForbidden(nil))
	assert.False(t, IsForbidden(errors.New("nope")))
}
