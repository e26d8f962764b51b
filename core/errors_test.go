package core_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func TestValidationError(t *testing.T) {
	errTaken := errors.New("already taken")

	tests := []struct {
		name      string
		err       error
		wantMsg   string
		wantField map[string]string
	}{
		{
			name:      "domain error with field",
			err:       core.NewValidationError(errTaken, core.FieldError{Field: "username", Error: "already taken"}),
			wantMsg:   "already taken",
			wantField: map[string]string{"username": "already taken"},
		},
		{
			name:      "fields only",
			err:       core.NewValidationError(nil, core.FieldError{Field: "date", Error: "bad date"}, core.FieldError{Field: "entries", Error: "empty"}),
			wantMsg:   "date: bad date",
			wantField: map[string]string{"date": "bad date", "entries": "empty"},
		},
		{name: "no field", err: core.NewValidationError(errTaken), wantMsg: "already taken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr, ok := tt.err.(*core.ValidationError)
			if !assert.True(t, ok) {
				return
			}
			assert.Equal(t, tt.wantMsg, verr.Error())
			assert.Equal(t, tt.wantField, verr.FieldMap())
		})
	}

	t.Run("unwraps to the domain error", func(t *testing.T) {
		err := errors.Wrap(core.NewValidationError(errTaken), "creating user")
		assert.True(t, errors.Is(err, errTaken))
		assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
	})
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, core.IsShutdown(core.NewShutdownError("db lost")))
	assert.True(t, core.IsShutdown(errors.Wrap(core.NewShutdownError("db lost"), "querying")))
	assert.False(t, core.IsShutdown(errors.New("db lost")))
}
