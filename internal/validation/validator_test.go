package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Inner struct {
		Port int `koanf:"port" validate:"min=1,max=65535"`
	} `json:"inner"`
}

func TestStruct(t *testing.T) {
	var s sample
	s.Name = "ok"
	s.Inner.Port = 8080
	require.NoError(t, Struct(&s))

	s.Name = ""
	s.Inner.Port = 0
	err := Struct(&s)
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, FieldError{Field: "name", Rule: "required"}, verr.Fields[0])
	assert.Equal(t, FieldError{Field: "inner.port", Rule: "min", Param: "1"}, verr.Fields[1])
	assert.Contains(t, err.Error(), "inner.port failed min=1")
}
