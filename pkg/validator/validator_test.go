package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createKeyRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=valid suspended cancelled"`
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, Validate(createKeyRequest{CustomerEmail: "john@example.com"}))
	assert.NoError(t, Validate(updateStatusRequest{Status: "suspended"}))
}

func TestValidateRequired(t *testing.T) {
	err := Validate(createKeyRequest{})
	require.Error(t, err)

	valErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "is required", valErr.Fields()["CustomerEmail"])
}

func TestValidateEmail(t *testing.T) {
	err := Validate(createKeyRequest{CustomerEmail: "not-an-email"})
	require.Error(t, err)

	valErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["CustomerEmail"])
}

func TestValidateOneOf(t *testing.T) {
	err := Validate(updateStatusRequest{Status: "deleted"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}
