package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type licenseCreated struct {
	LicenseID string `json:"license_id"`
	ProductID string `json:"product_id"`
}

func TestNewEventEnvelope(t *testing.T) {
	data := licenseCreated{LicenseID: "lic-1", ProductID: "prod-1"}

	event, err := NewEvent("licensing.license.created", "lic-1", "license", "licensing-service", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "licensing.license.created", event.EventType)
	assert.Equal(t, "lic-1", event.AggregateID)
	assert.Equal(t, "license", event.AggregateType)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEventMarshalRoundTrip(t *testing.T) {
	event, err := NewEvent("licensing.license.created", "lic-1", "license", "licensing-service",
		licenseCreated{LicenseID: "lic-1", ProductID: "prod-1"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	raw, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "corr-1", decoded.CorrelationID)

	var payload licenseCreated
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, "prod-1", payload.ProductID)
}
