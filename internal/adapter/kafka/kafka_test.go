package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/domain"
)

func TestSerializeOutcome(t *testing.T) {
	outcome := domain.Outcome{
		Key:         domain.PartitionKey{Date: "2025-06-01", FieldID: "field-7"},
		Date:        "2025-06-01",
		FieldID:     "field-7",
		Index:       domain.Vegetation,
		Status:      domain.StatusSucceeded,
		Success:     true,
		Computed:    true,
		ArtifactKey: "pipeline-outputs/field-7/ndvi/2025-06-01.parquet",
		ProcessedAt: time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC),
	}

	msg, err := serializeOutcome(outcome)
	require.NoError(t, err)

	assert.Equal(t, "2025-06-01|field-7", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "field-7", decoded["field_id"])
	assert.Equal(t, "ndvi", decoded["index"])
	assert.Equal(t, "succeeded", decoded["status"])
	assert.Equal(t, true, decoded["success"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "ndvi", headers["index"])
	assert.Equal(t, "succeeded", headers["status"])
	assert.Equal(t, "2025-06-02T12:00:00Z", headers["processed_at"])
}

func TestSerializeOutcome_OmitsEmptyOptionalFields(t *testing.T) {
	outcome := domain.NewSkippedOutcome(
		domain.PartitionKey{Date: "2025-06-01", FieldID: "f"},
		domain.Moisture, "not planted yet")

	msg, err := serializeOutcome(outcome)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	_, hasArtifact := decoded["artifact_key"]
	assert.False(t, hasArtifact)
	_, hasPublishErr := decoded["publish_error"]
	assert.False(t, hasPublishErr)
	assert.Equal(t, "not planted yet", decoded["reason"])
}
