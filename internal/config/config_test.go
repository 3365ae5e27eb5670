package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("S3_BUCKET", "fieldsight")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "materialization-units", cfg.KafkaUnitsTopic)
	assert.Equal(t, "materialization-outcomes", cfg.KafkaOutcomesTopic)
	assert.Equal(t, "spectral-etl", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sentinel-2-l2a", cfg.StacCollection)
	assert.Equal(t, 30, cfg.CloudCoverThreshold)
	assert.Equal(t, 120*time.Second, cfg.BandFetchTimeout)
	assert.Equal(t, "pipeline-outputs", cfg.ArtifactPrefix)
	assert.Equal(t, "raw_catalog/fields/staging", cfg.FieldsStagingPrefix)
	assert.Equal(t, "raw_catalog/config/bbox.geojson", cfg.BboxFallbackKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("S3_BUCKET", "fieldsight")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CLOUD_COVER_THRESHOLD", "15")
	t.Setenv("STAC_TIMEOUT", "45s")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15, cfg.CloudCoverThreshold)
	assert.Equal(t, 45*time.Second, cfg.StacTimeout)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_MissingBucket(t *testing.T) {
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestLoad_InvalidCloudCover(t *testing.T) {
	t.Setenv("S3_BUCKET", "fieldsight")

	for _, bad := range []string{"0", "101", "-5"} {
		t.Setenv("CLOUD_COVER_THRESHOLD", bad)
		_, err := config.Load()
		assert.Error(t, err, bad)
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("S3_BUCKET", "fieldsight")
	t.Setenv("SHUTDOWN_TIMEOUT", "0s")

	_, err := config.Load()
	assert.Error(t, err)
}
