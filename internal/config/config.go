// Package config loads worker settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaUnitsTopic    string   `env:"KAFKA_UNITS_TOPIC" envDefault:"materialization-units"`
	KafkaOutcomesTopic string   `env:"KAFKA_OUTCOMES_TOPIC" envDefault:"materialization-outcomes"`
	KafkaGroupID       string   `env:"KAFKA_GROUP_ID" envDefault:"spectral-etl"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Object store (MinIO or AWS S3).
	S3Endpoint  string `env:"S3_ENDPOINT" envDefault:"localhost:9000"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`

	// Scene search and asset signing.
	StacAPIURL          string        `env:"STAC_API_URL" envDefault:"https://planetarycomputer.microsoft.com/api/stac/v1"`
	StacCollection      string        `env:"STAC_COLLECTION" envDefault:"sentinel-2-l2a"`
	StacSignURL         string        `env:"STAC_SIGN_URL"`
	StacTimeout         time.Duration `env:"STAC_TIMEOUT" envDefault:"30s"`
	CloudCoverThreshold int           `env:"CLOUD_COVER_THRESHOLD" envDefault:"30"`

	// Band fetching.
	BandFetchTimeout time.Duration `env:"BAND_FETCH_TIMEOUT" envDefault:"120s"`

	// Key layout within the bucket.
	ArtifactPrefix        string `env:"ARTIFACT_PREFIX" envDefault:"pipeline-outputs"`
	FieldsProcessedPrefix string `env:"FIELDS_PROCESSED_PREFIX" envDefault:"raw_catalog/fields/processed"`
	FieldsStagingPrefix   string `env:"FIELDS_STAGING_PREFIX" envDefault:"raw_catalog/fields/staging"`
	BboxProcessedPrefix   string `env:"BBOX_PROCESSED_PREFIX" envDefault:"raw_catalog/bbox/processed"`
	BboxStagingPrefix     string `env:"BBOX_STAGING_PREFIX" envDefault:"raw_catalog/bbox/staging"`
	BboxFallbackKey       string `env:"BBOX_FALLBACK_KEY" envDefault:"raw_catalog/config/bbox.geojson"`
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaUnitsTopic == "" {
		return nil, errors.New("KAFKA_UNITS_TOPIC is required")
	}
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	if cfg.StacTimeout <= 0 {
		return nil, errors.New("invalid STAC_TIMEOUT")
	}
	if cfg.CloudCoverThreshold <= 0 || cfg.CloudCoverThreshold > 100 {
		return nil, errors.New("CLOUD_COVER_THRESHOLD must be within 1..100")
	}

	return cfg, nil
}
