package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldsight/spectral-etl/internal/adapter/geotiff"
	httpadapter "github.com/fieldsight/spectral-etl/internal/adapter/http"
	kafkaadapter "github.com/fieldsight/spectral-etl/internal/adapter/kafka"
	"github.com/fieldsight/spectral-etl/internal/adapter/objstore"
	"github.com/fieldsight/spectral-etl/internal/adapter/stac"
	"github.com/fieldsight/spectral-etl/internal/catalog"
	"github.com/fieldsight/spectral-etl/internal/config"
	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/engine"
	"github.com/fieldsight/spectral-etl/internal/observability"
	"github.com/fieldsight/spectral-etl/internal/source"
	"github.com/fieldsight/spectral-etl/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := objstore.NewMinioStore(objstore.MinioConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	}, logger)
	if err != nil {
		logger.Error("failed to create object store", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Field definitions and the processing bbox are ingested once at
	// startup; staged definition files are promoted to processed so a
	// restart does not re-ingest them.
	loader := source.NewLoader(store, source.Prefixes{
		FieldsProcessed: cfg.FieldsProcessedPrefix,
		FieldsStaging:   cfg.FieldsStagingPrefix,
		BboxProcessed:   cfg.BboxProcessedPrefix,
		BboxStaging:     cfg.BboxStagingPrefix,
		BboxFallbackKey: cfg.BboxFallbackKey,
	}, logger)

	fields, newIDs, err := loader.LoadFields(ctx)
	if err != nil {
		logger.Error("failed to load field definitions", "error", err)
		os.Exit(1)
	}
	bbox, err := loader.LoadBbox(ctx)
	if err != nil {
		logger.Error("failed to load processing bbox", "error", err)
		os.Exit(1)
	}
	logger.Info("field definitions loaded", "fields", len(fields), "new", len(newIDs))

	var signer stac.Signer = stac.NoopSigner{}
	if cfg.StacSignURL != "" {
		signer = stac.NewHTTPSigner(cfg.StacSignURL, cfg.StacTimeout, logger)
	}
	search := stac.NewClient(cfg.StacAPIURL, cfg.StacTimeout, logger)
	opener := geotiff.NewOpener(cfg.BandFetchTimeout, logger)
	publisher := catalog.NewPublisher(store, cfg.S3Bucket, logger)

	eng := engine.New(search, signer, opener, store, publisher,
		engine.NewFieldSet(fields), domain.NewEligibilityGate(), bbox,
		engine.Config{
			Bucket:         cfg.S3Bucket,
			Collection:     cfg.StacCollection,
			ArtifactPrefix: cfg.ArtifactPrefix,
			CloudCoverLT:   cfg.CloudCoverThreshold,
		}, logger, metrics)

	reader := kafkaadapter.NewUnitReader(cfg.KafkaBrokers, cfg.KafkaUnitsTopic, cfg.KafkaGroupID, logger)
	writer := kafkaadapter.NewOutcomeWriter(cfg.KafkaBrokers, cfg.KafkaOutcomesTopic, logger)

	w := worker.New(reader, writer, eng, domain.AllIndexKinds, logger, metrics)

	status := func() httpadapter.Status {
		indices := make([]string, len(domain.AllIndexKinds))
		for i, kind := range domain.AllIndexKinds {
			indices[i] = string(kind)
		}
		return httpadapter.Status{
			FieldsLoaded: len(fields),
			Indices:      indices,
			Bucket:       cfg.S3Bucket,
			Collection:   cfg.StacCollection,
		}
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, w, status, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start consume loop.
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Error("worker error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
