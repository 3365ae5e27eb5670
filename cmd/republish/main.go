// Command republish repairs the catalog after best-effort publication
// failures. It walks the persisted artifacts under the artifact prefix,
// rebuilds each catalog item from the artifact's own row, and publishes any
// item that is missing. Publication is idempotent, so re-running over
// already-published artifacts is a no-op.
//
// Usage:
//
//	go run ./cmd/republish [-prefix pipeline-outputs] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fieldsight/spectral-etl/internal/adapter/objstore"
	"github.com/fieldsight/spectral-etl/internal/artifact"
	"github.com/fieldsight/spectral-etl/internal/catalog"
	"github.com/fieldsight/spectral-etl/internal/config"
	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/observability"
)

func main() {
	prefix := flag.String("prefix", "", "artifact prefix to walk (defaults to ARTIFACT_PREFIX)")
	dryRun := flag.Bool("dry-run", false, "report missing catalog items without writing them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *prefix == "" {
		*prefix = cfg.ArtifactPrefix
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")

	store, err := objstore.NewMinioStore(objstore.MinioConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	}, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create object store:", err)
		os.Exit(1)
	}

	publisher := catalog.NewPublisher(store, cfg.S3Bucket, logger)
	if code := run(context.Background(), store, publisher, *prefix, *dryRun); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, store objstore.Store, publisher *catalog.Publisher, prefix string, dryRun bool) int {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list artifacts:", err)
		return 1
	}

	var scanned, missing, repaired, failed int
	for _, key := range keys {
		if !strings.HasSuffix(key, ".parquet") {
			continue
		}
		scanned++

		row, err := readArtifactRow(ctx, store, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
			failed++
			continue
		}

		kind, err := domain.ParseIndexKind(row.IndexType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
			failed++
			continue
		}

		itemKey := catalog.ItemKey(row.FieldID, kind, row.Date)
		exists, err := store.Head(ctx, itemKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: head %s: %v\n", key, itemKey, err)
			failed++
			continue
		}
		if exists {
			continue
		}
		missing++

		if dryRun {
			fmt.Printf("missing: %s (artifact %s)\n", itemKey, key)
			continue
		}

		field, err := fieldFromRow(row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
			failed++
			continue
		}
		if _, _, err := publisher.Publish(ctx, field, kind, row.Date, row.Stats(), key); err != nil {
			fmt.Fprintf(os.Stderr, "%s: publish: %v\n", key, err)
			failed++
			continue
		}
		fmt.Printf("published: %s\n", itemKey)
		repaired++
	}

	fmt.Printf("scanned %d artifacts, %d missing items, %d published, %d errors\n",
		scanned, missing, repaired, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func readArtifactRow(ctx context.Context, store objstore.Store, key string) (artifact.Row, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return artifact.Row{}, fmt.Errorf("get: %w", err)
	}
	rows, err := artifact.Read(data)
	if err != nil {
		return artifact.Row{}, fmt.Errorf("decode: %w", err)
	}
	if len(rows) == 0 {
		return artifact.Row{}, fmt.Errorf("artifact has no rows")
	}
	return rows[0], nil
}

// fieldFromRow reconstructs the field definition the catalog item needs from
// the artifact's self-describing row.
func fieldFromRow(row artifact.Row) (domain.Field, error) {
	geom, err := row.Geom()
	if err != nil {
		return domain.Field{}, fmt.Errorf("decode geometry: %w", err)
	}
	return domain.Field{
		ID:        row.FieldID,
		PlantType: row.PlantType,
		PlantDate: row.PlantDate,
		Geometry:  geom,
	}, nil
}
