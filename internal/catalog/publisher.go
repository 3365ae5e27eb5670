package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fieldsight/spectral-etl/internal/adapter/objstore"
	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/raster"
)

const contentTypeJSON = "application/json"

// Publisher writes catalog records into the object store idempotently.
//
// The existence-check-then-create pattern is not atomic against concurrent
// publishers for the same key. Duplicate runs of the same partition write
// identical content, so last-writer-wins is benign; if recomputation could
// ever produce different output for the same key, this would need a real
// conditional put.
type Publisher struct {
	store  objstore.Store
	bucket string
	logger *slog.Logger
}

// NewPublisher creates a publisher over the given store. The bucket name
// only feeds the s3:// hrefs embedded in records.
func NewPublisher(store objstore.Store, bucket string, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, bucket: bucket, logger: logger}
}

// Publish ensures the catalog structure exists, then creates the item for
// the given result if absent. It returns the item key in both cases;
// created reports whether this call wrote the item.
func (p *Publisher) Publish(ctx context.Context, field domain.Field, kind domain.IndexKind, date string, stats raster.Stats, artifactKey string) (key string, created bool, err error) {
	if err := p.EnsureStructure(ctx); err != nil {
		return "", false, err
	}

	item, err := NewItem(field, kind, date, stats, p.bucket, artifactKey)
	if err != nil {
		return "", false, err
	}

	key = ItemKey(field.ID, kind, date)
	exists, err := p.store.Head(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("check catalog item %s: %w", key, err)
	}
	if exists {
		// No overwrite, no content re-validation: a previously published
		// item for this triple wins until explicitly deleted.
		p.logger.Info("catalog item already exists, skipping", "key", key)
		return key, false, nil
	}

	if err := p.putJSON(ctx, key, item); err != nil {
		return "", false, fmt.Errorf("publish catalog item %s: %w", key, err)
	}
	p.logger.Info("published catalog item", "key", key, "item_id", item.ID)
	return key, true, nil
}

// EnsureStructure creates the root catalog and collection records if absent.
// Each is independently idempotent.
func (p *Publisher) EnsureStructure(ctx context.Context) error {
	if err := p.ensureObject(ctx, RootKey, p.rootCatalog()); err != nil {
		return fmt.Errorf("ensure root catalog: %w", err)
	}
	if err := p.ensureObject(ctx, CollectionKey, p.collection()); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

func (p *Publisher) ensureObject(ctx context.Context, key string, record any) error {
	exists, err := p.store.Head(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := p.putJSON(ctx, key, record); err != nil {
		return err
	}
	p.logger.Info("created catalog record", "key", key)
	return nil
}

func (p *Publisher) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.store.Put(ctx, key, data, contentTypeJSON)
}

func (p *Publisher) rootCatalog() map[string]any {
	return map[string]any{
		"type":         "Catalog",
		"stac_version": stacVersion,
		"id":           "field-spectral-indices",
		"title":        "Field Spectral Indices Catalog",
		"description":  "Catalog of per-field spectral index computations (NDVI, NDMI)",
		"links": []Link{
			{Rel: "self", Href: s3Href(p.bucket, RootKey), Type: contentTypeJSON},
			{Rel: "root", Href: s3Href(p.bucket, RootKey), Type: contentTypeJSON},
			{Rel: "collection", Href: s3Href(p.bucket, CollectionKey), Type: contentTypeJSON},
		},
	}
}

func (p *Publisher) collection() map[string]any {
	return map[string]any{
		"type":         "Collection",
		"stac_version": stacVersion,
		"id":           "field-indices",
		"title":        "Field Spectral Indices",
		"description":  "Spectral index computations (NDVI, NDMI) for agricultural fields",
		"license":      "proprietary",
		"extent": map[string]any{
			"spatial":  map[string]any{"bbox": [][]float64{{-180, -90, 180, 90}}},
			"temporal": map[string]any{"interval": [][]any{{"2024-01-01T00:00:00Z", nil}}},
		},
		"links": []Link{
			{Rel: "self", Href: s3Href(p.bucket, CollectionKey), Type: contentTypeJSON},
			{Rel: "root", Href: s3Href(p.bucket, RootKey), Type: contentTypeJSON},
			{Rel: "parent", Href: s3Href(p.bucket, RootKey), Type: contentTypeJSON},
			{Rel: "items", Href: s3Href(p.bucket, itemPrefix+"/"), Type: contentTypeJSON},
		},
	}
}
