// Package source loads the authoritative field and bounding-box features
// from the object store's raw catalog area.
//
// New feature files land under a staging prefix; once loaded they are moved
// to the processed prefix (copy then delete) so the same file is never
// ingested as "new" twice. Loading reads processed first, then staging, and
// reports which field ids were first seen in staging so the scheduler can
// register new partitions.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/fieldsight/spectral-etl/internal/adapter/objstore"
	"github.com/fieldsight/spectral-etl/internal/domain"
)

// Prefixes locates the raw catalog areas within the bucket.
type Prefixes struct {
	FieldsProcessed string
	FieldsStaging   string
	BboxProcessed   string
	BboxStaging     string
	BboxFallbackKey string
}

// Loader reads field and bbox features from the object store.
type Loader struct {
	store    objstore.Store
	prefixes Prefixes
	logger   *slog.Logger
}

// NewLoader creates a loader over the given store.
func NewLoader(store objstore.Store, prefixes Prefixes, logger *slog.Logger) *Loader {
	return &Loader{store: store, prefixes: prefixes, logger: logger}
}

// LoadFields returns all known fields plus the ids first seen in staging.
// Staged files are moved to the processed prefix after a successful load.
func (l *Loader) LoadFields(ctx context.Context) ([]domain.Field, []string, error) {
	seen := make(map[string]bool)
	var fields []domain.Field

	processed, err := l.fieldsFromPrefix(ctx, l.prefixes.FieldsProcessed)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range processed {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		fields = append(fields, f)
	}

	staged, err := l.fieldsFromPrefix(ctx, l.prefixes.FieldsStaging)
	if err != nil {
		return nil, nil, err
	}
	var newIDs []string
	for _, f := range staged {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		fields = append(fields, f)
		newIDs = append(newIDs, f.ID)
	}

	if len(staged) > 0 {
		if err := l.moveObjects(ctx, l.prefixes.FieldsStaging, l.prefixes.FieldsProcessed); err != nil {
			return nil, nil, err
		}
	}

	sort.Strings(newIDs)
	return fields, newIDs, nil
}

// LoadBbox returns the global processing bounding box geometry, checking the
// processed prefix, then staging, then the fallback key. Staged files are
// moved to processed after loading.
func (l *Loader) LoadBbox(ctx context.Context) (orb.Geometry, error) {
	geom, err := l.bboxFromPrefix(ctx, l.prefixes.BboxProcessed)
	if err != nil {
		return nil, err
	}

	staged, err := l.bboxFromPrefix(ctx, l.prefixes.BboxStaging)
	if err != nil {
		return nil, err
	}
	if staged != nil {
		geom = staged
		if err := l.moveObjects(ctx, l.prefixes.BboxStaging, l.prefixes.BboxProcessed); err != nil {
			return nil, err
		}
	}

	if geom == nil && l.prefixes.BboxFallbackKey != "" {
		data, err := l.store.Get(ctx, l.prefixes.BboxFallbackKey)
		if err != nil {
			return nil, fmt.Errorf("load bbox fallback: %w", err)
		}
		geom, err = firstGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("load bbox fallback: %w", err)
		}
		l.logger.Info("loaded bbox from fallback", "key", l.prefixes.BboxFallbackKey)
	}

	if geom == nil {
		return nil, fmt.Errorf("no bbox found in processed, staging, or fallback locations")
	}
	return geom, nil
}

func (l *Loader) fieldsFromPrefix(ctx context.Context, prefix string) ([]domain.Field, error) {
	var fields []domain.Field
	err := l.eachGeoJSON(ctx, prefix, func(key string, fc *geojson.FeatureCollection) {
		for _, feat := range fc.Features {
			field, ok := fieldFromFeature(feat)
			if !ok {
				continue
			}
			fields = append(fields, field)
		}
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (l *Loader) bboxFromPrefix(ctx context.Context, prefix string) (orb.Geometry, error) {
	var geom orb.Geometry
	err := l.eachGeoJSON(ctx, prefix, func(key string, fc *geojson.FeatureCollection) {
		if geom == nil && len(fc.Features) > 0 {
			geom = fc.Features[0].Geometry
		}
	})
	if err != nil {
		return nil, err
	}
	return geom, nil
}

// eachGeoJSON invokes fn for every .geojson object under prefix. A file
// that fails to parse is logged and skipped; one bad upload must not block
// the rest of the catalog.
func (l *Loader) eachGeoJSON(ctx context.Context, prefix string, fn func(key string, fc *geojson.FeatureCollection)) error {
	keys, err := l.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	for _, key := range keys {
		if !strings.HasSuffix(key, ".geojson") {
			continue
		}
		data, err := l.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			l.logger.Error("skipping malformed geojson", "key", key, "error", err)
			continue
		}
		fn(key, fc)
	}
	return nil
}

// moveObjects relocates every object under src to the dst prefix.
func (l *Loader) moveObjects(ctx context.Context, src, dst string) error {
	keys, err := l.store.List(ctx, src)
	if err != nil {
		return fmt.Errorf("list %s: %w", src, err)
	}
	for _, key := range keys {
		target := strings.Replace(key, src, dst, 1)
		if err := l.store.Copy(ctx, key, target); err != nil {
			return fmt.Errorf("move %s: %w", key, err)
		}
		if err := l.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("move %s: %w", key, err)
		}
	}
	l.logger.Debug("moved staged objects", "from", src, "to", dst, "count", len(keys))
	return nil
}

// fieldFromFeature extracts a field from a feature with the upstream
// property convention (object-type, object-id, plant-type, plant-date).
func fieldFromFeature(feat *geojson.Feature) (domain.Field, bool) {
	if feat.Properties.MustString("object-type", "") != "field" {
		return domain.Field{}, false
	}
	id := propString(feat.Properties, "object-id")
	if id == "" {
		return domain.Field{}, false
	}
	return domain.Field{
		ID:        id,
		PlantType: feat.Properties.MustString("plant-type", ""),
		PlantDate: feat.Properties.MustString("plant-date", ""),
		Geometry:  feat.Geometry,
	}, true
}

// propString renders a property value as a string. Upstream files encode
// some ids as JSON numbers.
func propString(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func firstGeometry(data []byte) (orb.Geometry, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil {
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("empty feature collection")
		}
		return fc.Features[0].Geometry, nil
	}
	g, gerr := geojson.UnmarshalGeometry(data)
	if gerr != nil {
		return nil, err
	}
	return g.Geometry(), nil
}
