// Package engine drives a materialization unit from partition key to
// published artifact. Each unit walks a fixed progression: eligibility,
// scene search, band selection, index computation, artifact persistence,
// catalog publication. Every non-terminal stage can short-circuit into a
// structured outcome; only configuration faults surface as errors.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/fieldsight/spectral-etl/internal/adapter/objstore"
	"github.com/fieldsight/spectral-etl/internal/adapter/stac"
	"github.com/fieldsight/spectral-etl/internal/artifact"
	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/geo"
	"github.com/fieldsight/spectral-etl/internal/observability"
	"github.com/fieldsight/spectral-etl/internal/raster"
)

// ErrFieldNotFound indicates a partition key referencing a field that is
// absent from the loaded field set. This is a configuration fault, not a
// per-unit failure, so it is returned as an error rather than an outcome.
var ErrFieldNotFound = errors.New("field not found")

// SceneSearcher finds candidate scenes for a geometry and date.
type SceneSearcher interface {
	Search(ctx context.Context, params stac.SearchParams) ([]stac.Scene, error)
}

// Publisher records a materialized result in the catalog. It returns the
// item key, and created reports whether this call wrote a new item.
type Publisher interface {
	Publish(ctx context.Context, field domain.Field, kind domain.IndexKind, date string, stats raster.Stats, artifactKey string) (key string, created bool, err error)
}

// FieldResolver looks up a field definition by id.
type FieldResolver interface {
	Resolve(fieldID string) (domain.Field, bool)
}

// FieldSet is an in-memory FieldResolver over a loaded field list.
type FieldSet map[string]domain.Field

// NewFieldSet indexes fields by id. Later duplicates win.
func NewFieldSet(fields []domain.Field) FieldSet {
	set := make(FieldSet, len(fields))
	for _, f := range fields {
		set[f.ID] = f
	}
	return set
}

func (s FieldSet) Resolve(fieldID string) (domain.Field, bool) {
	f, ok := s[fieldID]
	return f, ok
}

// Config holds the engine's per-deployment knobs.
type Config struct {
	Bucket         string
	Collection     string
	ArtifactPrefix string
	CloudCoverLT   int
	SearchLimit    int
}

// Engine executes materialization units against external collaborators.
type Engine struct {
	search    SceneSearcher
	signer    stac.Signer
	opener    raster.Opener
	store     objstore.Store
	publisher Publisher
	resolver  FieldResolver
	gate      *domain.EligibilityGate
	bbox      orb.Geometry

	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New wires an Engine. bbox is the global processing area in WGS84; field
// geometries are clipped to it before scene search and pixel masking.
func New(search SceneSearcher, signer stac.Signer, opener raster.Opener, store objstore.Store, publisher Publisher, resolver FieldResolver, gate *domain.EligibilityGate, bbox orb.Geometry, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	return &Engine{
		search:    search,
		signer:    signer,
		opener:    opener,
		store:     store,
		publisher: publisher,
		resolver:  resolver,
		gate:      gate,
		bbox:      bbox,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Materialize runs one unit to a terminal outcome. Failures of external
// collaborators (search, band I/O, persistence) are folded into a failed
// outcome so the caller can record and move on; the returned error is
// reserved for faults that make the unit unprocessable as configured.
func (e *Engine) Materialize(ctx context.Context, key domain.PartitionKey, kind domain.IndexKind) (domain.Outcome, error) {
	start := time.Now()

	field, ok := e.resolver.Resolve(key.FieldID)
	if !ok {
		return domain.Outcome{}, fmt.Errorf("%w: %s", ErrFieldNotFound, key.FieldID)
	}

	outcome := e.run(ctx, key, kind, field)

	e.metrics.UnitsProcessed.WithLabelValues(string(kind), string(outcome.Status)).Inc()
	e.metrics.UnitDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	e.logger.Info("materialization unit finished",
		"field_id", key.FieldID,
		"date", key.Date,
		"index", string(kind),
		"status", string(outcome.Status),
		"reason", outcome.Reason,
		"duration", time.Since(start))
	return outcome, nil
}

func (e *Engine) run(ctx context.Context, key domain.PartitionKey, kind domain.IndexKind, field domain.Field) domain.Outcome {
	if reason, ok := e.gate.Check(field, key.Date); !ok {
		return domain.NewSkippedOutcome(key, kind, reason)
	}

	geom := field.Geometry
	if e.bbox != nil {
		geom = geo.ClipToArea(e.bbox, field.Geometry)
		if geom == nil {
			return domain.NewFailedOutcome(key, kind, fmt.Sprintf("field %s lies outside the processing area", field.ID))
		}
	}

	scene, outcome, ok := e.findScene(ctx, key, kind, geom)
	if !ok {
		return outcome
	}

	hrefs, outcome, ok := e.selectBands(ctx, key, kind, scene)
	if !ok {
		return outcome
	}

	result, outcome, ok := e.computeIndex(ctx, key, kind, geom, hrefs)
	if !ok {
		return outcome
	}

	return e.persistAndPublish(ctx, key, kind, field, result.Stats)
}

func (e *Engine) findScene(ctx context.Context, key domain.PartitionKey, kind domain.IndexKind, geom orb.Geometry) (stac.Scene, domain.Outcome, bool) {
	scenes, err := e.search.Search(ctx, stac.SearchParams{
		Collection:   e.cfg.Collection,
		Intersects:   geom,
		Date:         key.Date,
		CloudCoverLT: e.cfg.CloudCoverLT,
		Limit:        e.cfg.SearchLimit,
	})
	if err != nil {
		e.metrics.SceneSearches.WithLabelValues("error").Inc()
		return stac.Scene{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("scene search: %v", err)), false
	}
	if len(scenes) == 0 {
		e.metrics.SceneSearches.WithLabelValues("empty").Inc()
		return stac.Scene{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("no scenes found for %s", key.Date)), false
	}
	e.metrics.SceneSearches.WithLabelValues("hit").Inc()
	return scenes[0], domain.Outcome{}, true
}

// bandHrefs holds the signed band locations keyed by role, plus which role
// owns the target grid.
type bandHrefs struct {
	a, b   string
	roleA  domain.BandRole
	roleB  domain.BandRole
	target domain.BandRole
}

func (e *Engine) selectBands(ctx context.Context, key domain.PartitionKey, kind domain.IndexKind, scene stac.Scene) (bandHrefs, domain.Outcome, bool) {
	roleA, roleB, err := kind.Roles()
	if err != nil {
		return bandHrefs{}, domain.NewFailedOutcome(key, kind, err.Error()), false
	}

	var missing []string
	hrefs := map[domain.BandRole]string{}
	for _, role := range []domain.BandRole{roleA, roleB} {
		href, ok := pickAsset(scene, role)
		if !ok {
			missing = append(missing, string(role))
			continue
		}
		hrefs[role] = href
	}
	if len(missing) > 0 {
		reason := fmt.Sprintf("scene %s missing band roles %v; available assets %v", scene.ID, missing, scene.AssetNames())
		return bandHrefs{}, domain.NewFailedOutcome(key, kind, reason), false
	}

	out := bandHrefs{roleA: roleA, roleB: roleB, target: kind.TargetRole()}
	if out.a, err = e.signer.Sign(ctx, hrefs[roleA]); err != nil {
		return bandHrefs{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("sign %s asset: %v", roleA, err)), false
	}
	if out.b, err = e.signer.Sign(ctx, hrefs[roleB]); err != nil {
		return bandHrefs{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("sign %s asset: %v", roleB, err)), false
	}
	return out, domain.Outcome{}, true
}

func pickAsset(scene stac.Scene, role domain.BandRole) (string, bool) {
	for _, name := range domain.AssetPreferences(role) {
		if href, ok := scene.Assets[name]; ok {
			return href, true
		}
	}
	return "", false
}

func (e *Engine) computeIndex(ctx context.Context, key domain.PartitionKey, kind domain.IndexKind, geom orb.Geometry, hrefs bandHrefs) (raster.IndexResult, domain.Outcome, bool) {
	bandA, maskedA, err := e.readBand(ctx, hrefs.a, geom)
	if err != nil {
		return raster.IndexResult{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("read %s band: %v", hrefs.roleA, err)), false
	}
	bandB, maskedB, err := e.readBand(ctx, hrefs.b, geom)
	if err != nil {
		return raster.IndexResult{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("read %s band: %v", hrefs.roleB, err)), false
	}

	// The target role's grid is authoritative; the other band is resampled
	// onto it when their shapes differ.
	switch hrefs.target {
	case hrefs.roleA:
		bandB, err = raster.Align(bandB, bandA, maskedA)
	case hrefs.roleB:
		bandA, err = raster.Align(bandA, bandB, maskedB)
	}
	if err != nil {
		return raster.IndexResult{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("align bands: %v", err)), false
	}

	result, err := raster.ComputeIndex(bandA, bandB)
	if err != nil {
		return raster.IndexResult{}, domain.NewFailedOutcome(key, kind, fmt.Sprintf("compute %s: %v", kind.Upper(), err)), false
	}
	return result, domain.Outcome{}, true
}

func (e *Engine) readBand(ctx context.Context, href string, geom orb.Geometry) (raster.Band, orb.Geometry, error) {
	src, err := e.opener.Open(ctx, href)
	if err != nil {
		return raster.Band{}, nil, err
	}
	defer src.Close()

	band, masked, err := raster.ReadWindow(src, geom, geo.WGS84)
	if err != nil {
		return raster.Band{}, nil, err
	}
	e.metrics.BandReads.Inc()
	return band, masked, nil
}

func (e *Engine) persistAndPublish(ctx context.Context, key domain.PartitionKey, kind domain.IndexKind, field domain.Field, stats raster.Stats) domain.Outcome {
	data, err := artifact.Write(field, kind, key.Date, stats)
	if err != nil {
		return domain.NewFailedOutcome(key, kind, fmt.Sprintf("encode artifact: %v", err))
	}

	artifactKey := artifact.Key(e.cfg.ArtifactPrefix, field.ID, kind, key.Date)
	if err := e.store.Put(ctx, artifactKey, data, artifact.ContentType); err != nil {
		return domain.NewFailedOutcome(key, kind, fmt.Sprintf("persist artifact %s: %v", artifactKey, err))
	}
	artifactURI := fmt.Sprintf("s3://%s/%s", e.cfg.Bucket, artifactKey)

	catalogKey, created, err := e.publisher.Publish(ctx, field.WithIndex(kind, stats), kind, key.Date, stats, artifactKey)
	outcome := domain.NewSucceededOutcome(key, kind, artifactKey, artifactURI, catalogKey)
	switch {
	case err != nil:
		// Publication is best effort: the artifact is durable, so the unit
		// still succeeds and carries the publish failure for the operator.
		e.metrics.CatalogPublishes.WithLabelValues("error").Inc()
		e.logger.Warn("catalog publish failed", "field_id", field.ID, "index", string(kind), "error", err)
		outcome.CatalogKey = ""
		outcome.PublishError = err.Error()
	case created:
		e.metrics.CatalogPublishes.WithLabelValues("created").Inc()
	default:
		e.metrics.CatalogPublishes.WithLabelValues("exists").Inc()
	}
	return outcome
}
