// Package catalog builds and publishes STAC-style catalog records for
// computed spectral indices. Items are immutable once written: publication
// is create-if-absent, so republishing after a crash is safe and a
// recomputed result for the same key requires an explicit delete first.
package catalog

import (
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/raster"
)

const stacVersion = "1.0.0"

// Link is one catalog relation.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type"`
}

// Asset points at stored data belonging to an item.
type Asset struct {
	Href  string `json:"href"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Item is one catalog record for a (field, index, date) triple.
type Item struct {
	Type        string            `json:"type"`
	StacVersion string            `json:"stac_version"`
	ID          string            `json:"id"`
	Geometry    *geojson.Geometry `json:"geometry"`
	Bbox        [4]float64        `json:"bbox"`
	Properties  map[string]any    `json:"properties"`
	Assets      map[string]Asset  `json:"assets"`
	Links       []Link            `json:"links"`
}

// NewItem builds the catalog item for a computed index.
//
// The item id joins field, kind, and date with hyphens for display and
// discovery. It is write-only: keys are always derived from the structured
// triple, never by re-splitting the id, so hyphens inside field ids cannot
// corrupt key derivation.
func NewItem(field domain.Field, kind domain.IndexKind, date string, stats raster.Stats, bucket, artifactKey string) (Item, error) {
	obsDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return Item{}, fmt.Errorf("parse observation date %q: %w", date, err)
	}

	bound := field.Geometry.Bound()
	prefix := string(kind)

	item := Item{
		Type:        "Feature",
		StacVersion: stacVersion,
		ID:          fmt.Sprintf("%s-%s-%s", field.ID, kind, date),
		Geometry:    geojson.NewGeometry(field.Geometry),
		Bbox:        [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		Properties: map[string]any{
			"datetime":   obsDate.UTC().Format("2006-01-02T15:04:05") + "Z",
			"field_id":   field.ID,
			"plant_type": field.PlantType,
			"plant_date": field.PlantDate,
			"index_type": kind.Upper(),

			prefix + "_mean":              stats.Mean,
			prefix + "_std":               stats.Std,
			prefix + "_min":               stats.Min,
			prefix + "_max":               stats.Max,
			prefix + "_valid_pixel_count": stats.ValidPixelCount,
		},
		Assets: map[string]Asset{
			"data": {
				Href:  s3Href(bucket, artifactKey),
				Type:  "application/parquet",
				Title: fmt.Sprintf("%s data for %s on %s", kind.Upper(), field.ID, date),
			},
		},
	}

	itemKey := ItemKey(field.ID, kind, date)
	item.Links = []Link{
		{Rel: "self", Href: s3Href(bucket, itemKey), Type: "application/json"},
		{Rel: "collection", Href: s3Href(bucket, CollectionKey), Type: "application/json"},
		{Rel: "root", Href: s3Href(bucket, RootKey), Type: "application/json"},
	}
	return item, nil
}

func s3Href(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
