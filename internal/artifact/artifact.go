// Package artifact writes the persisted result of one materialization: a
// single-row columnar (GeoParquet-style) record carrying field identity,
// the five summary statistics, and the field geometry as WKB. The raw 2-D
// index array is consumed immediately downstream and is not persisted here.
package artifact

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/raster"
)

// ContentType is the MIME type artifacts are stored under.
const ContentType = "application/parquet"

// geoMetadata is the GeoParquet file-level metadata announcing the WKB
// geometry column.
const geoMetadata = `{"version":"1.0.0","primary_column":"geometry","columns":{"geometry":{"encoding":"WKB","geometry_types":["Polygon","MultiPolygon"]}}}`

// Row is the artifact schema. Statistics use explicit columns rather than
// per-index prefixed names; the index kind is its own column.
type Row struct {
	FieldID         string  `parquet:"field_id"`
	PlantType       string  `parquet:"plant_type"`
	PlantDate       string  `parquet:"plant_date"`
	IndexType       string  `parquet:"index_type"`
	Date            string  `parquet:"date"`
	Mean            float64 `parquet:"mean"`
	Std             float64 `parquet:"std"`
	Min             float64 `parquet:"min"`
	Max             float64 `parquet:"max"`
	ValidPixelCount int64   `parquet:"valid_pixel_count"`
	Geometry        []byte  `parquet:"geometry"`
}

// Stats converts the row's scalar columns back into raster statistics.
func (r Row) Stats() raster.Stats {
	return raster.Stats{
		Mean:            r.Mean,
		Std:             r.Std,
		Min:             r.Min,
		Max:             r.Max,
		ValidPixelCount: int(r.ValidPixelCount),
	}
}

// Geom decodes the WKB geometry column.
func (r Row) Geom() (orb.Geometry, error) {
	g, err := wkb.Unmarshal(r.Geometry)
	if err != nil {
		return nil, fmt.Errorf("decode artifact geometry: %w", err)
	}
	return g, nil
}

// Key builds the deterministic artifact key for a (field, index, date) triple.
func Key(prefix, fieldID string, kind domain.IndexKind, date string) string {
	return fmt.Sprintf("%s/%s/%s/%s.parquet", prefix, fieldID, kind, date)
}

// Write serializes one field-with-index record to parquet bytes.
func Write(field domain.Field, kind domain.IndexKind, date string, stats raster.Stats) ([]byte, error) {
	geom, err := wkb.Marshal(field.Geometry)
	if err != nil {
		return nil, fmt.Errorf("encode field geometry: %w", err)
	}

	row := Row{
		FieldID:         field.ID,
		PlantType:       field.PlantType,
		PlantDate:       field.PlantDate,
		IndexType:       string(kind),
		Date:            date,
		Mean:            stats.Mean,
		Std:             stats.Std,
		Min:             stats.Min,
		Max:             stats.Max,
		ValidPixelCount: int64(stats.ValidPixelCount),
		Geometry:        geom,
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[Row](&buf, parquet.KeyValueMetadata("geo", geoMetadata))
	if _, err := writer.Write([]Row{row}); err != nil {
		return nil, fmt.Errorf("write artifact row: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close artifact writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Read decodes artifact bytes. Artifacts are single-row by construction,
// but Read tolerates and returns multiple rows.
func Read(data []byte) ([]Row, error) {
	rows, err := parquet.Read[Row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return rows, nil
}
