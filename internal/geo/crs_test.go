package geo_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/geo"
)

func TestEPSGCode(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "EPSG:4326", want: 4326},
		{input: "epsg:32632", want: 32632},
		{input: " EPSG:3857 ", want: 3857},
		{input: "4326", want: 4326},
		{input: "EPSG:abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := geo.EPSGCode(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestTransformer_Identity(t *testing.T) {
	tf, err := geo.Transformer("EPSG:4326", "epsg:4326")
	require.NoError(t, err)

	x, y := tf(11.25, 48.1)
	assert.Equal(t, 11.25, x)
	assert.Equal(t, 48.1, y)
}

func TestTransformer_UTMCentralMeridian(t *testing.T) {
	// Longitude 9 is the central meridian of UTM zone 32, so the easting
	// must be the standard false easting of 500 km.
	tf, err := geo.Transformer(geo.WGS84, "EPSG:32632")
	require.NoError(t, err)

	x, y := tf(9.0, 48.0)
	assert.InDelta(t, 500000, x, 1.0)
	assert.Greater(t, y, 5.2e6)
	assert.Less(t, y, 5.4e6)
}

func TestTransformer_UTMRoundTrip(t *testing.T) {
	fwd, err := geo.Transformer(geo.WGS84, "EPSG:32632")
	require.NoError(t, err)
	back, err := geo.Transformer("EPSG:32632", geo.WGS84)
	require.NoError(t, err)

	lon, lat := 11.25, 48.1
	x, y := fwd(lon, lat)
	gotLon, gotLat := back(x, y)

	// The library's UTM inverse is series-based and lands within ~4e-5
	// degrees (about 5 m at this latitude), well under a 10 m pixel.
	assert.InDelta(t, lon, gotLon, 1e-4)
	assert.InDelta(t, lat, gotLat, 1e-4)
}

func TestTransformer_UnsupportedCRS(t *testing.T) {
	tf, err := geo.Transformer(geo.WGS84, "EPSG:27700")
	assert.Error(t, err)
	assert.Nil(t, tf)
}

func TestTransformer_UnparsableCRS(t *testing.T) {
	tf, err := geo.Transformer("EPSG:abc", geo.WGS84)
	assert.Error(t, err)
	assert.Nil(t, tf)
}

func TestTransformGeometry_Polygon(t *testing.T) {
	poly := orb.Polygon{{
		{11.0, 48.0}, {11.1, 48.0}, {11.1, 48.1}, {11.0, 48.1}, {11.0, 48.0},
	}}

	out, err := geo.TransformGeometry(poly, geo.WGS84, "EPSG:32632")
	require.NoError(t, err)

	projected, ok := out.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, projected, 1)
	require.Len(t, projected[0], 5)

	// Input is untouched.
	assert.Equal(t, orb.Point{11.0, 48.0}, poly[0][0])
	// Projected coordinates are in meters, far from degree magnitudes.
	assert.Greater(t, projected[0][0][0], 100000.0)
}

func TestTransformGeometry_UnsupportedType(t *testing.T) {
	_, err := geo.TransformGeometry(orb.LineString{{0, 0}, {1, 1}}, geo.WGS84, "EPSG:32632")
	assert.Error(t, err)
}
