package stac_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/adapter/stac"
)

func testGeom() orb.Geometry {
	return orb.Polygon{{{11, 48}, {11.1, 48}, {11.1, 48.1}, {11, 48.1}, {11, 48}}}
}

func TestSearch_RequestShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	client := stac.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := client.Search(context.Background(), stac.SearchParams{
		Collection:   "sentinel-2-l2a",
		Intersects:   testGeom(),
		Date:         "2025-06-01",
		CloudCoverLT: 30,
		Limit:        5,
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"sentinel-2-l2a"}, got["collections"])
	assert.Equal(t, "2025-06-01/2025-06-01", got["datetime"])
	assert.Equal(t, float64(5), got["limit"])

	query := got["query"].(map[string]any)
	cloud := query["eo:cloud_cover"].(map[string]any)
	assert.Equal(t, float64(30), cloud["lt"])

	intersects := got["intersects"].(map[string]any)
	assert.Equal(t, "Polygon", intersects["type"])
}

func TestSearch_ParsesScenes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"features": [
				{
					"id": "S2A_T32UNU_20250601",
					"assets": {
						"B04": {"href": "https://example.com/B04.tif"},
						"B08": {"href": "https://example.com/B08.tif"}
					}
				},
				{
					"id": "S2B_T32UNU_20250601",
					"assets": {"B08": {"href": "https://example.com/b.tif"}}
				}
			]
		}`))
	}))
	defer srv.Close()

	client := stac.NewClient(srv.URL, 5*time.Second, slog.Default())
	scenes, err := client.Search(context.Background(), stac.SearchParams{
		Collection: "sentinel-2-l2a",
		Intersects: testGeom(),
		Date:       "2025-06-01",
	})
	require.NoError(t, err)

	require.Len(t, scenes, 2)
	assert.Equal(t, "S2A_T32UNU_20250601", scenes[0].ID)
	assert.Equal(t, "https://example.com/B04.tif", scenes[0].Assets["B04"])
	assert.Equal(t, []string{"B04", "B08"}, scenes[0].AssetNames())
}

func TestSearch_EmptyResult_NoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	client := stac.NewClient(srv.URL, 5*time.Second, slog.Default())
	scenes, err := client.Search(context.Background(), stac.SearchParams{
		Collection: "sentinel-2-l2a",
		Intersects: testGeom(),
		Date:       "2025-06-01",
	})
	require.NoError(t, err)
	assert.Empty(t, scenes)
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := stac.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := client.Search(context.Background(), stac.SearchParams{
		Collection: "sentinel-2-l2a",
		Intersects: testGeom(),
		Date:       "2025-06-01",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestHTTPSigner_Sign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com/B04.tif", r.URL.Query().Get("href"))
		w.Write([]byte(`{"href": "https://example.com/B04.tif?sig=abc"}`))
	}))
	defer srv.Close()

	signer := stac.NewHTTPSigner(srv.URL, 5*time.Second, slog.Default())
	signed, err := signer.Sign(context.Background(), "https://example.com/B04.tif")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/B04.tif?sig=abc", signed)
}

func TestHTTPSigner_EmptyHref(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	signer := stac.NewHTTPSigner(srv.URL, 5*time.Second, slog.Default())
	_, err := signer.Sign(context.Background(), "https://example.com/B04.tif")
	assert.Error(t, err)
}

func TestNoopSigner(t *testing.T) {
	signed, err := stac.NoopSigner{}.Sign(context.Background(), "https://example.com/x.tif")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x.tif", signed)
}
