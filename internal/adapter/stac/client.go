// Package stac talks to a STAC API for scene discovery and to an asset
// signing endpoint for fetchable band URLs. Both are external collaborators;
// the engine takes the first search result and never retries here.
package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Scene is one search hit: a satellite capture exposing named assets.
type Scene struct {
	ID     string
	Assets map[string]string // asset name -> href
}

// AssetNames returns the scene's asset names, sorted for stable diagnostics.
func (s Scene) AssetNames() []string {
	names := make([]string, 0, len(s.Assets))
	for name := range s.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SearchParams filter a scene search to one day, one geometry, and a cloud
// cover ceiling.
type SearchParams struct {
	Collection   string
	Intersects   orb.Geometry
	Date         string // YYYY-MM-DD
	CloudCoverLT int
	Limit        int
}

// Client implements scene search against a STAC API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a STAC search client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Search posts a single-day item search and returns matching scenes in API
// order. A day with no matching scenes returns an empty slice, not an error.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Scene, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 1
	}

	body := searchRequest{
		Collections: []string{params.Collection},
		Intersects:  geojson.NewGeometry(params.Intersects),
		Datetime:    fmt.Sprintf("%s/%s", params.Date, params.Date),
		Limit:       limit,
		Query: map[string]any{
			"eo:cloud_cover": map[string]any{"lt": params.CloudCoverLT},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scene search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stac API error: status %d: %s", resp.StatusCode, msg)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	scenes := make([]Scene, 0, len(result.Features))
	for _, f := range result.Features {
		scene := Scene{ID: f.ID, Assets: make(map[string]string, len(f.Assets))}
		for name, asset := range f.Assets {
			scene.Assets[name] = asset.Href
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

// STAC API wire types.

type searchRequest struct {
	Collections []string          `json:"collections"`
	Intersects  *geojson.Geometry `json:"intersects"`
	Datetime    string            `json:"datetime"`
	Limit       int               `json:"limit"`
	Query       map[string]any    `json:"query,omitempty"`
}

type searchResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID     string           `json:"id"`
	Assets map[string]asset `json:"assets"`
}

type asset struct {
	Href string `json:"href"`
}
