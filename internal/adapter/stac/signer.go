package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Signer exchanges an asset href for a fetchable (possibly time-limited)
// URL. Invoked once per selected band.
type Signer interface {
	Sign(ctx context.Context, href string) (string, error)
}

// HTTPSigner calls a signing endpoint in the Planetary Computer SAS style:
// GET {endpoint}?href=... returning {"href": "<signed>"}.
type HTTPSigner struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSigner creates a signer against the given endpoint.
func NewHTTPSigner(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPSigner {
	return &HTTPSigner{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (s *HTTPSigner) Sign(ctx context.Context, href string) (string, error) {
	u := s.endpoint + "?href=" + url.QueryEscape(href)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create sign request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("signing API error: status %d: %s", resp.StatusCode, msg)
	}

	var signed struct {
		Href string `json:"href"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("decode signed href: %w", err)
	}
	if signed.Href == "" {
		return "", fmt.Errorf("signing API returned empty href for %s", href)
	}
	return signed.Href, nil
}

// NoopSigner returns hrefs unchanged, for imagery sources whose assets are
// directly fetchable.
type NoopSigner struct{}

func (NoopSigner) Sign(_ context.Context, href string) (string, error) {
	return href, nil
}
