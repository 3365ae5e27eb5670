// Package geotiff implements raster band access for strip-based GeoTIFF
// files, fetched over HTTP or read from local paths. Pixel data is decoded
// with golang.org/x/image/tiff; the georeferencing tags (pixel scale,
// tiepoint, geo key directory) are read directly from the first IFD.
//
// Tiled cloud-optimized layouts are out of scope: windowed reads are served
// from the decoded frame, which is sufficient for field-sized windows.
package geotiff

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/image/tiff"

	"github.com/fieldsight/spectral-etl/internal/raster"
)

// Opener fetches and decodes GeoTIFF bands. It implements raster.Opener.
type Opener struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpener creates a band opener with the given fetch timeout.
func NewOpener(timeout time.Duration, logger *slog.Logger) *Opener {
	return &Opener{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Open fetches the band at href and decodes it into an in-memory source.
func (o *Opener) Open(ctx context.Context, href string) (raster.Source, error) {
	data, err := o.fetch(ctx, href)
	if err != nil {
		return nil, fmt.Errorf("open band %s: %w", href, err)
	}
	src, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("open band %s: %w", href, err)
	}
	return src, nil
}

func (o *Opener) fetch(ctx context.Context, href string) ([]byte, error) {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
		if err != nil {
			return nil, fmt.Errorf("create fetch request: %w", err)
		}
		resp, err := o.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(href)
}

// Source is a fully decoded GeoTIFF band. It implements raster.Source.
type Source struct {
	data      []float32
	width     int
	height    int
	transform raster.Affine
	crs       string
}

// Decode parses georeferencing tags and pixel data from GeoTIFF bytes.
func Decode(data []byte) (*Source, error) {
	transform, epsg, err := parseGeoTags(data)
	if err != nil {
		return nil, err
	}

	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tiff: %w", err)
	}

	samples, width, height, err := toFloat32(img)
	if err != nil {
		return nil, err
	}

	return &Source{
		data:      samples,
		width:     width,
		height:    height,
		transform: transform,
		crs:       fmt.Sprintf("EPSG:%d", epsg),
	}, nil
}

func (s *Source) CRS() string              { return s.crs }
func (s *Source) Transform() raster.Affine { return s.transform }
func (s *Source) Size() (int, int)         { return s.width, s.height }
func (s *Source) Close() error             { return nil }

// Read copies the requested window out of the decoded frame.
func (s *Source) Read(win raster.Window) ([]float32, error) {
	if win.Col < 0 || win.Row < 0 ||
		win.Col+win.Width > s.width || win.Row+win.Height > s.height {
		return nil, fmt.Errorf("window %+v outside raster %dx%d", win, s.width, s.height)
	}
	out := make([]float32, win.Width*win.Height)
	for row := 0; row < win.Height; row++ {
		srcOff := (win.Row+row)*s.width + win.Col
		copy(out[row*win.Width:(row+1)*win.Width], s.data[srcOff:srcOff+win.Width])
	}
	return out, nil
}

// toFloat32 converts decoded pixel data to float32 samples. Sentinel bands
// are 16-bit grayscale; 8-bit grayscale is accepted for fixtures.
func toFloat32(img image.Image) ([]float32, int, int, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := make([]float32, width*height)

	switch m := img.(type) {
	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[y*width+x] = float32(m.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[y*width+x] = float32(m.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		return nil, 0, 0, fmt.Errorf("unsupported tiff pixel format %T", img)
	}
	return out, width, height, nil
}
