package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/logging"
)

// maxImageBytes caps a single GetMap response.
const maxImageBytes = 32 << 20

// Fetcher downloads WMS basemap images. Responses are cached by request URL.
type Fetcher struct {
	client *http.Client
	cache  *ristretto.Cache
	log    *logging.Logger
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration, log *logging.Logger) (*Fetcher, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     256 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating basemap cache: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		cache:  cache,
		log:    log,
	}, nil
}

// GetMapURL builds a WMS 1.3.0 GetMap request for bbox in the descriptor's CRS.
func GetMapURL(d basemap.Descriptor, bbox orb.Bound, width, height int) string {
	q := url.Values{}
	q.Set("SERVICE", "WMS")
	q.Set("VERSION", "1.3.0")
	q.Set("REQUEST", "GetMap")
	q.Set("LAYERS", d.RemoteLayer)
	q.Set("STYLES", "")
	q.Set("CRS", d.CRS)
	q.Set("BBOX", strings.Join([]string{ftoa(bbox.Min[0]), ftoa(bbox.Min[1]), ftoa(bbox.Max[0]), ftoa(bbox.Max[1])}, ","))
	q.Set("WIDTH", strconv.Itoa(width))
	q.Set("HEIGHT", strconv.Itoa(height))
	q.Set("FORMAT", "image/png")
	q.Set("TRANSPARENT", "TRUE")
	return joinQuery(d.Endpoint, q)
}

// CapabilitiesURL builds a WMS GetCapabilities request.
func CapabilitiesURL(endpoint string) string {
	q := url.Values{}
	q.Set("SERVICE", "WMS")
	q.Set("REQUEST", "GetCapabilities")
	return joinQuery(endpoint, q)
}

func joinQuery(endpoint string, q url.Values) string {
	switch {
	case strings.HasSuffix(endpoint, "?"), strings.HasSuffix(endpoint, "&"):
		return endpoint + q.Encode()
	case strings.Contains(endpoint, "?"):
		return endpoint + "&" + q.Encode()
	}
	return endpoint + "?" + q.Encode()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GetMap returns the encoded basemap image for bbox. Only WMS sources are
// fetched.
func (f *Fetcher) GetMap(ctx context.Context, d basemap.Descriptor, bbox orb.Bound, width, height int) ([]byte, error) {
	if d.Provider != basemap.ProviderWMS {
		return nil, fmt.Errorf("basemap provider %q is not fetched", d.Provider)
	}
	u := GetMapURL(d, bbox, width, height)
	if v, ok := f.cache.Get(u); ok {
		if data, ok := v.([]byte); ok {
			return data, nil
		}
	}

	data, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("basemap response is not an image: %w", err)
	}
	f.cache.Set(u, data, int64(len(data)))
	f.log.Debug("basemap fetched", "layer", d.RemoteLayer, "bytes", len(data))
	return data, nil
}

// Probe checks that a WMS endpoint answers GetCapabilities. Tile sources
// are not probed.
func (f *Fetcher) Probe(ctx context.Context, d basemap.Descriptor) error {
	if d.Provider != basemap.ProviderWMS {
		return nil
	}
	_, err := f.get(ctx, CapabilitiesURL(d.Endpoint))
	return err
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wms request failed: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}
