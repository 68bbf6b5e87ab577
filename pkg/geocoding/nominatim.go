package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lintang/knooppuntx/pkg/datastructure"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"go.uber.org/zap"
)

var (
	// ErrNotFound the service answered but knows no such address
	ErrNotFound = errors.New("address not found")
	// ErrUnavailable the service could not be reached after retries
	ErrUnavailable = errors.New("geocoding service unavailable")
)

type Result struct {
	Coords      datastructure.Coordinate
	DisplayName string
}

// Geocoder provides address-to-coordinates conversion
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

type Config struct {
	BaseURL      string
	CountryCodes string
	UserAgent    string
	Timeout      time.Duration
	RetryCount   int
	// initial and max backoff between retries
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// MinInterval spacing between outgoing requests, zero disables it
	MinInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://nominatim.openstreetmap.org",
		CountryCodes:   "be,nl",
		UserAgent:      "knooppuntx/1.0",
		Timeout:        10 * time.Second,
		RetryCount:     2,
		BackoffInitial: time.Second,
		BackoffMax:     4 * time.Second,
		MinInterval:    time.Second,
	}
}

type nominatimGeocoder struct {
	cfg         Config
	client      *httpclient.Client
	rateLimiter *time.Ticker
	log         *zap.Logger
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder geocoder backed by a Nominatim /search endpoint, retrying 5xx and transport errors
// with exponential backoff.
func NewNominatimGeocoder(cfg Config, log *zap.Logger) Geocoder {
	if log == nil {
		log = zap.NewNop()
	}
	backoff := heimdall.NewExponentialBackoff(cfg.BackoffInitial, cfg.BackoffMax, 2.0, cfg.BackoffInitial/4)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(cfg.Timeout),
		httpclient.WithRetryCount(cfg.RetryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)
	g := &nominatimGeocoder{cfg: cfg, client: client, log: log}
	if cfg.MinInterval > 0 {
		g.rateLimiter = time.NewTicker(cfg.MinInterval)
	}
	return g
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrNotFound
	}
	if g.rateLimiter != nil {
		select {
		case <-g.rateLimiter.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.cfg.CountryCodes != "" {
		params.Set("countrycodes", g.cfg.CountryCodes)
	}
	queryURL := strings.TrimSuffix(g.cfg.BaseURL, "/") + "/search?" + params.Encode()
	g.log.Debug("[GEOCODING] request", zap.String("address", address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn("[GEOCODING] request failed", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		g.log.Warn("[GEOCODING] unexpected status", zap.String("address", address), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", ErrUnavailable, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", ErrUnavailable, results[0].Lon)
	}
	return &Result{Coords: datastructure.NewCoordinate(lat, lon), DisplayName: results[0].DisplayName}, nil
}
