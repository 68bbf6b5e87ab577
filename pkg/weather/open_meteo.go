package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
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

const (
	MaxForecastDays = 16
	hourLayout      = "2006-01-02T15:04"
)

var (
	ErrUnavailable        = errors.New("weather service unavailable")
	ErrForecastOutOfRange = errors.New("requested time is outside the forecast range")
)

// Provider wind at a point, now or at a planned hour.
type Provider interface {
	WindNow(ctx context.Context, lat, lon float64) (datastructure.WindSample, error)
	WindAt(ctx context.Context, lat, lon float64, at time.Time) (datastructure.WindSample, error)
}

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RetryCount     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.open-meteo.com",
		Timeout:        10 * time.Second,
		RetryCount:     2,
		BackoffInitial: time.Second,
		BackoffMax:     4 * time.Second,
	}
}

type OpenMeteo struct {
	cfg    Config
	client *httpclient.Client
	log    *zap.Logger
	now    func() time.Time
}

func NewOpenMeteo(cfg Config, log *zap.Logger) *OpenMeteo {
	if log == nil {
		log = zap.NewNop()
	}
	backoff := heimdall.NewExponentialBackoff(cfg.BackoffInitial, cfg.BackoffMax, 2.0, cfg.BackoffInitial/4)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(cfg.Timeout),
		httpclient.WithRetryCount(cfg.RetryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)
	return &OpenMeteo{cfg: cfg, client: client, log: log, now: time.Now}
}

type currentResponse struct {
	Current struct {
		Time          string  `json:"time"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
	} `json:"current"`
}

type hourlyResponse struct {
	Hourly struct {
		Time          []string  `json:"time"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
		WindDirection []float64 `json:"wind_direction_10m"`
	} `json:"hourly"`
}

func (o *OpenMeteo) WindNow(ctx context.Context, lat, lon float64) (datastructure.WindSample, error) {
	params := o.baseParams(lat, lon)
	params.Set("current", "wind_speed_10m,wind_direction_10m")

	var body currentResponse
	if err := o.get(ctx, params, &body); err != nil {
		return datastructure.WindSample{}, err
	}
	observed, err := time.ParseInLocation(hourLayout, body.Current.Time, time.UTC)
	if err != nil {
		observed = o.now().UTC()
	}
	return datastructure.WindSample{
		Speed:      math.Max(0, body.Current.WindSpeed),
		Direction:  normalize(body.Current.WindDirection),
		ObservedAt: observed,
	}, nil
}

// WindAt hourly forecast for the hour of at. Falls back to the closest listed hour when the
// exact hour is missing.
func (o *OpenMeteo) WindAt(ctx context.Context, lat, lon float64, at time.Time) (datastructure.WindSample, error) {
	at = at.UTC()
	// forecast_days counts calendar days starting today at 00:00 UTC
	day := 24 * time.Hour
	daysAhead := int(at.Truncate(day).Sub(o.now().UTC().Truncate(day)).Hours() / 24)
	if daysAhead >= MaxForecastDays {
		return datastructure.WindSample{}, ErrForecastOutOfRange
	}
	days := min(max(daysAhead+1, 1), MaxForecastDays)

	params := o.baseParams(lat, lon)
	params.Set("hourly", "wind_speed_10m,wind_direction_10m")
	params.Set("forecast_days", strconv.Itoa(days))

	var body hourlyResponse
	if err := o.get(ctx, params, &body); err != nil {
		return datastructure.WindSample{}, err
	}
	h := body.Hourly
	n := min(len(h.Time), len(h.WindSpeed), len(h.WindDirection))
	if n == 0 {
		return datastructure.WindSample{}, fmt.Errorf("%w: empty hourly forecast", ErrUnavailable)
	}

	target := at.Truncate(time.Hour)
	best, bestDiff := -1, time.Duration(math.MaxInt64)
	var bestTime time.Time
	for i := 0; i < n; i++ {
		t, err := time.ParseInLocation(hourLayout, h.Time[i], time.UTC)
		if err != nil {
			continue
		}
		diff := t.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff, bestTime = i, diff, t
		}
		if diff == 0 {
			break
		}
	}
	if best < 0 {
		return datastructure.WindSample{}, fmt.Errorf("%w: unparsable forecast hours", ErrUnavailable)
	}
	if bestDiff > 0 {
		o.log.Debug("forecast hour missing, using closest", zap.Time("target", target), zap.Time("used", bestTime))
	}
	return datastructure.WindSample{
		Speed:      math.Max(0, h.WindSpeed[best]),
		Direction:  normalize(h.WindDirection[best]),
		ObservedAt: bestTime,
		Forecast:   true,
	}, nil
}

func (o *OpenMeteo) baseParams(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 5, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 5, 64))
	params.Set("wind_speed_unit", "ms")
	params.Set("timezone", "UTC")
	return params
}

func (o *OpenMeteo) get(ctx context.Context, params url.Values, out any) error {
	queryURL := strings.TrimSuffix(o.cfg.BaseURL, "/") + "/v1/forecast?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		o.log.Warn("open-meteo request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		o.log.Warn("open-meteo unexpected status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
