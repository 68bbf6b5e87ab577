package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv     string
	ListenAddr string
	DataDir    string
	CacheDir   string
	OSMFile    string
	MaxDBConns int

	SearchTimeBudget time.Duration
	GapThresholdM    float64
	CondenseCutoffM  float64
	Workers          int

	NominatimURL       string
	NominatimUserAgent string
	CountryCodes       string
	OpenMeteoURL       string
}

// Load reads .env (when present) and the environment, then lets command line flags in args override both.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	fs.StringVar(&cfg.AppEnv, "env", getEnvWithDefault("APP_ENV", "development"), "application environment (development|production)")
	fs.StringVar(&cfg.ListenAddr, "listenaddr", getEnvWithDefault("LISTEN_ADDR", ":5000"), "server listen address")
	fs.StringVar(&cfg.DataDir, "data", getEnvWithDefault("GRAPH_DATA_DIR", "./data"), "directory of network.db and the condensed graph")
	fs.StringVar(&cfg.CacheDir, "cache", getEnvWithDefault("CACHE_DIR", "./data/cache"), "directory of the geocoding and weather cache")
	fs.StringVar(&cfg.OSMFile, "f", getEnvWithDefault("OSM_FILE", "flanders.osm.pbf"), "openstreetmap extract with the cycle junction network")
	fs.IntVar(&cfg.MaxDBConns, "dbconns", getEnvAsInt("DB_MAX_CONNS", 8), "max open connections to network.db")
	fs.DurationVar(&cfg.SearchTimeBudget, "budget", getEnvAsDuration("SEARCH_TIME_BUDGET", 30*time.Second), "loop search time budget per tolerance attempt")
	fs.Float64Var(&cfg.GapThresholdM, "gap", getEnvAsFloat("GAP_THRESHOLD_M", 250), "max gap in meters bridged when repairing relations")
	fs.Float64Var(&cfg.CondenseCutoffM, "cutoff", getEnvAsFloat("CONDENSE_CUTOFF_M", 15000), "max junction-to-junction distance in meters")
	fs.IntVar(&cfg.Workers, "workers", getEnvAsInt("WORKERS", runtime.NumCPU()), "condensation workers")
	fs.StringVar(&cfg.NominatimURL, "nominatim", getEnvWithDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"), "nominatim base url")
	fs.StringVar(&cfg.NominatimUserAgent, "useragent", getEnvWithDefault("NOMINATIM_USER_AGENT", "knooppuntx/1.0"), "user agent sent to nominatim")
	fs.StringVar(&cfg.CountryCodes, "countries", getEnvWithDefault("COUNTRY_CODES", "be,nl"), "country codes geocoding is restricted to")
	fs.StringVar(&cfg.OpenMeteoURL, "openmeteo", getEnvWithDefault("OPEN_METEO_URL", "https://api.open-meteo.com"), "open-meteo base url")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("GRAPH_DATA_DIR is required")
	}
	if c.SearchTimeBudget <= 0 {
		return errors.New("SEARCH_TIME_BUDGET must be positive")
	}
	if c.GapThresholdM <= 0 {
		return errors.New("GAP_THRESHOLD_M must be positive")
	}
	if c.CondenseCutoffM <= 0 {
		return errors.New("CONDENSE_CUTOFF_M must be positive")
	}
	if c.Workers < 1 {
		return errors.New("WORKERS must be at least 1")
	}
	if c.MaxDBConns < 1 {
		return errors.New("DB_MAX_CONNS must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
