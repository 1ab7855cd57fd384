package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type GeocoderCfg struct {
	Provider  string
	URL       string
	APIKey    string
	Country   string
	UserAgent string
	Timeout   time.Duration
	RPS       float64
	Burst     int
}

type CatalogCfg struct {
	Driver      string
	File        string
	RedisKey    string
	DatabaseURL string
}

type RefreshCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type EventsCfg struct {
	Enabled bool
	Topic   string
	Brokers string
}

type Config struct {
	Addr        string
	LogLevel    string
	LogConsole  bool
	LogSampleN  int
	ServiceName string

	MaxRadiusKm     float64
	DefaultRadiusKm float64
	H3Res           int

	SourceTimeout    time.Duration
	SearchTimeout    time.Duration
	SourceMaxWorkers int
	SourcesFile      string

	RedisAddr string

	Geocoder GeocoderCfg
	Catalog  CatalogCfg
	Refresh  RefreshCfg
	Events   EventsCfg
}

func FromEnv() Config {
	maxRadius := getfloat("MAX_RADIUS_KM", 20)
	if maxRadius <= 0 {
		maxRadius = 20
	}
	defRadius := getfloat("DEFAULT_RADIUS_KM", 5)
	if defRadius <= 0 || defRadius > maxRadius {
		defRadius = min(5, maxRadius)
	}

	res := getint("H3_RES", 7)
	if res < 0 || res > 15 {
		res = 7
	}

	workers := getint("SOURCE_MAX_WORKERS", 8)
	if workers < 1 {
		workers = 1
	}

	brokers := getenv("KAFKA_BROKERS", "localhost:9092")

	return Config{
		Addr:        getenv("ADDR", ":8000"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogConsole:  getbool("LOG_CONSOLE", false),
		LogSampleN:  getint("LOG_SAMPLE_N", 0),
		ServiceName: getenv("SERVICE_NAME", "supermarkt-search"),

		MaxRadiusKm:     maxRadius,
		DefaultRadiusKm: defRadius,
		H3Res:           res,

		SourceTimeout:    getduration("SOURCE_TIMEOUT", 5*time.Second),
		SearchTimeout:    getduration("SEARCH_TIMEOUT", 10*time.Second),
		SourceMaxWorkers: workers,
		SourcesFile:      getenv("SOURCES_FILE", "data/sources.json"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		Geocoder: GeocoderCfg{
			Provider:  strings.ToLower(getenv("GEOCODER_PROVIDER", "nominatim")),
			URL:       getenv("GEOCODER_URL", ""),
			APIKey:    getenv("GEOCODER_API_KEY", ""),
			Country:   getenv("GEOCODER_COUNTRY", "nl"),
			UserAgent: getenv("GEOCODER_USER_AGENT", "supermarkt-search/1.0"),
			Timeout:   getduration("GEOCODER_TIMEOUT", 5*time.Second),
			RPS:       getfloat("GEOCODER_RPS", 1),
			Burst:     getint("GEOCODER_BURST", 1),
		},
		Catalog: CatalogCfg{
			Driver:      strings.ToLower(getenv("CATALOG_DRIVER", "file")),
			File:        getenv("CATALOG_FILE", "data/stores.json"),
			RedisKey:    getenv("CATALOG_REDIS_KEY", "catalog:stores"),
			DatabaseURL: getenv("DATABASE_URL", ""),
		},
		Refresh: RefreshCfg{
			Enabled: getbool("CATALOG_REFRESH_ENABLED", false),
			Topic:   getenv("CATALOG_TOPIC", "catalog-updates"),
			Brokers: brokers,
			GroupID: getenv("KAFKA_GROUP_ID", "supermarkt-catalog"),
		},
		Events: EventsCfg{
			Enabled: getbool("SEARCH_EVENTS_ENABLED", false),
			Topic:   getenv("SEARCH_EVENTS_TOPIC", "search-events"),
			Brokers: brokers,
		},
	}
}

// Brokers splits a comma-separated broker list, dropping blanks.
func Brokers(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return def
}
