package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ota_reviews/internal/domain"
)

// SourceConfig is one OTA's connection settings. A source with no
// credential is left disabled unless explicitly enabled (mock mode).
type SourceConfig struct {
	BaseURL string
	APIKey  string
	Enabled bool
}

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	OutputDir   string

	Workers       int
	MaxResults    int
	SourceRPS     int
	SourceTimeout time.Duration
	RunDeadline   time.Duration
	CacheTTL      time.Duration

	Sources     []domain.Source
	SourceConfs map[domain.Source]SourceConfig

	// HotelIDs is the batch roster the reporter walks (HOTEL_IDS CSV).
	HotelIDs []string
}

var defaultBaseURLs = map[domain.Source]string{
	domain.SourceRakuten: "https://app.rakuten.co.jp/services/api/Travel",
	domain.SourceJalan:   "https://jws.jalan.net/APICommon",
	domain.SourceBooking: "https://distribution-xml.booking.com/2.7/json",
	domain.SourceExpedia: "https://api.ean.com/v3",
	domain.SourceAgoda:   "https://affiliateapi.agoda.com/api/v4",
}

func Load() Config {
	// best-effort .env for local runs; real deployments set the env
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	secs := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Second
	}

	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/ota_reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		OutputDir:     env("OUTPUT_DIR", "./output"),
		Workers:       atoi("FETCH_WORKERS", 5),
		MaxResults:    atoi("MAX_RESULTS_PER_SOURCE", 100),
		SourceRPS:     atoi("SOURCE_RPS", 5),
		SourceTimeout: secs("SOURCE_TIMEOUT_SECONDS", 30),
		RunDeadline:   secs("RUN_DEADLINE_SECONDS", 120),
		CacheTTL:      secs("CACHE_TTL_SECONDS", 900),
	}

	c.SourceConfs = map[domain.Source]SourceConfig{
		domain.SourceRakuten: sourceConf(domain.SourceRakuten, "RAKUTEN_APP_ID"),
		domain.SourceJalan:   sourceConf(domain.SourceJalan, "JALAN_API_KEY"),
		domain.SourceBooking: sourceConf(domain.SourceBooking, "BOOKING_API_KEY"),
		domain.SourceExpedia: sourceConf(domain.SourceExpedia, "EXPEDIA_API_KEY"),
		domain.SourceAgoda:   sourceConf(domain.SourceAgoda, "AGODA_API_KEY"),
	}
	c.Sources = parseSources(env("OTA_SOURCES", ""), c.SourceConfs)
	for _, part := range strings.Split(env("HOTEL_IDS", ""), ",") {
		if id := strings.TrimSpace(part); id != "" {
			c.HotelIDs = append(c.HotelIDs, id)
		}
	}

	if len(c.Sources) == 0 {
		log.Warn().Msg("no OTA sources enabled; set OTA_SOURCES or per-source API keys")
	}
	return c
}

// EnabledSources filters a requested source list down to enabled ones,
// preserving request order. An empty request means every enabled
// source in configuration order.
func (c Config) EnabledSources(requested []domain.Source) []domain.Source {
	if len(requested) == 0 {
		return c.Sources
	}
	out := make([]domain.Source, 0, len(requested))
	for _, s := range requested {
		if c.SourceConfs[s].Enabled {
			out = append(out, s)
		}
	}
	return out
}

func sourceConf(src domain.Source, keyEnv string) SourceConfig {
	upper := strings.ToUpper(string(src))
	key := os.Getenv(keyEnv)
	enabled := key != ""
	if v := os.Getenv(upper + "_ENABLED"); v != "" {
		enabled = v == "1" || strings.EqualFold(v, "true")
	}
	return SourceConfig{
		BaseURL: env(upper+"_BASE_URL", defaultBaseURLs[src]),
		APIKey:  key,
		Enabled: enabled,
	}
}

// parseSources reads the OTA_SOURCES CSV; with it unset, every enabled
// source joins in canonical order.
func parseSources(csv string, confs map[domain.Source]SourceConfig) []domain.Source {
	if csv == "" {
		var out []domain.Source
		for _, s := range domain.AllSources {
			if confs[s].Enabled {
				out = append(out, s)
			}
		}
		return out
	}
	var out []domain.Source
	for _, part := range strings.Split(csv, ",") {
		s := domain.Source(strings.ToLower(strings.TrimSpace(part)))
		if !s.Valid() {
			log.Warn().Str("source", string(s)).Msg("unknown OTA source in OTA_SOURCES")
			continue
		}
		out = append(out, s)
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
