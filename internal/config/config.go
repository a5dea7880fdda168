package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr            string
	LogLevel            string
	JWTSecret           string
	JWTUser             string
	JWTPassword         string
	TLSCertFile         string
	TLSKeyFile          string
	Provider            string
	SearchTimeout       time.Duration
	HTTPTimeout         time.Duration
	NormalizeWorkers    int
	OfferLimit          int
	DisplayTimezone     string
	DuffelHost          string
	DuffelToken         string
	DuffelVersion       string
	AmadeusURL          string
	AmadeusClientId     string
	AmadeusClientSecret string
	TokenRefreshSkew    time.Duration
	ExchangeRateURL     string
	SourceCurrency      string
	TargetCurrency      string
	RateCacheTTL        time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	UpstreamRPS         float64
	UpstreamBurst       int
	DuffelRPS           float64
	AmadeusRPS          float64
	ExchangeRateRPS     float64
	SeedRoutesCSV       string
	StreamInterval      time.Duration

	// ConfigFile is the file viper read, empty when running on defaults + env.
	ConfigFile string
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("auth_user", "demo")
	v.SetDefault("auth_pass", "demo123")
	v.SetDefault("provider", "duffel")
	v.SetDefault("search_timeout", "20s")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("normalize_workers", 8)
	v.SetDefault("offer_limit", 100)
	v.SetDefault("display_timezone", "Asia/Kolkata")

	v.SetDefault("duffel_host", "https://api.duffel.com")
	v.SetDefault("duffel_version", "v2")
	v.SetDefault("amadeus_url", "https://test.api.amadeus.com")
	v.SetDefault("token_refresh_skew", "30s")

	v.SetDefault("exchange_rate_url", "https://api.exchangerate-api.com/v4/latest")
	v.SetDefault("source_currency", "EUR")
	v.SetDefault("target_currency", "INR")
	v.SetDefault("rate_cache_ttl", "10m")
	v.SetDefault("redis_db", 0)

	v.SetDefault("upstream_rps", 10)
	v.SetDefault("upstream_burst", 20)
	// 0 falls back to upstream_rps
	v.SetDefault("duffel_rps", 0)
	v.SetDefault("amadeus_rps", 10)
	v.SetDefault("exchange_rate_rps", 1)
	v.SetDefault("seed_routes_csv", "data/flights.csv")
	v.SetDefault("stream_interval", "30s")

	if path := os.Getenv("FLIGHTS_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		// Fallback to conventional locations for local dev
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/flights")
	}

	configFile := ""
	if err := v.ReadInConfig(); err == nil {
		configFile = v.ConfigFileUsed()
	} else {
		// only a missing file in the search paths means "run on defaults"
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.AutomaticEnv()

	var parseErr error
	duration := func(key string) time.Duration {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("bad %s: %w", key, err)
		}
		return d
	}
	searchTimeout := duration("search_timeout")
	httpTimeout := duration("http_timeout")
	skew := duration("token_refresh_skew")
	rateTTL := duration("rate_cache_ttl")
	streamInterval := duration("stream_interval")
	if parseErr != nil {
		return nil, parseErr
	}

	return &Config{
		HTTPAddr:            v.GetString("http_addr"),
		LogLevel:            v.GetString("log_level"),
		JWTSecret:           v.GetString("jwt_secret"),
		JWTUser:             v.GetString("auth_user"),
		JWTPassword:         v.GetString("auth_pass"),
		TLSCertFile:         os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:          os.Getenv("TLS_KEY_FILE"),
		Provider:            v.GetString("provider"),
		SearchTimeout:       searchTimeout,
		HTTPTimeout:         httpTimeout,
		NormalizeWorkers:    v.GetInt("normalize_workers"),
		OfferLimit:          v.GetInt("offer_limit"),
		DisplayTimezone:     v.GetString("display_timezone"),
		DuffelHost:          v.GetString("duffel_host"),
		DuffelToken:         v.GetString("duffel_token"),
		DuffelVersion:       v.GetString("duffel_version"),
		AmadeusURL:          v.GetString("amadeus_url"),
		AmadeusClientId:     v.GetString("amadeus_clientid"),
		AmadeusClientSecret: v.GetString("amadeus_clientsecret"),
		TokenRefreshSkew:    skew,
		ExchangeRateURL:     v.GetString("exchange_rate_url"),
		SourceCurrency:      v.GetString("source_currency"),
		TargetCurrency:      v.GetString("target_currency"),
		RateCacheTTL:        rateTTL,
		RedisAddr:           v.GetString("redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		UpstreamRPS:         v.GetFloat64("upstream_rps"),
		UpstreamBurst:       v.GetInt("upstream_burst"),
		DuffelRPS:           v.GetFloat64("duffel_rps"),
		AmadeusRPS:          v.GetFloat64("amadeus_rps"),
		ExchangeRateRPS:     v.GetFloat64("exchange_rate_rps"),
		SeedRoutesCSV:       v.GetString("seed_routes_csv"),
		StreamInterval:      streamInterval,
		ConfigFile:          configFile,
	}, nil
}
