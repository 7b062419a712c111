package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	AuthSecret               string
	AccessTokenTTLMinutes    int
	DashboardCacheTTLSeconds int
	ReportTimezone           string
	LogLevel                 string
	Environment              string
	SeedAdminPassword        string
}

// Load reads .env when present and then the process environment. Values
// already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("DASHBOARD_CACHE_TTL_SECONDS", 30)
	v.SetDefault("REPORT_TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	for _, key := range []string{"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "AUTH_SECRET", "SEED_ADMIN_PASSWORD"} {
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}
	cacheTTL := v.GetInt("DASHBOARD_CACHE_TTL_SECONDS")
	if cacheTTL < 0 {
		cacheTTL = 30
	}

	return Config{
		Port:                     v.GetString("PORT"),
		AllowedOrigin:            v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:              v.GetString("DATABASE_URL"),
		RedisAddr:                v.GetString("REDIS_ADDR"),
		RedisPassword:            v.GetString("REDIS_PASSWORD"),
		RedisDB:                  v.GetInt("REDIS_DB"),
		AuthSecret:               strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes:    tokenTTL,
		DashboardCacheTTLSeconds: cacheTTL,
		ReportTimezone:           strings.TrimSpace(v.GetString("REPORT_TIMEZONE")),
		LogLevel:                 strings.ToLower(v.GetString("LOG_LEVEL")),
		Environment:              strings.ToLower(v.GetString("APP_ENV")),
		SeedAdminPassword:        v.GetString("SEED_ADMIN_PASSWORD"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) DashboardCacheTTL() time.Duration {
	return time.Duration(c.DashboardCacheTTLSeconds) * time.Second
}

// ReportLocation resolves REPORT_TIMEZONE; "Local" and "" mean the host zone.
func (c Config) ReportLocation() (*time.Location, error) {
	if c.ReportTimezone == "" || strings.EqualFold(c.ReportTimezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}
