package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr  string
	StoreMode   string
	DatabaseURL string
	MLTokenKey  string

	JWTSecret    string
	SessionTTL   time.Duration
	CookieDomain string
	CookieSecure bool

	MLClientID     string
	MLClientSecret string
	MLAuthURL      string
	MLTokenURL     string
	MLAPIBaseURL   string
	MLRedirectURI  string
	MLTimeout      time.Duration

	TelegramBotToken string
	TelegramChatID   string

	// Client-side settings used by ssctl.
	APIBaseURL     string
	RequestTimeout time.Duration
}

func Load() Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":5000"),
		StoreMode:   getEnv("STORE_MODE", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MLTokenKey:  getEnv("ML_TOKEN_KEY", ""),

		JWTSecret:    getEnv("JWT_SECRET", "change-this-secret"),
		SessionTTL:   getDuration("SESSION_TTL", 30*24*time.Hour),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getBool("COOKIE_SECURE", false),

		MLClientID:     getEnv("ML_CLIENT_ID", ""),
		MLClientSecret: getEnv("ML_CLIENT_SECRET", ""),
		MLAuthURL:      getEnv("ML_AUTH_URL", "https://auth.mercadolibre.com.ar/authorization"),
		MLTokenURL:     getEnv("ML_TOKEN_URL", "https://api.mercadolibre.com/oauth/token"),
		MLAPIBaseURL:   getEnv("ML_API_BASE_URL", "https://api.mercadolibre.com"),
		MLRedirectURI:  getEnv("ML_REDIRECT_URI", "http://localhost:5000/mercadolibre/callback"),
		MLTimeout:      getDuration("ML_TIMEOUT", 10*time.Second),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:5000"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
