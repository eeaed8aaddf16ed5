package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	JWTSecret      string
	AccessTokenTTL time.Duration

	AllowedOrigins []string
	FrontendURL    string
	AppBaseURL     string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	EmailDebug   bool

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration

	FreeBoardLimit  int
	StreakThreshold float64
	LoginRateLimit  int
	TrustProxy      bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment take precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		ServerPort: getEnv("PORT", "8000"),

		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./planner.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 7*24*time.Hour),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001,http://localhost:8000")),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AppBaseURL:     getEnv("APP_BASE_URL", "http://localhost:8000"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Deep Focus Planner"),
		EmailDebug:   getBool("EMAIL_DEBUG", false),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),

		EmailVerificationTTL: getDuration("EMAIL_VERIFICATION_TTL", 24*time.Hour),
		PasswordResetTTL:     getDuration("PASSWORD_RESET_TTL", time.Hour),

		FreeBoardLimit:  getInt("FREE_BOARD_LIMIT", 3),
		StreakThreshold: getFloat("STREAK_THRESHOLD", 80),
		LoginRateLimit:  getInt("LOGIN_RATE_LIMIT", 10),
		TrustProxy:      getBool("TRUST_PROXY", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid number for %s=%q, using %v", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
