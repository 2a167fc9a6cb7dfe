// Package config loads the API settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the whole application.
type Config struct {
	// Server
	Port     string // API listen port
	GinMode  string // gin mode (debug, release, test)
	LogLevel string // debug, info, warn, error

	// CORS
	CORSAllowedOrigins string // comma separated allowed origins

	// Limits
	MaxFileSize        int64         // largest decoded upload in bytes
	LegacyMaxBodyBytes int64         // raw body cap of POST /api/convert
	ConversionTimeout  time.Duration // upper bound of one conversion

	// Conversion
	WorkDir         string // root of the per-request scratch directories
	FFmpegPath      string // ffmpeg binary
	SofficePath     string // LibreOffice binary
	FormatTablePath string // optional YAML override of the format table

	// Rate limiting, disabled when the address is empty
	RateLimitRedisAddr     string
	RateLimitRedisPassword string
	RateLimitPerMinute     int
}

// Load reads the configuration from the environment. A .env.local file is
// read first when present.
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		// Server
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// CORS
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// Limits
		MaxFileSize:        getEnvAsInt64("MAX_FILE_SIZE", 104857600),           // 100MiB
		LegacyMaxBodyBytes: getEnvAsInt64("LEGACY_MAX_BODY_BYTES", 4*1000*1000), // 4MB
		ConversionTimeout:  time.Duration(getEnvAsInt("CONVERSION_TIMEOUT_SECONDS", 300)) * time.Second,

		// Conversion
		WorkDir:         getEnv("WORK_DIR", ""),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		SofficePath:     getEnv("SOFFICE_PATH", "soffice"),
		FormatTablePath: getEnv("FORMAT_TABLE_PATH", ""),

		// Rate limiting
		RateLimitRedisAddr:     getEnv("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPassword: getEnv("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitPerMinute:     getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate checks the settings. Release mode is stricter than local
// development.
func (c *Config) Validate() error {
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.LegacyMaxBodyBytes <= 0 {
		return fmt.Errorf("LEGACY_MAX_BODY_BYTES must be positive")
	}
	if c.ConversionTimeout <= 0 {
		return fmt.Errorf("CONVERSION_TIMEOUT_SECONDS must be positive")
	}
	if c.RateLimitRedisAddr != "" && c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive when rate limiting is enabled")
	}

	if c.GinMode == "release" {
		if c.FFmpegPath == "" {
			return fmt.Errorf("FFMPEG_PATH is required in release mode")
		}
		if c.SofficePath == "" {
			return fmt.Errorf("SOFFICE_PATH is required in release mode")
		}
		if strings.Contains(c.CORSAllowedOrigins, "*") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS must list explicit origins in release mode")
		}
	}

	return nil
}

// AllowedOrigins splits CORSAllowedOrigins into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// getEnv returns the variable or defaultValue when it is unset or empty.
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads the variable as an int.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 reads the variable as an int64.
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
