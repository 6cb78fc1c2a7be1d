package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Capture  CaptureConfig
	Tunnel   TunnelConfig
}

// ServerConfig holds HTTP server settings for the local API.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (the desktop shell runs on app:// or localhost)
}

// DatabaseConfig holds the embedded SQLite settings.
type DatabaseConfig struct {
	Path string // file path of the database; ":memory:" for an in-memory database
}

// CaptureConfig holds the capture/indexing provider API settings.
type CaptureConfig struct {
	BaseURL            string
	RequestTimeoutSec  int
	SessionTokenTTLSec int
}

// TunnelConfig holds the public tunnel settings for webhook delivery.
type TunnelConfig struct {
	Enabled bool
	Binary  string // cloudflared binary; looked up on PATH when not absolute
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8787"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", defaultDBPath()),
		},
		Capture: CaptureConfig{
			BaseURL:            getEnv("CAPTURE_BASE_URL", "https://api.capturehub.io"),
			RequestTimeoutSec:  getEnvInt("CAPTURE_REQUEST_TIMEOUT_SEC", 60),
			SessionTokenTTLSec: getEnvInt("CAPTURE_SESSION_TOKEN_TTL_SEC", 3600),
		},
		Tunnel: TunnelConfig{
			Enabled: getEnvBool("TUNNEL_ENABLED", true),
			Binary:  getEnv("TUNNEL_BINARY", "cloudflared"),
		},
	}
	return cfg, nil
}

// defaultDBPath puts the database under the user config dir, falling back to the working directory.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "screenloom.db"
	}
	return filepath.Join(dir, "screenloom", "screenloom.db")
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
