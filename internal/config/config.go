package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds settings shared by the CLI and the HTTP server.
// Command-line flags override these values.
type Config struct {
	// Audio
	SampleRate int
	SoundFont  string // path to an .sf2; empty selects the built-in FM engine

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Server
	Addr      string
	RateLimit float64 // compile requests per second
	MaxBody   int64   // bytes

	// Batch export
	Workers int
}

// Load reads the optional env files (".env" when none are given) and then
// the environment. Variables already set in the environment win over the
// files.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		SampleRate: getEnvInt("ABCPLAY_SAMPLE_RATE", 48000),
		SoundFont:  getEnv("ABCPLAY_SOUNDFONT", ""),
		LogLevel:   getEnv("ABCPLAY_LOG_LEVEL", "info"),
		LogFormat:  getEnv("ABCPLAY_LOG_FORMAT", "text"),
		Addr:       getEnv("ABCPLAY_ADDR", ":8080"),
		RateLimit:  getEnvFloat("ABCPLAY_RATE_LIMIT", 20),
		MaxBody:    int64(getEnvInt("ABCPLAY_MAX_BODY", 1<<20)),
		Workers:    getEnvInt("ABCPLAY_WORKERS", runtime.NumCPU()),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt falls back to the default for unset, malformed or non-positive values.
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

// UsesSoundFont reports whether playback should go through a SoundFont.
func (c *Config) UsesSoundFont() bool {
	return c.SoundFont != ""
}
