package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Extraction ExtractionConfig
	Cache      CacheConfig
	Categorize CategorizeConfig
	Server     ServerConfig
	LogLevel   string
}

// ExtractionConfig bounds the work done per document.
type ExtractionConfig struct {
	MaxPages        int
	SoftMaxPages    int
	PageBatch       int
	Timeout         time.Duration
	EnablePdftotext bool
	EnableOCR       bool
}

// CacheConfig sizes the process-wide memo caches.
type CacheConfig struct {
	DateEntries     int
	CategoryEntries int
}

// CategorizeConfig controls categorization fan-out.
type CategorizeConfig struct {
	Workers     int
	ParallelMin int
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr        string
	MaxUploadMB int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Extraction: ExtractionConfig{
			MaxPages:        getEnvAsInt("STATEMENT_MAX_PAGES", 800),
			SoftMaxPages:    getEnvAsInt("STATEMENT_SOFT_MAX_PAGES", 100),
			PageBatch:       getEnvAsInt("STATEMENT_PAGE_BATCH", 10),
			Timeout:         getEnvAsDuration("STATEMENT_TIMEOUT", 2*time.Minute),
			EnablePdftotext: getEnvAsBool("ENABLE_PDFTOTEXT", true),
			EnableOCR:       getEnvAsBool("ENABLE_OCR", false),
		},
		Cache: CacheConfig{
			DateEntries:     getEnvAsInt("DATE_CACHE_SIZE", 4096),
			CategoryEntries: getEnvAsInt("CATEGORY_CACHE_SIZE", 8192),
		},
		Categorize: CategorizeConfig{
			Workers:     getEnvAsInt("CATEGORIZE_WORKERS", runtime.GOMAXPROCS(0)),
			ParallelMin: getEnvAsInt("CATEGORIZE_PARALLEL_MIN", 256),
		},
		Server: ServerConfig{
			Addr:        getEnv("SERVER_ADDR", ":8080"),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 50),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			MaxPages:        800,
			SoftMaxPages:    100,
			PageBatch:       10,
			Timeout:         2 * time.Minute,
			EnablePdftotext: true,
		},
		Cache:      CacheConfig{DateEntries: 4096, CategoryEntries: 8192},
		Categorize: CategorizeConfig{Workers: runtime.GOMAXPROCS(0), ParallelMin: 256},
		Server:     ServerConfig{Addr: ":8080", MaxUploadMB: 50},
		LogLevel:   "info",
	}
}

// Validate checks that limits are usable.
func (c *Config) Validate() error {
	if c.Extraction.MaxPages <= 0 {
		return errors.New("STATEMENT_MAX_PAGES must be positive")
	}
	if c.Extraction.SoftMaxPages > c.Extraction.MaxPages {
		return fmt.Errorf("STATEMENT_SOFT_MAX_PAGES (%d) exceeds STATEMENT_MAX_PAGES (%d)",
			c.Extraction.SoftMaxPages, c.Extraction.MaxPages)
	}
	if c.Extraction.PageBatch <= 0 {
		return errors.New("STATEMENT_PAGE_BATCH must be positive")
	}
	if c.Cache.DateEntries <= 0 || c.Cache.CategoryEntries <= 0 {
		return errors.New("cache sizes must be positive")
	}
	if c.Categorize.Workers <= 0 {
		c.Categorize.Workers = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
