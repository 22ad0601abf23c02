// Package settings loads service configuration from the environment,
// with an optional .env file for local development.
package settings

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Settings struct {
	GoogleAPIKey string
	Addr         string
	CacheTTL     time.Duration
	CORSOrigins  []string
	ConfigDir    string
	LayoutsPath  string
	Debug        bool
}

// Load reads settings from the environment. A missing .env file is
// fine; explicit environment variables always win because godotenv
// does not overwrite them.
func Load() Settings {
	_ = godotenv.Load()

	s := Settings{
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		Addr:         os.Getenv("HTTP_ADDR"),
		CacheTTL:     time.Second,
		ConfigDir:    os.Getenv("CONFIG_STORAGE_PATH"),
		LayoutsPath:  os.Getenv("LAYOUT_STORAGE_PATH"),
		Debug:        os.Getenv("DEBUG") == "1" || strings.EqualFold(os.Getenv("DEBUG"), "true"),
	}

	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.ConfigDir == "" {
		s.ConfigDir = "data/configs"
	}
	if s.LayoutsPath == "" {
		s.LayoutsPath = "data/layouts.yaml"
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			s.CacheTTL = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				s.CORSOrigins = append(s.CORSOrigins, origin)
			}
		}
	}
	return s
}

// CORSAllowAll reports whether any origin may call the API (dev mode).
func (s Settings) CORSAllowAll() bool {
	return len(s.CORSOrigins) == 0 || (len(s.CORSOrigins) == 1 && s.CORSOrigins[0] == "*")
}
