package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envVarPrefix = "VIDEOSLUG"

type Config struct {
	ListenAddr    string        `envconfig:"VIDEOSLUG_LISTEN_ADDR"    default:":8080"`
	DownloadsDir  string        `envconfig:"VIDEOSLUG_DOWNLOADS_DIR"  default:"./tmp"`
	DatabaseURL   string        `envconfig:"VIDEOSLUG_DATABASE_URL"   default:"postgres://localhost:5432/videoslug"`
	DownloaderBin string        `envconfig:"VIDEOSLUG_DOWNLOADER_BIN" default:"yt-dlp"`
	RegistryTTL   time.Duration `envconfig:"VIDEOSLUG_REGISTRY_TTL"   default:"1h"`
	GCInterval    time.Duration `envconfig:"VIDEOSLUG_GC_INTERVAL"    default:"15m"`
}

func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &c, nil
}

// VideosDir is the directory the downloader writes video files into.
func (c *Config) VideosDir() string {
	return filepath.Join(c.DownloadsDir, "videos")
}
