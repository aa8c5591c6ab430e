package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", c.ListenAddr)
	}
	if c.DownloaderBin != "yt-dlp" {
		t.Errorf("DownloaderBin = %q, want yt-dlp", c.DownloaderBin)
	}
	if c.RegistryTTL != time.Hour {
		t.Errorf("RegistryTTL = %v, want 1h", c.RegistryTTL)
	}
	if got, want := c.VideosDir(), filepath.Join("./tmp", "videos"); got != want {
		t.Errorf("VideosDir() = %q, want %q", got, want)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VIDEOSLUG_LISTEN_ADDR", ":9999")
	t.Setenv("VIDEOSLUG_DOWNLOADS_DIR", "/data")
	t.Setenv("VIDEOSLUG_GC_INTERVAL", "90s")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", c.ListenAddr)
	}
	if c.VideosDir() != filepath.Join("/data", "videos") {
		t.Errorf("VideosDir() = %q", c.VideosDir())
	}
	if c.GCInterval != 90*time.Second {
		t.Errorf("GCInterval = %v, want 90s", c.GCInterval)
	}
}
