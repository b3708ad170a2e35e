package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Media    MediaConfig    `yaml:"media"`
	Limits   LimitsConfig   `yaml:"limits"`
	Probe    ProbeConfig    `yaml:"probe"`
	Captions CaptionsConfig `yaml:"captions"`
	Playback PlaybackConfig `yaml:"playback"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MediaConfig struct {
	BlobDir       string `yaml:"blob_dir"`
	ThumbnailDir  string `yaml:"thumbnail_dir"`
	CacheCapacity int    `yaml:"cache_capacity"`
	CacheMaxSize  int64  `yaml:"cache_max_size"` // bytes
}

type LimitsConfig struct {
	MaxImages       int     `yaml:"max_images"`
	MaxVideos       int     `yaml:"max_videos"`
	MaxVideoSeconds float64 `yaml:"max_video_seconds"`
	MaxUploadBytes  int64   `yaml:"max_upload_bytes"`
}

type ProbeConfig struct {
	FFprobePath   string        `yaml:"ffprobe_path"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheCapacity int           `yaml:"cache_capacity"`
}

type CaptionsConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type PlaybackConfig struct {
	FadeTick time.Duration `yaml:"fade_tick"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         6541,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		},
		Database: DatabaseConfig{
			Path: "data/slidecast.db",
		},
		Media: MediaConfig{
			BlobDir:       "data/media",
			ThumbnailDir:  "data/thumbnails",
			CacheCapacity: 500,
			CacheMaxSize:  128 * 1024 * 1024, // 128 MB
		},
		Limits: LimitsConfig{
			MaxImages:       30,
			MaxVideos:       1,
			MaxVideoSeconds: 30,
			MaxUploadBytes:  256 * 1024 * 1024,
		},
		Probe: ProbeConfig{
			FFprobePath:   "",
			Timeout:       10 * time.Second,
			CacheCapacity: 256,
		},
		Captions: CaptionsConfig{
			BaseURL: "",
			APIKey:  "",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Playback: PlaybackConfig{
			FadeTick: 50 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
