package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is loaded once at process
// start and passed into component constructors; nothing reads the environment
// at request time.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Download  DownloadConfig  `yaml:"download"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Transcode TranscodeConfig `yaml:"transcode"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"PORT" default:"8000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"30m"`
	CORSOrigin   string        `yaml:"cors_origin" envconfig:"FRONTEND_ORIGIN" default:"*"`
}

// DownloadConfig holds outbound proxy-streaming configuration.
type DownloadConfig struct {
	// UserAgent is sent on every outbound request and forwarded to the
	// metadata resolver. Android Chrome tends to get progressive renditions.
	UserAgent string `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Linux; Android 10; SM-G973F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36"`

	// Timeout bounds a whole proxied transfer. Zero disables it; the
	// streamer still enforces a response-header timeout.
	Timeout time.Duration `yaml:"timeout" envconfig:"HTTP_TIMEOUT" default:"0"`

	HeaderTimeout time.Duration `yaml:"header_timeout" envconfig:"HTTP_HEADER_TIMEOUT" default:"30s"`
	MaxConns      int           `yaml:"max_conns" envconfig:"HTTP_MAX_CONNS" default:"10"`
	MaxIdleConns  int           `yaml:"max_idle_conns" envconfig:"HTTP_MAX_IDLE_CONNS" default:"5"`

	// ProxyFallback falls back to the fetch-transcode path when the direct
	// proxy attempt fails before any body bytes were sent.
	ProxyFallback bool `yaml:"proxy_fallback" envconfig:"DELIVERY_PROXY_FALLBACK" default:"true"`
}

// ResolverConfig holds configuration for the external metadata resolver.
type ResolverConfig struct {
	Binary           string        `yaml:"binary" envconfig:"RESOLVER_BINARY" default:"yt-dlp"`
	UseCookies       bool          `yaml:"use_cookies" envconfig:"USE_COOKIES" default:"false"`
	CookiesFile      string        `yaml:"cookies_file" envconfig:"COOKIES_FILE"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout" envconfig:"RESOLVER_PROBE_TIMEOUT" default:"45s"`
	DownloadTimeout  time.Duration `yaml:"download_timeout" envconfig:"RESOLVER_DOWNLOAD_TIMEOUT" default:"10m"`
	ShortLinkTimeout time.Duration `yaml:"short_link_timeout" envconfig:"SHORT_LINK_TIMEOUT" default:"6s"`
}

// TranscodeConfig holds fetch-transcode pipeline configuration.
type TranscodeConfig struct {
	TempPath            string `yaml:"temp_path" envconfig:"STORAGE_TEMP_PATH" default:"/tmp/videograb"`
	Preset              string `yaml:"preset" envconfig:"TRANSCODE_PRESET" default:"veryfast"`
	CRF                 int    `yaml:"crf" envconfig:"TRANSCODE_CRF" default:"23"`
	AudioBitrate        string `yaml:"audio_bitrate" envconfig:"TRANSCODE_AUDIO_BITRATE" default:"128k"`
	FilenameUnderscores bool   `yaml:"filename_underscores" envconfig:"FILENAME_UNDERSCORES" default:"false"`
}

// HistoryConfig holds delivery-history persistence configuration.
// An empty path disables the history store.
type HistoryConfig struct {
	Path string `yaml:"path" envconfig:"HISTORY_DB_PATH"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and sane.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Download.UserAgent == "" {
		return fmt.Errorf("DOWNLOAD_USER_AGENT is required")
	}
	if c.Download.MaxConns <= 0 {
		return fmt.Errorf("HTTP_MAX_CONNS must be positive")
	}
	if c.Resolver.Binary == "" {
		return fmt.Errorf("RESOLVER_BINARY is required")
	}
	if c.Resolver.UseCookies && c.Resolver.CookiesFile == "" {
		return fmt.Errorf("COOKIES_FILE is required when USE_COOKIES is set")
	}
	if c.Transcode.CRF < 0 || c.Transcode.CRF > 51 {
		return fmt.Errorf("invalid TRANSCODE_CRF %d", c.Transcode.CRF)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
