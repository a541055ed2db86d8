package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Download: DownloadConfig{
			UserAgent: "test-agent",
			MaxConns:  10,
		},
		Resolver: ResolverConfig{
			Binary: "yt-dlp",
		},
		Transcode: TranscodeConfig{
			CRF: 23,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for port 0")
	}
}

func TestConfig_Validate_MissingUserAgent(t *testing.T) {
	cfg := validConfig()
	cfg.Download.UserAgent = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing user agent")
	}
}

func TestConfig_Validate_MissingResolverBinary(t *testing.T) {
	cfg := validConfig()
	cfg.Resolver.Binary = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing resolver binary")
	}
}

func TestConfig_Validate_CookiesWithoutFile(t *testing.T) {
	cfg := validConfig()
	cfg.Resolver.UseCookies = true
	cfg.Resolver.CookiesFile = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail when cookies enabled without a file")
	}
}

func TestConfig_Validate_CRFOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Transcode.CRF = 99
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for CRF 99")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "*" {
		t.Errorf("CORSOrigin = %q, want *", cfg.Server.CORSOrigin)
	}
	if cfg.Download.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (disabled)", cfg.Download.Timeout)
	}
	if cfg.Download.MaxConns != 10 || cfg.Download.MaxIdleConns != 5 {
		t.Errorf("pool = %d/%d, want 10/5", cfg.Download.MaxConns, cfg.Download.MaxIdleConns)
	}
	if !cfg.Download.ProxyFallback {
		t.Error("ProxyFallback should default to true")
	}
	if cfg.Resolver.Binary != "yt-dlp" {
		t.Errorf("Binary = %q, want yt-dlp", cfg.Resolver.Binary)
	}
	if cfg.Resolver.ShortLinkTimeout != 6*time.Second {
		t.Errorf("ShortLinkTimeout = %v, want 6s", cfg.Resolver.ShortLinkTimeout)
	}
	if cfg.History.Path != "" {
		t.Errorf("History.Path = %q, want empty (disabled)", cfg.History.Path)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
history:
  path: /tmp/history.db
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOWNLOAD_USER_AGENT", "env-agent")
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.History.Path != "/tmp/history.db" {
		t.Errorf("History.Path = %q, want value from file", cfg.History.Path)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100 (from env)", cfg.Server.Port)
	}
	if cfg.Download.UserAgent != "env-agent" {
		t.Errorf("UserAgent = %q, want env-agent (from env)", cfg.Download.UserAgent)
	}
}
