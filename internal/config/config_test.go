package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Env = %q, want %q", cfg.Env, EnvDevelopment)
	}
	if cfg.DatabasePath != "./data/feasts.db" {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "./data/feasts.db")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "text")
	}
	if cfg.Timezone != "Asia/Jerusalem" {
		t.Errorf("Timezone = %q, want %q", cfg.Timezone, "Asia/Jerusalem")
	}
	if cfg.MaxRangeYears != 50 {
		t.Errorf("MaxRangeYears = %d, want 50", cfg.MaxRangeYears)
	}
	if cfg.Location().String() != "Asia/Jerusalem" {
		t.Errorf("Location() = %s", cfg.Location())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "3000")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_PATH", "/data/test.db")
	t.Setenv("API_KEY", "secret-key-123")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("FEAST_TIMEZONE", "UTC")
	t.Setenv("MAX_RANGE_YEARS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Env = %q, want %q", cfg.Env, EnvProduction)
	}
	if cfg.DatabasePath != "/data/test.db" {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "/data/test.db")
	}
	if cfg.APIKey != "secret-key-123" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "secret-key-123")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "json")
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location() = %s, want UTC", cfg.Location())
	}
	if cfg.MaxRangeYears != 10 {
		t.Errorf("MaxRangeYears = %d, want 10", cfg.MaxRangeYears)
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("FEAST_TIMEZONE", "Atlantis/Capital")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with unknown timezone")
	}
	if !strings.Contains(err.Error(), "FEAST_TIMEZONE") {
		t.Errorf("error %q does not name FEAST_TIMEZONE", err)
	}
}

func validConfig() Config {
	return Config{
		Port:          8080,
		Env:           EnvDevelopment,
		DatabasePath:  "./data/test.db",
		LogLevel:      "info",
		LogFormat:     "text",
		Timezone:      "Asia/Jerusalem",
		MaxRangeYears: 50,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid development config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "valid production config",
			modify: func(c *Config) {
				c.Env = EnvProduction
				c.APIKey = "required-in-prod"
				c.LogFormat = "json"
			},
			wantErr: false,
		},
		{
			name:    "production requires API key",
			modify:  func(c *Config) { c.Env = EnvProduction },
			wantErr: true,
		},
		{
			name:    "invalid port - too low",
			modify:  func(c *Config) { c.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too high",
			modify:  func(c *Config) { c.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid environment",
			modify:  func(c *Config) { c.Env = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: true,
		},
		{
			name:    "empty database path",
			modify:  func(c *Config) { c.DatabasePath = "" },
			wantErr: true,
		},
		{
			name:    "empty timezone means Jerusalem",
			modify:  func(c *Config) { c.Timezone = "" },
			wantErr: false,
		},
		{
			name:    "unknown timezone",
			modify:  func(c *Config) { c.Timezone = "Nowhere/Special" },
			wantErr: true,
		},
		{
			name:    "zero range limit",
			modify:  func(c *Config) { c.MaxRangeYears = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"PORT", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err, want)
		}
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: EnvDevelopment}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}

	cfg.Env = EnvProduction
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{Env: EnvProduction}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}

	cfg.Env = EnvDevelopment
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}

// clearEnv unsets all config-related environment variables for the
// duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"PORT", "ENV", "DATABASE_PATH", "API_KEY",
		"LOG_LEVEL", "LOG_FORMAT", "FEAST_TIMEZONE", "MAX_RANGE_YEARS",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
