package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Model: ModelConfig{MaxTokens: 256},
		Session: SessionConfig{
			TimeoutSeconds: 3600,
			SummaryTrigger: 10,
		},
		Guardrails: GuardrailsConfig{
			EnableCrisisDetection: true,
			RiskThreshold:         0.75,
			CrisisKeywords:        DefaultCrisisKeywords,
			SuicideHotline:        "988",
			CrisisText:            "741741",
			Emergency:             "911",
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != "8000" {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Session.TimeoutSeconds != 3600 {
		t.Errorf("session.timeout_seconds = %d, want 3600", cfg.Session.TimeoutSeconds)
	}
	if cfg.Session.SummaryTrigger != 10 {
		t.Errorf("session.summary_trigger = %d, want 10", cfg.Session.SummaryTrigger)
	}
	if cfg.Guardrails.RiskThreshold != 0.75 {
		t.Errorf("guardrails.risk_threshold = %v, want 0.75", cfg.Guardrails.RiskThreshold)
	}
	if len(cfg.Guardrails.CrisisKeywords) != len(DefaultCrisisKeywords) {
		t.Errorf("crisis keywords = %d entries, want %d", len(cfg.Guardrails.CrisisKeywords), len(DefaultCrisisKeywords))
	}
	if !cfg.Guardrails.EnableCrisisDetection {
		t.Error("crisis detection should default to enabled")
	}
	if !cfg.History.Enabled || cfg.History.DBPath != "history.db" {
		t.Errorf("unexpected history defaults: %+v", cfg.History)
	}
}

func TestLoad_ConfigPathFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9090"
model:
  model: test-model
session:
  timeout_seconds: 120
guardrails:
  suicide_hotline: "111"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("server.port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Model.Model != "test-model" {
		t.Errorf("model.model = %q, want test-model", cfg.Model.Model)
	}
	if cfg.Session.TimeoutSeconds != 120 {
		t.Errorf("session.timeout_seconds = %d, want 120", cfg.Session.TimeoutSeconds)
	}
	if cfg.Guardrails.SuicideHotline != "111" {
		t.Errorf("guardrails.suicide_hotline = %q, want 111", cfg.Guardrails.SuicideHotline)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server.host = %q, want default", cfg.Server.Host)
	}
}

func TestLoad_MissingConfigPathFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing CONFIG_PATH file")
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"risk threshold above one", func(c *Config) { c.Guardrails.RiskThreshold = 1.5 }},
		{"risk threshold negative", func(c *Config) { c.Guardrails.RiskThreshold = -0.1 }},
		{"detection enabled without keywords", func(c *Config) { c.Guardrails.CrisisKeywords = nil }},
		{"blank keyword", func(c *Config) { c.Guardrails.CrisisKeywords = []string{"suicidio", "  "} }},
		{"missing hotline", func(c *Config) { c.Guardrails.SuicideHotline = "" }},
		{"missing crisis text", func(c *Config) { c.Guardrails.CrisisText = "" }},
		{"missing emergency", func(c *Config) { c.Guardrails.Emergency = "" }},
		{"zero timeout", func(c *Config) { c.Session.TimeoutSeconds = 0 }},
		{"zero summary trigger", func(c *Config) { c.Session.SummaryTrigger = 0 }},
		{"zero max tokens", func(c *Config) { c.Model.MaxTokens = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.HasPrefix(err.Error(), "invalid configuration:") {
				t.Errorf("error %q does not carry the invalid configuration prefix", err)
			}
		})
	}
}

func TestValidate_DisabledDetectionAllowsEmptyKeywords(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.EnableCrisisDetection = false
	cfg.Guardrails.CrisisKeywords = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
