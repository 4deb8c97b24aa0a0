package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Search.DefaultCombinator != "and" {
		t.Errorf("DefaultCombinator = %q, want and", cfg.Search.DefaultCombinator)
	}
	if cfg.Search.FieldWeights["quote"] != "A" || cfg.Search.FieldWeights["name"] != "B" {
		t.Errorf("FieldWeights = %v", cfg.Search.FieldWeights)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("server:\n  port: 9999\nsearch:\n  locale: en-GB\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("QS_SEARCH_COMBINATOR", "or")
	t.Setenv("QS_SEARCH_THRESHOLD", "0.3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("file override lost: port = %d", cfg.Server.Port)
	}
	if cfg.Search.Locale != "en-GB" {
		t.Errorf("locale = %q, want en-GB", cfg.Search.Locale)
	}
	if cfg.Search.DefaultCombinator != "or" {
		t.Errorf("env override lost: combinator = %q", cfg.Search.DefaultCombinator)
	}
	if cfg.Search.RankThreshold != 0.3 {
		t.Errorf("env override lost: threshold = %v", cfg.Search.RankThreshold)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad combinator", func(c *Config) { c.Search.DefaultCombinator = "xor" }},
		{"bad weight label", func(c *Config) { c.Search.FieldWeights = map[string]string{"quote": "Z"} }},
		{"bad multiplier label", func(c *Config) { c.Search.WeightMultipliers = map[string]float64{"E": 1} }},
		{"zero multiplier", func(c *Config) { c.Search.WeightMultipliers = map[string]float64{"A": 0} }},
		{"duplicate multipliers", func(c *Config) {
			c.Search.WeightMultipliers = map[string]float64{"A": 0.5, "B": 0.5}
		}},
		{"negative threshold", func(c *Config) { c.Search.RankThreshold = -0.1 }},
		{"limit above max", func(c *Config) { c.Search.DefaultLimit = 500 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid configuration")
			}
		})
	}
}
