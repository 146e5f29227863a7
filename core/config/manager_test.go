package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Admission.Window != time.Minute {
		t.Errorf("Admission.Window: got %v, want 1m", cfg.Admission.Window)
	}
	if cfg.Admission.MaxRequests != 50 {
		t.Errorf("Admission.MaxRequests: got %d, want 50", cfg.Admission.MaxRequests)
	}
	if cfg.Budget.DocumentTokens != 80000 {
		t.Errorf("Budget.DocumentTokens: got %d, want 80000", cfg.Budget.DocumentTokens)
	}
	if cfg.Budget.CharsPerToken != 4 {
		t.Errorf("Budget.CharsPerToken: got %d, want 4", cfg.Budget.CharsPerToken)
	}
	if cfg.Providers.Default != "anthropic" {
		t.Errorf("Providers.Default: got %s, want anthropic", cfg.Providers.Default)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestManagerGetBeforeLoad(t *testing.T) {
	m := NewManager("", nil)

	cfg := m.Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Providers.Default != "anthropic" {
		t.Error("default provider should be anthropic")
	}
}

func TestManagerLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greenroom.yaml")
	content := `
admission:
  max_requests: 12
  max_input_tokens: 9000
budget:
  document_tokens: 40000
providers:
  default: openai
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := m.Get()
	if cfg.Admission.MaxRequests != 12 {
		t.Errorf("Admission.MaxRequests: got %d, want 12", cfg.Admission.MaxRequests)
	}
	if cfg.Admission.MaxInputTokens != 9000 {
		t.Errorf("Admission.MaxInputTokens: got %d, want 9000", cfg.Admission.MaxInputTokens)
	}
	if cfg.Budget.DocumentTokens != 40000 {
		t.Errorf("Budget.DocumentTokens: got %d, want 40000", cfg.Budget.DocumentTokens)
	}
	if cfg.Providers.Default != "openai" {
		t.Errorf("Providers.Default: got %s, want openai", cfg.Providers.Default)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Admission.Window != time.Minute {
		t.Errorf("Admission.Window: got %v, want default 1m", cfg.Admission.Window)
	}
	if cfg.Budget.ChatTokens != 24000 {
		t.Errorf("Budget.ChatTokens: got %d, want default 24000", cfg.Budget.ChatTokens)
	}
}

func TestManagerLoadMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
}

func TestManagerLoadInvalidKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greenroom.yaml")
	if err := os.WriteFile(path, []byte("admission:\n  max_requests: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path, nil)
	before := m.Get()

	if err := m.Load(); err == nil {
		t.Fatal("expected a validation error")
	}
	if m.Get() != before {
		t.Error("failed load must not replace the snapshot")
	}
}

func TestManagerEnvironmentOverride(t *testing.T) {
	t.Setenv("GREENROOM_DEFAULT_PROVIDER", "google")
	t.Setenv("GREENROOM_ADMISSION_MAX_REQUESTS", "7")

	m := NewManager("", nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := m.Get()
	if cfg.Providers.Default != "google" {
		t.Errorf("Providers.Default: got %s, want google", cfg.Providers.Default)
	}
	if cfg.Admission.MaxRequests != 7 {
		t.Errorf("Admission.MaxRequests: got %d, want 7", cfg.Admission.MaxRequests)
	}
}

func TestManagerOnChange(t *testing.T) {
	m := NewManager("", nil)

	var seen *Config
	m.OnChange(func(cfg *Config) { seen = cfg })

	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if seen == nil {
		t.Fatal("OnChange callback not invoked")
	}
	if seen != m.Get() {
		t.Error("callback should receive the published snapshot")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero document quota", func(c *Config) { c.Budget.DocumentTokens = 0 }},
		{"quotas exceed ceiling", func(c *Config) { c.Budget.TotalCeilingTokens = 1000 }},
		{"headroom eats ceiling", func(c *Config) { c.Budget.ResponseHeadroomTokens = c.Budget.TotalCeilingTokens }},
		{"zero window", func(c *Config) { c.Admission.Window = 0 }},
		{"negative requests", func(c *Config) { c.Admission.MaxRequests = -1 }},
		{"unknown provider", func(c *Config) { c.Providers.Default = "mystery" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestSettingsConversions(t *testing.T) {
	cfg := Default()

	admission := cfg.AdmissionSettings()
	if admission.Window != cfg.Admission.Window || admission.MaxRequests != cfg.Admission.MaxRequests {
		t.Error("AdmissionSettings lost fields")
	}

	budget := cfg.BudgetSettings()
	if budget.DocumentTokens != cfg.Budget.DocumentTokens || budget.CharsPerToken != cfg.Budget.CharsPerToken {
		t.Error("BudgetSettings lost fields")
	}

	cache := cfg.CacheSettings()
	if cache.MaxCost != cfg.Memory.CacheMaxCost || cache.TTL != cfg.Memory.CacheTTL {
		t.Error("CacheSettings lost fields")
	}
}
