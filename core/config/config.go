// Package config loads and watches greenroom's runtime configuration:
// admission limits, prompt layer quotas, memory settings, and provider
// credentials. A YAML file merges over compiled defaults, environment
// variables override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adalundhe/greenroom/core/llm"
	"github.com/adalundhe/greenroom/core/memory"
	"github.com/adalundhe/greenroom/core/prompt"
	"github.com/adalundhe/greenroom/core/providers"
)

var (
	// ErrInvalidQuota means a layer quota or ceiling is not usable.
	ErrInvalidQuota = errors.New("invalid layer quota")
	// ErrInvalidAdmission means an admission limit is not usable.
	ErrInvalidAdmission = errors.New("invalid admission limit")
	// ErrUnknownProvider means the default provider name is not recognized.
	ErrUnknownProvider = errors.New("unknown default provider")
)

// Config is the full runtime configuration.
type Config struct {
	Admission AdmissionConfig `yaml:"admission"`
	Budget    BudgetConfig    `yaml:"budget"`
	Memory    MemoryConfig    `yaml:"memory"`
	Providers ProvidersConfig `yaml:"providers"`
}

// AdmissionConfig mirrors the sliding-window admission limits.
type AdmissionConfig struct {
	Window           time.Duration `yaml:"window"`
	MaxRequests      int           `yaml:"max_requests"`
	MaxInputTokens   int           `yaml:"max_input_tokens"`
	SoftOutputTokens int           `yaml:"soft_output_tokens"`
	InitialPollDelay time.Duration `yaml:"initial_poll_delay"`
	MaxPollDelay     time.Duration `yaml:"max_poll_delay"`
}

// BudgetConfig mirrors the prompt layer quotas.
type BudgetConfig struct {
	SystemTokens           int `yaml:"system_tokens"`
	DocumentTokens         int `yaml:"document_tokens"`
	ChatTokens             int `yaml:"chat_tokens"`
	MemoryTokens           int `yaml:"memory_tokens"`
	HighlightTokens        int `yaml:"highlight_tokens"`
	TotalCeilingTokens     int `yaml:"total_ceiling_tokens"`
	ResponseHeadroomTokens int `yaml:"response_headroom_tokens"`
	DocumentHeadChars      int `yaml:"document_head_chars"`
	DocumentTailChars      int `yaml:"document_tail_chars"`
	SummaryRegenThreshold  int `yaml:"summary_regen_threshold"`
	SummaryMaxOutputTokens int `yaml:"summary_max_output_tokens"`
	CharsPerToken          int `yaml:"chars_per_token"`
}

// MemoryConfig covers the memory cache and background persistence.
type MemoryConfig struct {
	CacheNumCounters    int64         `yaml:"cache_num_counters"`
	CacheMaxCost        int64         `yaml:"cache_max_cost"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	PersistResultBuffer int           `yaml:"persist_result_buffer"`
	PersistTimeout      time.Duration `yaml:"persist_timeout"`
}

// ProvidersConfig selects and credentials the completion providers.
type ProvidersConfig struct {
	Default   string                    `yaml:"default"`
	Anthropic providers.AnthropicConfig `yaml:"anthropic"`
	OpenAI    providers.OpenAIConfig    `yaml:"openai"`
	Google    providers.GoogleConfig    `yaml:"google"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	admission := llm.DefaultAdmissionConfig()
	budget := prompt.DefaultBudgetConfig()
	return &Config{
		Admission: AdmissionConfig{
			Window:           admission.Window,
			MaxRequests:      admission.MaxRequests,
			MaxInputTokens:   admission.MaxInputTokens,
			SoftOutputTokens: admission.SoftOutputTokens,
			InitialPollDelay: admission.InitialPollDelay,
			MaxPollDelay:     admission.MaxPollDelay,
		},
		Budget: BudgetConfig{
			SystemTokens:           budget.SystemTokens,
			DocumentTokens:         budget.DocumentTokens,
			ChatTokens:             budget.ChatTokens,
			MemoryTokens:           budget.MemoryTokens,
			HighlightTokens:        budget.HighlightTokens,
			TotalCeilingTokens:     budget.TotalCeilingTokens,
			ResponseHeadroomTokens: budget.ResponseHeadroomTokens,
			DocumentHeadChars:      budget.DocumentHeadChars,
			DocumentTailChars:      budget.DocumentTailChars,
			SummaryRegenThreshold:  budget.SummaryRegenThreshold,
			SummaryMaxOutputTokens: budget.SummaryMaxOutputTokens,
			CharsPerToken:          budget.CharsPerToken,
		},
		Memory: MemoryConfig{
			CacheNumCounters:    1e5,
			CacheMaxCost:        1e4,
			CacheTTL:            15 * time.Minute,
			PersistResultBuffer: 64,
			PersistTimeout:      10 * time.Second,
		},
		Providers: ProvidersConfig{
			Default:   string(providers.ProviderTypeAnthropic),
			Anthropic: providers.DefaultAnthropicConfig(),
			OpenAI:    providers.DefaultOpenAIConfig(),
			Google:    providers.DefaultGoogleConfig(),
		},
	}
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	quotas := []struct {
		name  string
		value int
	}{
		{"system_tokens", c.Budget.SystemTokens},
		{"document_tokens", c.Budget.DocumentTokens},
		{"chat_tokens", c.Budget.ChatTokens},
		{"memory_tokens", c.Budget.MemoryTokens},
		{"highlight_tokens", c.Budget.HighlightTokens},
		{"total_ceiling_tokens", c.Budget.TotalCeilingTokens},
		{"response_headroom_tokens", c.Budget.ResponseHeadroomTokens},
		{"chars_per_token", c.Budget.CharsPerToken},
	}
	for _, q := range quotas {
		if q.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidQuota, q.name)
		}
	}

	layerSum := c.Budget.SystemTokens + c.Budget.DocumentTokens + c.Budget.ChatTokens +
		c.Budget.MemoryTokens + c.Budget.HighlightTokens
	if layerSum > c.Budget.TotalCeilingTokens {
		return fmt.Errorf("%w: layer quotas total %d, exceeding the %d ceiling",
			ErrInvalidQuota, layerSum, c.Budget.TotalCeilingTokens)
	}
	if c.Budget.ResponseHeadroomTokens >= c.Budget.TotalCeilingTokens {
		return fmt.Errorf("%w: response headroom consumes the whole ceiling", ErrInvalidQuota)
	}

	if c.Admission.Window <= 0 {
		return fmt.Errorf("%w: window must be positive", ErrInvalidAdmission)
	}
	if c.Admission.MaxRequests <= 0 {
		return fmt.Errorf("%w: max_requests must be positive", ErrInvalidAdmission)
	}
	if c.Admission.MaxInputTokens <= 0 {
		return fmt.Errorf("%w: max_input_tokens must be positive", ErrInvalidAdmission)
	}

	switch providers.ProviderType(c.Providers.Default) {
	case providers.ProviderTypeAnthropic, providers.ProviderTypeOpenAI, providers.ProviderTypeGoogle:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Providers.Default)
	}
	return nil
}

// AdmissionSettings converts to the admission controller's own config type.
func (c *Config) AdmissionSettings() llm.AdmissionConfig {
	return llm.AdmissionConfig{
		Window:           c.Admission.Window,
		MaxRequests:      c.Admission.MaxRequests,
		MaxInputTokens:   c.Admission.MaxInputTokens,
		SoftOutputTokens: c.Admission.SoftOutputTokens,
		InitialPollDelay: c.Admission.InitialPollDelay,
		MaxPollDelay:     c.Admission.MaxPollDelay,
	}
}

// BudgetSettings converts to the prompt assembler's own config type.
func (c *Config) BudgetSettings() prompt.BudgetConfig {
	return prompt.BudgetConfig{
		SystemTokens:           c.Budget.SystemTokens,
		DocumentTokens:         c.Budget.DocumentTokens,
		ChatTokens:             c.Budget.ChatTokens,
		MemoryTokens:           c.Budget.MemoryTokens,
		HighlightTokens:        c.Budget.HighlightTokens,
		TotalCeilingTokens:     c.Budget.TotalCeilingTokens,
		ResponseHeadroomTokens: c.Budget.ResponseHeadroomTokens,
		DocumentHeadChars:      c.Budget.DocumentHeadChars,
		DocumentTailChars:      c.Budget.DocumentTailChars,
		SummaryRegenThreshold:  c.Budget.SummaryRegenThreshold,
		SummaryMaxOutputTokens: c.Budget.SummaryMaxOutputTokens,
		CharsPerToken:          c.Budget.CharsPerToken,
	}
}

// CacheSettings converts to the memory cache's own config type.
func (c *Config) CacheSettings() *memory.CacheConfig {
	return &memory.CacheConfig{
		NumCounters: c.Memory.CacheNumCounters,
		MaxCost:     c.Memory.CacheMaxCost,
		TTL:         c.Memory.CacheTTL,
	}
}

// applyEnvironment overrides file and default values from the process
// environment. Unparseable values are ignored.
func applyEnvironment(cfg *Config) {
	if v := os.Getenv("GREENROOM_DEFAULT_PROVIDER"); v != "" {
		cfg.Providers.Default = strings.ToLower(v)
	}
	if v := os.Getenv("GREENROOM_ADMISSION_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Admission.Window = d
		}
	}
	if v := os.Getenv("GREENROOM_ADMISSION_MAX_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Admission.MaxRequests = n
		}
	}
	if v := os.Getenv("GREENROOM_ADMISSION_MAX_INPUT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Admission.MaxInputTokens = n
		}
	}
	if v := os.Getenv("GREENROOM_BUDGET_DOCUMENT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Budget.DocumentTokens = n
		}
	}
	if v := os.Getenv("GREENROOM_BUDGET_TOTAL_CEILING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Budget.TotalCeilingTokens = n
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Providers.Anthropic.APIKey == "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Providers.Google.APIKey == "" {
		cfg.Providers.Google.APIKey = v
	}
}
