package providers

// TokenCounter estimates token consumption for text before it is sent to
// a provider. Estimates feed admission control and prompt budgeting; they
// do not need to match the provider's tokenizer exactly.
type TokenCounter interface {
	CountText(text string) int
}

// TokenCounterConfig configures character-based estimation.
type TokenCounterConfig struct {
	CharsPerToken int
}

// DefaultTokenCounterConfig returns the standard 4-characters-per-token
// approximation.
func DefaultTokenCounterConfig() TokenCounterConfig {
	return TokenCounterConfig{CharsPerToken: 4}
}

// CharacterBasedCounter approximates tokens as characters divided by a
// fixed ratio. Cheap, deterministic, and close enough for budgeting.
type CharacterBasedCounter struct {
	config TokenCounterConfig
}

// NewCharacterBasedCounter creates a counter with the given configuration.
func NewCharacterBasedCounter(config TokenCounterConfig) *CharacterBasedCounter {
	if config.CharsPerToken <= 0 {
		config.CharsPerToken = 4
	}
	return &CharacterBasedCounter{config: config}
}

// CountText estimates tokens for a text block.
func (c *CharacterBasedCounter) CountText(text string) int {
	if text == "" {
		return 0
	}
	count := len(text) / c.config.CharsPerToken
	if count == 0 {
		count = 1
	}
	return count
}
