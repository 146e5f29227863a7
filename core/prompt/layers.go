// Package prompt packs heterogeneous content layers into a single bounded
// prompt. Each layer has a fixed token quota and a deterministic
// truncation rule; overflowed chat history is compressed into a rolling
// conversation summary.
package prompt

// TruncationMarker joins the head and tail slices of an over-quota script.
const TruncationMarker = "\n\n[...truncated...]\n\n"

// HistoryMarker replaces dropped chat turns when no summary is available.
const HistoryMarker = "[earlier history truncated]"

// BudgetConfig fixes the per-layer token quotas. Token counts are
// approximated as characters divided by CharsPerToken.
type BudgetConfig struct {
	// SystemTokens caps the system instruction layer.
	SystemTokens int
	// DocumentTokens caps the primary script layer, the largest quota.
	DocumentTokens int
	// ChatTokens caps verbatim chat history.
	ChatTokens int
	// MemoryTokens caps the rendered agent-memory layer.
	MemoryTokens int
	// HighlightTokens caps the supplementary-highlights layer.
	HighlightTokens int
	// TotalCeilingTokens spans all layers plus response headroom.
	TotalCeilingTokens int
	// ResponseHeadroomTokens is reserved for the model's own response.
	ResponseHeadroomTokens int
	// DocumentHeadChars and DocumentTailChars are the fixed slice sizes
	// kept when the script exceeds its quota. Not proportional.
	DocumentHeadChars int
	DocumentTailChars int
	// SummaryRegenThreshold is how many newly dropped turns accumulate
	// before an existing conversation summary is regenerated.
	SummaryRegenThreshold int
	// SummaryMaxOutputTokens bounds the summarization call.
	SummaryMaxOutputTokens int
	// CharsPerToken is the token estimation ratio.
	CharsPerToken int
}

// DefaultBudgetConfig returns the production layer quotas.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		SystemTokens:           2000,
		DocumentTokens:         80000,
		ChatTokens:             24000,
		MemoryTokens:           4000,
		HighlightTokens:        3000,
		TotalCeilingTokens:     120000,
		ResponseHeadroomTokens: 8000,
		DocumentHeadChars:      40000,
		DocumentTailChars:      20000,
		SummaryRegenThreshold:  10,
		SummaryMaxOutputTokens: 700,
		CharsPerToken:          4,
	}
}

func normalizeBudgetConfig(config BudgetConfig) BudgetConfig {
	def := DefaultBudgetConfig()
	if config.SystemTokens <= 0 {
		config.SystemTokens = def.SystemTokens
	}
	if config.DocumentTokens <= 0 {
		config.DocumentTokens = def.DocumentTokens
	}
	if config.ChatTokens <= 0 {
		config.ChatTokens = def.ChatTokens
	}
	if config.MemoryTokens <= 0 {
		config.MemoryTokens = def.MemoryTokens
	}
	if config.HighlightTokens <= 0 {
		config.HighlightTokens = def.HighlightTokens
	}
	if config.TotalCeilingTokens <= 0 {
		config.TotalCeilingTokens = def.TotalCeilingTokens
	}
	if config.ResponseHeadroomTokens <= 0 {
		config.ResponseHeadroomTokens = def.ResponseHeadroomTokens
	}
	if config.DocumentHeadChars <= 0 {
		config.DocumentHeadChars = def.DocumentHeadChars
	}
	if config.DocumentTailChars <= 0 {
		config.DocumentTailChars = def.DocumentTailChars
	}
	if config.SummaryRegenThreshold <= 0 {
		config.SummaryRegenThreshold = def.SummaryRegenThreshold
	}
	if config.SummaryMaxOutputTokens <= 0 {
		config.SummaryMaxOutputTokens = def.SummaryMaxOutputTokens
	}
	if config.CharsPerToken <= 0 {
		config.CharsPerToken = def.CharsPerToken
	}
	return config
}

// quotaChars converts a token quota to its character equivalent.
func (c BudgetConfig) quotaChars(tokens int) int {
	return tokens * c.CharsPerToken
}

// estimateTokens approximates the token count of a text block.
func (c BudgetConfig) estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	count := len(text) / c.CharsPerToken
	if count == 0 {
		count = 1
	}
	return count
}

// headTruncate cuts text at the quota's character equivalent. Used for
// the system, memory, and highlight layers.
func (c BudgetConfig) headTruncate(text string, quotaTokens int) string {
	limit := c.quotaChars(quotaTokens)
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// truncateDocument keeps a fixed head and tail slice of an over-quota
// script, joined by an explicit marker. Idempotent: the truncated output
// fits the quota, so re-assembly leaves it untouched.
func (c BudgetConfig) truncateDocument(doc string) (string, bool) {
	limit := c.quotaChars(c.DocumentTokens)
	if len(doc) <= limit {
		return doc, false
	}
	if len(doc) <= c.DocumentHeadChars+c.DocumentTailChars {
		return doc, false
	}
	head := doc[:c.DocumentHeadChars]
	tail := doc[len(doc)-c.DocumentTailChars:]
	return head + TruncationMarker + tail, true
}

// Turn is a single chat message, oldest first in the assembler input.
type Turn struct {
	Speaker string
	Content string
}

// turnChars is the formatted character footprint of a turn.
func turnChars(t Turn) int {
	// "speaker: content\n"
	return len(t.Speaker) + len(t.Content) + 3
}

// truncateChat walks backward from the most recent turn, keeping the
// exact suffix of turns that fits the chat quota. Everything before that
// suffix is dropped; kept plus dropped always equals the original.
func (c BudgetConfig) truncateChat(turns []Turn) (kept, dropped []Turn) {
	limit := c.quotaChars(c.ChatTokens)
	used := 0
	cut := len(turns)

	for i := len(turns) - 1; i >= 0; i-- {
		cost := turnChars(turns[i])
		if used+cost > limit {
			break
		}
		used += cost
		cut = i
	}

	return turns[cut:], turns[:cut]
}
