package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adalundhe/greenroom/core/llm"
)

// summaryCacheSize bounds the per-conversation summary cache.
const summaryCacheSize = 256

const summarySystemInstruction = "You compress conversation history for a script-coverage " +
	"assistant. Write 2-3 paragraphs in third person, past tense. Retain key decisions, " +
	"evaluative results, standing instructions, and salient numeric or named facts. " +
	"Respond with the summary text only."

// ConversationSummary is a lossy compression of chat turns dropped by
// budget truncation. CoveredMessageCount is monotonically non-decreasing
// for a given conversation.
type ConversationSummary struct {
	Text                string
	CoveredMessageCount int
}

// summarizer decides whether to reuse or regenerate the conversation
// summary and performs the completion call when regeneration is due.
type summarizer struct {
	config  BudgetConfig
	service llm.CompletionService
	logger  *slog.Logger
	cache   *lru.Cache[string, *ConversationSummary]
}

func newSummarizer(config BudgetConfig, service llm.CompletionService, logger *slog.Logger) *summarizer {
	cache, _ := lru.New[string, *ConversationSummary](summaryCacheSize)
	return &summarizer{
		config:  config,
		service: service,
		logger:  logger,
		cache:   cache,
	}
}

// resolve picks the freshest known summary for a conversation: the one
// supplied by the caller or a cached one from a previous assembly,
// whichever covers more messages.
func (s *summarizer) resolve(conversationID string, supplied *ConversationSummary) *ConversationSummary {
	best := supplied
	if conversationID == "" {
		return best
	}
	if cached, ok := s.cache.Get(conversationID); ok {
		if best == nil || cached.CoveredMessageCount > best.CoveredMessageCount {
			best = cached
		}
	}
	return best
}

// summarize returns the summary to use for the dropped turns, and whether
// it was newly generated. A nil return means no summary is available and
// the bare history marker should be used. Never fails the assembly: on
// service error the existing summary (if any) is returned unchanged.
func (s *summarizer) summarize(ctx context.Context, conversationID string, existing *ConversationSummary, dropped []Turn) (*ConversationSummary, bool) {
	if len(dropped) == 0 {
		return existing, false
	}

	if existing != nil {
		newlyDropped := len(dropped) - existing.CoveredMessageCount
		if newlyDropped < s.config.SummaryRegenThreshold {
			return existing, false
		}
	}

	if s.service == nil {
		return existing, false
	}

	generated, err := s.generate(ctx, existing, dropped)
	if err != nil {
		s.logger.Warn("conversation summarization failed, reusing prior summary",
			"conversation_id", conversationID,
			"dropped_turns", len(dropped),
			"error", err,
		)
		return existing, false
	}

	covered := len(dropped)
	if existing != nil && existing.CoveredMessageCount > covered {
		covered = existing.CoveredMessageCount
	}
	summary := &ConversationSummary{
		Text:                generated,
		CoveredMessageCount: covered,
	}
	if conversationID != "" {
		s.cache.Add(conversationID, summary)
	}
	return summary, true
}

func (s *summarizer) generate(ctx context.Context, existing *ConversationSummary, dropped []Turn) (string, error) {
	var sb strings.Builder
	if existing != nil && existing.Text != "" {
		sb.WriteString("Previous summary:\n")
		sb.WriteString(existing.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Conversation turns to fold in:\n")
	for _, t := range dropped {
		sb.WriteString(t.Speaker)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}

	completion, err := s.service.Complete(ctx, summarySystemInstruction, sb.String(), s.config.SummaryMaxOutputTokens)
	if err != nil {
		return "", fmt.Errorf("summarize dropped history: %w", err)
	}
	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return "", fmt.Errorf("summarize dropped history: empty completion")
	}
	return text, nil
}
