package prompt

import (
	"context"
	"log/slog"
	"strings"

	"github.com/adalundhe/greenroom/core/llm"
)

// Input carries the raw candidate content for one prompt.
type Input struct {
	// System is the system instruction layer.
	System string
	// Document is the primary script text.
	Document string
	// MemoryContext is the rendered agent-memory block.
	MemoryContext string
	// Highlights is the supplementary-highlights block.
	Highlights string
	// Chat is the conversation, oldest turn first.
	Chat []Turn
	// ConversationID keys the summary cache. Optional.
	ConversationID string
	// Summary is a previously persisted conversation summary, if any.
	Summary *ConversationSummary
}

// LayerUsage reports per-layer token estimates for the assembled prompt.
type LayerUsage struct {
	System     int
	Document   int
	Memory     int
	Highlights int
	Chat       int
	Total      int
}

// Result is the assembled prompt plus truncation metadata.
type Result struct {
	Prompt string
	Usage  LayerUsage
	// Truncated is true when the script was cut, chat turns were dropped,
	// or the total estimate exceeds the ceiling.
	Truncated         bool
	DocumentTruncated bool
	ChatTruncated     bool
	DroppedTurns      int
	// NewSummary is set only when a summary was regenerated during this
	// assembly; the caller persists it alongside the conversation.
	NewSummary *ConversationSummary
}

// Assembler packs bounded content layers into a single prompt under a
// hard token ceiling. Assembly is read-only over its inputs and safely
// concurrent. Summarization failures degrade to markers; Assemble never
// aborts.
type Assembler struct {
	config     BudgetConfig
	logger     *slog.Logger
	summarizer *summarizer
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithAssemblerLogger sets the logger for summarization fallbacks.
func WithAssemblerLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAssembler creates an Assembler. The completion service is used only
// to compress overflowed chat history; pass nil to disable summarization
// entirely (dropped turns then collapse to the history marker).
func NewAssembler(config BudgetConfig, service llm.CompletionService, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		config: normalizeBudgetConfig(config),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.summarizer = newSummarizer(a.config, service, a.logger)
	return a
}

// Assemble packs the input layers into one prompt. Layer order: system
// instruction, script, agent memory, highlights, chat.
func (a *Assembler) Assemble(ctx context.Context, input Input) Result {
	system := a.config.headTruncate(input.System, a.config.SystemTokens)
	document, docTruncated := a.config.truncateDocument(input.Document)
	memory := a.config.headTruncate(input.MemoryContext, a.config.MemoryTokens)
	highlights := a.config.headTruncate(input.Highlights, a.config.HighlightTokens)

	kept, droppedTurns := a.config.truncateChat(input.Chat)

	var summary *ConversationSummary
	var regenerated bool
	if len(droppedTurns) > 0 {
		existing := a.summarizer.resolve(input.ConversationID, input.Summary)
		summary, regenerated = a.summarizer.summarize(ctx, input.ConversationID, existing, droppedTurns)
	}

	chat := renderChatSection(kept, droppedTurns, summary)
	prompt := composePrompt(system, document, memory, highlights, chat)

	usage := LayerUsage{
		System:     a.config.estimateTokens(system),
		Document:   a.config.estimateTokens(document),
		Memory:     a.config.estimateTokens(memory),
		Highlights: a.config.estimateTokens(highlights),
		Chat:       a.config.estimateTokens(chat),
	}
	usage.Total = usage.System + usage.Document + usage.Memory + usage.Highlights + usage.Chat

	result := Result{
		Prompt:            prompt,
		Usage:             usage,
		DocumentTruncated: docTruncated,
		ChatTruncated:     len(droppedTurns) > 0,
		DroppedTurns:      len(droppedTurns),
	}
	result.Truncated = docTruncated ||
		result.ChatTruncated ||
		usage.Total > a.config.TotalCeilingTokens
	if regenerated {
		result.NewSummary = summary
	}
	return result
}

// renderChatSection produces the chat layer: summary-prefixed when a
// summary exists, marker-prefixed when turns were dropped without one,
// else the verbatim history.
func renderChatSection(kept, dropped []Turn, summary *ConversationSummary) string {
	var sb strings.Builder

	switch {
	case len(dropped) > 0 && summary != nil && summary.Text != "":
		sb.WriteString("Earlier conversation (summarized):\n")
		sb.WriteString(summary.Text)
		sb.WriteString("\n\n")
	case len(dropped) > 0:
		sb.WriteString(HistoryMarker)
		sb.WriteString("\n\n")
	}

	for _, t := range kept {
		sb.WriteString(t.Speaker)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// composePrompt joins non-empty layers in their fixed order.
func composePrompt(system, document, memory, highlights, chat string) string {
	sections := make([]string, 0, 5)
	if system != "" {
		sections = append(sections, system)
	}
	if document != "" {
		sections = append(sections, "## Script\n\n"+document)
	}
	if memory != "" {
		sections = append(sections, "## Reader memory\n\n"+memory)
	}
	if highlights != "" {
		sections = append(sections, "## Highlights\n\n"+highlights)
	}
	if chat != "" {
		sections = append(sections, "## Conversation\n\n"+chat)
	}
	return strings.Join(sections, "\n\n")
}
