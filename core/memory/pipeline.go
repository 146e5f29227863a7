package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adalundhe/greenroom/core/llm"
)

const (
	// extractMaxOutputTokens bounds the extraction call.
	extractMaxOutputTokens = 1000
	// evolveMaxOutputTokens bounds the narrative evolution call.
	evolveMaxOutputTokens = 1200
)

const evolveSystemInstruction = "You maintain a script reader's first-person narrative " +
	"about a screenplay. Given the reader's current narrative, the narrative from the " +
	"prior draft (if any), and newly observed facts, produce an updated narrative. " +
	"Overwrite facts that conflict, acknowledge evolution versus the prior draft, and " +
	"weave in genuinely new facts. Preserve the first-person voice. Respond with a JSON " +
	`object only: {"narrativeSummary": "...", "evolutionNotes": "..."} where ` +
	"evolutionNotes is present only when the position changed versus the prior draft."

// Pipeline is the memory write path: extract items from an event, merge
// them into structured memory by event variant, then evolve the
// narrative. Every external-service failure recovers to a documented
// fallback; Memorize never fails outright except on context cancellation.
//
// Concurrent Memorize calls for the same (agent, revision) pair must be
// serialized by the caller; the pipeline performs plain read-modify-write.
type Pipeline struct {
	service llm.CompletionService
	logger  *slog.Logger
	now     func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the fallback logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// withClock overrides time for tests.
func withClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a write pipeline backed by the given completion service.
func NewPipeline(service llm.CompletionService, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		service: service,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Memorize ingests one event into the agent's memory for a revision and
// returns the updated memory. When existing belongs to an earlier
// revision, a new AgentMemory is created that links back to it; the prior
// memory is never mutated.
func (p *Pipeline) Memorize(ctx context.Context, agentID, scriptID, revisionID string, event Event, existing *AgentMemory) (*AgentMemory, error) {
	mem := existing
	if mem == nil {
		mem = NewAgentMemory(agentID, scriptID, revisionID)
	} else if mem.RevisionID != revisionID {
		next := NewAgentMemory(agentID, scriptID, revisionID)
		next.Previous = existing
		mem = next
	}

	items := p.extractItems(ctx, event)
	p.merge(mem, event, items)
	p.evolveNarrative(ctx, mem, items)

	if event.ID != "" {
		mem.ResourceRefs = append(mem.ResourceRefs, event.ID)
	}
	mem.touch(p.now())

	if err := ctx.Err(); err != nil {
		return mem, fmt.Errorf("memorize interrupted: %w", err)
	}
	return mem, nil
}

// extractItems turns the event's free text into atomic items. Extraction
// failure is non-fatal: the pipeline proceeds with an empty list.
func (p *Pipeline) extractItems(ctx context.Context, event Event) []Item {
	completion, err := p.service.Complete(ctx, extractSystemInstruction, event.Content, extractMaxOutputTokens)
	if err != nil {
		p.logger.Warn("item extraction failed, continuing with no items",
			"event_id", event.ID,
			"event_type", event.Type.String(),
			"error", err,
		)
		return nil
	}

	items, err := parseItems(completion.Text, event.Type, p.now())
	if err != nil {
		p.logger.Warn("item extraction unparseable, continuing with no items",
			"event_id", event.ID,
			"event_type", event.Type.String(),
			"error", err,
		)
		return nil
	}
	return items
}

// merge routes extracted items into structured memory by event variant.
func (p *Pipeline) merge(mem *AgentMemory, event Event, items []Item) {
	switch event.Type {
	case EventDiscussion:
		mergeDiscussion(mem, items)
	case EventDirectChat:
		mergeDirectChat(mem, items)
	case EventCoverage:
		mergeCoverage(mem, items)
	}
}

// mergeDiscussion appends every item as a focus-group statement with an
// inferred sentiment.
func mergeDiscussion(mem *AgentMemory, items []Item) {
	for _, item := range items {
		mem.FocusGroupStatements = append(mem.FocusGroupStatements, Statement{
			ID:        item.ID,
			Content:   item.Content,
			Topic:     item.Topic,
			Sentiment: inferSentiment(item.Content),
			Timestamp: item.Timestamp,
		})
	}
}

// mergeDirectChat appends only medium- and high-importance items as chat
// highlights.
func mergeDirectChat(mem *AgentMemory, items []Item) {
	for _, item := range items {
		if item.Importance == ImportanceLow {
			continue
		}
		mem.ChatHighlights = append(mem.ChatHighlights, Highlight{
			ID:         item.ID,
			Content:    item.Content,
			Topic:      item.Topic,
			Importance: item.Importance,
			Timestamp:  item.Timestamp,
		})
	}
}

// mergeCoverage is intentionally a no-op for extracted items: coverage
// events carry pre-computed scores merged by the caller through
// ApplyCoverage. The items still feed narrative evolution.
func mergeCoverage(mem *AgentMemory, items []Item) {}

// evolveNarrative regenerates the narrative from the existing one, the
// prior revision's (for continuity), and the new items. Failure keeps the
// narrative unchanged.
func (p *Pipeline) evolveNarrative(ctx context.Context, mem *AgentMemory, items []Item) {
	if len(items) == 0 && mem.NarrativeSummary != "" {
		return
	}

	prompt := buildEvolvePrompt(mem, items)
	completion, err := p.service.Complete(ctx, evolveSystemInstruction, prompt, evolveMaxOutputTokens)
	if err != nil {
		p.logger.Warn("narrative evolution failed, keeping narrative unchanged",
			"agent_id", mem.AgentID,
			"revision_id", mem.RevisionID,
			"error", err,
		)
		return
	}

	summary, notes, err := parseNarrative(completion.Text)
	if err != nil {
		p.logger.Warn("narrative evolution unparseable, keeping narrative unchanged",
			"agent_id", mem.AgentID,
			"revision_id", mem.RevisionID,
			"error", err,
		)
		return
	}

	mem.NarrativeSummary = summary
	mem.EvolutionNotes = notes
}

func buildEvolvePrompt(mem *AgentMemory, items []Item) string {
	var sb strings.Builder
	if mem.NarrativeSummary != "" {
		sb.WriteString("Current narrative:\n")
		sb.WriteString(mem.NarrativeSummary)
		sb.WriteString("\n\n")
	}
	if mem.Previous != nil && mem.Previous.NarrativeSummary != "" {
		sb.WriteString("Narrative from the prior draft:\n")
		sb.WriteString(mem.Previous.NarrativeSummary)
		sb.WriteString("\n\n")
	}
	sb.WriteString("New facts:\n")
	if len(items) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, item := range items {
		sb.WriteString("- [")
		sb.WriteString(item.Topic)
		sb.WriteString("] ")
		sb.WriteString(item.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// narrativePayload is the wire schema for an evolved narrative.
type narrativePayload struct {
	NarrativeSummary string `json:"narrativeSummary"`
	EvolutionNotes   string `json:"evolutionNotes"`
}

// parseNarrative locates the first balanced JSON object in free-form
// model output and validates it.
func parseNarrative(text string) (summary, notes string, err error) {
	payload, err := firstJSONObject(text)
	if err != nil {
		return "", "", err
	}

	var parsed narrativePayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrBadItemSchema, err)
	}
	if strings.TrimSpace(parsed.NarrativeSummary) == "" {
		return "", "", fmt.Errorf("%w: empty narrativeSummary", ErrBadItemSchema)
	}
	return strings.TrimSpace(parsed.NarrativeSummary), strings.TrimSpace(parsed.EvolutionNotes), nil
}

// firstJSONObject is the object counterpart of firstJSONArray.
func firstJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONPayload
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONPayload
}
