package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/adalundhe/greenroom/core/llm"
)

const consistencyMaxOutputTokens = 600

const consistencySystemInstruction = "You check a script reader's proposed statement " +
	"against their prior positions on the same topic. Judge whether the new statement " +
	"contradicts the prior ones and whether it already acknowledges a change of " +
	"position. Respond with a JSON object only: " +
	`{"contradicts": bool, "acknowledgesChange": bool, "reframedContent": "..."} ` +
	"where reframedContent restates the new statement so it openly acknowledges the " +
	"shift from the earlier position."

// Verdict is the result of a consistency check.
type Verdict struct {
	IsConsistent      bool
	ReframedStatement string
}

// Checker detects contradictions between a proposed statement and an
// agent's prior same-topic positions. Fails open: any service or parse
// failure yields a consistent verdict, favoring availability.
type Checker struct {
	service llm.CompletionService
	logger  *slog.Logger
}

// NewChecker creates a consistency checker.
func NewChecker(service llm.CompletionService, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{service: service, logger: logger}
}

// Validate checks the proposed statement against the agent's history on
// the topic. With no prior statements the verdict is trivially consistent.
// An inconsistent verdict carries a reframed statement the caller should
// use instead of the original.
func (c *Checker) Validate(ctx context.Context, proposed string, mem *AgentMemory, topic string) Verdict {
	consistent := Verdict{IsConsistent: true}
	if mem == nil {
		return consistent
	}

	prior := mem.StatementsByTopic(topic)
	if len(prior) == 0 {
		return consistent
	}

	completion, err := c.service.Complete(ctx, consistencySystemInstruction, buildConsistencyPrompt(prior, proposed, topic), consistencyMaxOutputTokens)
	if err != nil {
		c.logger.Warn("consistency check failed open",
			"agent_id", mem.AgentID,
			"topic", topic,
			"error", err,
		)
		return consistent
	}

	judgment, err := parseJudgment(completion.Text)
	if err != nil {
		c.logger.Warn("consistency judgment unparseable, failing open",
			"agent_id", mem.AgentID,
			"topic", topic,
			"error", err,
		)
		return consistent
	}

	if judgment.Contradicts && !judgment.AcknowledgesChange {
		reframed := strings.TrimSpace(judgment.ReframedContent)
		if reframed == "" {
			reframed = "In a shift from my earlier view, " + proposed
		}
		return Verdict{IsConsistent: false, ReframedStatement: reframed}
	}
	return consistent
}

func buildConsistencyPrompt(prior []Statement, proposed, topic string) string {
	var sb strings.Builder
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	sb.WriteString("\n\nPrior statements:\n")
	for _, s := range prior {
		sb.WriteString("- ")
		sb.WriteString(s.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nProposed statement:\n")
	sb.WriteString(proposed)
	return sb.String()
}

// judgmentPayload is the wire schema for a consistency judgment.
type judgmentPayload struct {
	Contradicts        bool   `json:"contradicts"`
	AcknowledgesChange bool   `json:"acknowledgesChange"`
	ReframedContent    string `json:"reframedContent"`
}

func parseJudgment(text string) (*judgmentPayload, error) {
	payload, err := firstJSONObject(text)
	if err != nil {
		return nil, err
	}
	var judgment judgmentPayload
	if err := json.Unmarshal([]byte(payload), &judgment); err != nil {
		return nil, err
	}
	return &judgment, nil
}
