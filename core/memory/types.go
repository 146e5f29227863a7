// Package memory maintains durable, evolving reader-agent memory across
// script revisions: structured items extracted from transient events, a
// synthesized narrative, and references to the raw transcripts behind them.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of memory event variants. Each variant has
// its own merge behavior in the write pipeline.
type EventType int

const (
	// EventCoverage is a full coverage pass over a revision. Scores and
	// labels arrive pre-computed out of band, never derived from free text.
	EventCoverage EventType = iota
	// EventDiscussion is a focus-group style panel discussion.
	EventDiscussion
	// EventDirectChat is a one-on-one conversation with the reader.
	EventDirectChat
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventCoverage:
		return "coverage"
	case EventDiscussion:
		return "discussion"
	case EventDirectChat:
		return "direct-chat"
	default:
		return "unknown"
	}
}

// Event is a transient input to the write pipeline. Events themselves are
// never persisted; only their derived items are.
type Event struct {
	ID        string
	Type      EventType
	Content   string
	Timestamp time.Time
	Metadata  map[string]string
}

// Importance grades an extracted item.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Sentiment is the inferred polarity of a discussion statement.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Item is an atomic extracted fact. Produced only by extraction, never
// authored directly by a caller.
type Item struct {
	ID         string
	Content    string
	Topic      string
	SourceType EventType
	Importance Importance
	Timestamp  time.Time
}

// Rating is a reader's position on one evaluation dimension.
type Rating struct {
	Label   string  `json:"label"`
	Numeric float64 `json:"numeric"`
}

// Statement is one focus-group remark, tagged with topic and sentiment.
type Statement struct {
	ID        string
	Content   string
	Topic     string
	Sentiment Sentiment
	Timestamp time.Time
}

// Highlight is a notable moment from a direct chat.
type Highlight struct {
	ID         string
	Content    string
	Topic      string
	Importance Importance
	Timestamp  time.Time
}

// ScoreDelta records a rated dimension changing between two revisions.
type ScoreDelta struct {
	Dimension       string
	PreviousNumeric float64
	CurrentNumeric  float64
	PreviousLabel   string
	CurrentLabel    string
	Reason          string
}

// Default evaluation dimensions for script coverage, rated on a 1-5 scale.
var defaultDimensions = []string{"premise", "structure", "character", "dialogue", "commercial"}

const (
	defaultRatingLabel      = "adequate"
	defaultRatingNumeric    = 3.0
	defaultRecommendation   = "consider"
	defaultEvidenceStrength = 0.5
)

// AgentMemory is the durable state for one reader agent on one script
// revision. Item lists are append-only; statements and highlights are
// never removed. A new revision starts a new AgentMemory that links back
// to the prior one rather than mutating it.
type AgentMemory struct {
	AgentID    string
	ScriptID   string
	RevisionID string

	// L3: narrative summary, always present. EvolutionNotes is set only
	// when this revision's narrative changed position versus the prior one.
	NarrativeSummary string
	EvolutionNotes   string

	// L2: structured, queryable items.
	Ratings              map[string]Rating
	Recommendation       string
	KeyStrengths         []string
	Concerns             []string
	EvidenceStrength     float64
	FocusGroupStatements []Statement
	ChatHighlights       []Highlight
	ScoreDeltas          []ScoreDelta

	// L1: opaque references to full raw transcripts. The core never
	// re-reads these, it only carries them.
	ResourceRefs []string

	// Previous is a read-only link to this agent's memory on the
	// immediately prior revision. Never mutated after creation.
	Previous *AgentMemory

	LastUpdated time.Time
}

// NewAgentMemory creates memory with sane defaults: neutral ratings on
// every dimension, empty lists, midpoint evidence strength.
func NewAgentMemory(agentID, scriptID, revisionID string) *AgentMemory {
	ratings := make(map[string]Rating, len(defaultDimensions))
	for _, dim := range defaultDimensions {
		ratings[dim] = Rating{Label: defaultRatingLabel, Numeric: defaultRatingNumeric}
	}
	return &AgentMemory{
		AgentID:          agentID,
		ScriptID:         scriptID,
		RevisionID:       revisionID,
		Ratings:          ratings,
		Recommendation:   defaultRecommendation,
		EvidenceStrength: defaultEvidenceStrength,
	}
}

// StatementsByTopic returns all focus-group statements matching a topic.
func (m *AgentMemory) StatementsByTopic(topic string) []Statement {
	var out []Statement
	for _, s := range m.FocusGroupStatements {
		if s.Topic == topic {
			out = append(out, s)
		}
	}
	return out
}

// touch advances LastUpdated monotonically.
func (m *AgentMemory) touch(now time.Time) {
	if now.After(m.LastUpdated) {
		m.LastUpdated = now
	}
}

// CoverageResult carries the pre-computed scores a coverage pass produces.
// Merged by the caller via ApplyCoverage, not derived from free text.
type CoverageResult struct {
	Ratings          map[string]Rating
	Recommendation   string
	KeyStrengths     []string
	Concerns         []string
	EvidenceStrength float64
	// Reasons maps dimension to the stated reason for a score change.
	Reasons map[string]string
}

// ApplyCoverage merges a coverage result into the memory. Ratings that
// differ from the prior revision's are recorded as score deltas with the
// coverage-stated reason. Strength and concern lists append; they never
// shrink.
func (m *AgentMemory) ApplyCoverage(cov CoverageResult, now time.Time) {
	prior := m.Previous

	for dim, rating := range cov.Ratings {
		if prior != nil {
			if prev, ok := prior.Ratings[dim]; ok && prev.Numeric != rating.Numeric {
				m.ScoreDeltas = append(m.ScoreDeltas, ScoreDelta{
					Dimension:       dim,
					PreviousNumeric: prev.Numeric,
					CurrentNumeric:  rating.Numeric,
					PreviousLabel:   prev.Label,
					CurrentLabel:    rating.Label,
					Reason:          cov.Reasons[dim],
				})
			}
		}
		m.Ratings[dim] = rating
	}

	if cov.Recommendation != "" {
		m.Recommendation = cov.Recommendation
	}
	if cov.EvidenceStrength > 0 {
		m.EvidenceStrength = cov.EvidenceStrength
	}
	m.KeyStrengths = append(m.KeyStrengths, cov.KeyStrengths...)
	m.Concerns = append(m.Concerns, cov.Concerns...)
	m.touch(now)
}

// newID returns a fresh identifier for derived items.
func newID() string {
	return uuid.NewString()
}
