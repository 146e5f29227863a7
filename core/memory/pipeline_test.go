package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/greenroom/core/llm"
)

// queuedService replays scripted completions in order. A nil entry
// produces an error.
type queuedService struct {
	mu        sync.Mutex
	responses []*llm.Completion
	errs      []error
	calls     int
}

func (q *queuedService) push(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.responses = append(q.responses, &llm.Completion{Text: text})
	q.errs = append(q.errs, nil)
}

func (q *queuedService) pushErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.responses = append(q.responses, nil)
	q.errs = append(q.errs, err)
}

func (q *queuedService) Complete(ctx context.Context, system, prompt string, maxOutputTokens int) (*llm.Completion, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.calls >= len(q.responses) {
		return nil, errors.New("no scripted response")
	}
	resp, err := q.responses[q.calls], q.errs[q.calls]
	q.calls++
	if err != nil {
		return nil, err
	}
	return resp, nil
}

const discussionItems = `[
	{"content": "the second act drags", "topic": "structure", "importance": "high"},
	{"content": "dialogue is crisp throughout", "topic": "dialogue", "importance": "medium"}
]`

const chatItems = `[
	{"content": "the ending lands", "topic": "structure", "importance": "high"},
	{"content": "minor quibble about a prop", "topic": "production", "importance": "low"}
]`

const evolvedNarrative = `{"narrativeSummary": "I find the draft promising but uneven.", "evolutionNotes": ""}`

func TestMemorizeDiscussionAppendsStatements(t *testing.T) {
	t.Parallel()

	service := &queuedService{}
	service.push(discussionItems)
	service.push(evolvedNarrative)

	pipeline := NewPipeline(service)
	event := Event{ID: "evt-1", Type: EventDiscussion, Content: "panel transcript"}

	mem, err := pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-1", event, nil)
	require.NoError(t, err)
	require.NotNil(t, mem)

	require.Len(t, mem.FocusGroupStatements, 2)
	assert.Equal(t, "structure", mem.FocusGroupStatements[0].Topic)
	assert.Equal(t, SentimentNegative, mem.FocusGroupStatements[0].Sentiment)
	assert.Equal(t, SentimentPositive, mem.FocusGroupStatements[1].Sentiment)
	assert.Equal(t, "I find the draft promising but uneven.", mem.NarrativeSummary)
	assert.Equal(t, []string{"evt-1"}, mem.ResourceRefs)
	assert.False(t, mem.LastUpdated.IsZero())
}

func TestMemorizeDirectChatKeepsOnlyImportantHighlights(t *testing.T) {
	t.Parallel()

	service := &queuedService{}
	service.push(chatItems)
	service.push(evolvedNarrative)

	pipeline := NewPipeline(service)
	event := Event{ID: "evt-2", Type: EventDirectChat, Content: "chat transcript"}

	mem, err := pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-1", event, nil)
	require.NoError(t, err)

	require.Len(t, mem.ChatHighlights, 1)
	assert.Equal(t, "the ending lands", mem.ChatHighlights[0].Content)
	assert.Equal(t, ImportanceHigh, mem.ChatHighlights[0].Importance)
	assert.Empty(t, mem.FocusGroupStatements)
}

func TestMemorizeNeverShrinksItemLists(t *testing.T) {
	t.Parallel()

	service := &queuedService{}
	service.push(discussionItems)
	service.push(evolvedNarrative)
	service.push(discussionItems)
	service.push(evolvedNarrative)

	pipeline := NewPipeline(service)
	event := Event{Type: EventDiscussion, Content: "panel transcript"}

	mem, err := pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-1", event, nil)
	require.NoError(t, err)
	firstCount := len(mem.FocusGroupStatements)
	firstIDs := make([]string, 0, firstCount)
	for _, s := range mem.FocusGroupStatements {
		firstIDs = append(firstIDs, s.ID)
	}

	mem, err = pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-1", event, mem)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(mem.FocusGroupStatements), firstCount)
	for i, id := range firstIDs {
		assert.Equal(t, id, mem.FocusGroupStatements[i].ID, "earlier statements must be preserved in place")
	}
}

func TestMemorizeExtractionFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	service := &queuedService{}
	service.pushErr(errors.New("provider down"))

	pipeline := NewPipeline(service)
	event := Event{Type: EventDiscussion, Content: "panel transcript"}

	existing := NewAgentMemory("reader-1", "script-1", "rev-1")
	existing.NarrativeSummary = "I like the premise."

	mem, err := pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-1", event, existing)
	require.NoError(t, err)

	assert.Empty(t, mem.FocusGroupStatements)
	assert.Equal(t, "I like the premise.", mem.NarrativeSummary, "narrative unchanged when nothing extracted")
}

func TestMemorizeUnparseableNarrativeKeepsExisting(t *testing.T) {
	t.Parallel()

	service := &queuedService{}
	service.push(discussionItems)
	service.push("I cannot answer in JSON today.")

	pipeline := NewPipeline(service)
	event := Event{Type: EventDiscussion, Content: "panel transcript"}

	existing := NewAgentMemory("reader-1", "script-1", "rev-1")
	existing.NarrativeSummary = "My prior read stands."

	mem, err := pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-1", event, existing)
	require.NoError(t, err)

	assert.Equal(t, "My prior read stands.", mem.NarrativeSummary)
	assert.Len(t, mem.FocusGroupStatements, 2, "items still merged despite narrative failure")
}

func TestMemorizeNewRevisionLinksBack(t *testing.T) {
	t.Parallel()

	service := &queuedService{}
	service.push(discussionItems)
	service.push(evolvedNarrative)

	pipeline := NewPipeline(service)

	prior := NewAgentMemory("reader-1", "script-1", "rev-1")
	prior.NarrativeSummary = "The first draft needed work."
	prior.FocusGroupStatements = []Statement{{ID: "s1", Content: "old remark", Topic: "structure"}}
	priorStatements := len(prior.FocusGroupStatements)

	event := Event{Type: EventDiscussion, Content: "panel on the new draft"}
	mem, err := pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-2", event, prior)
	require.NoError(t, err)

	require.NotSame(t, prior, mem)
	assert.Same(t, prior, mem.Previous)
	assert.Equal(t, "rev-2", mem.RevisionID)
	assert.Len(t, prior.FocusGroupStatements, priorStatements, "prior revision memory must not be mutated")
}

func TestMemorizeLastUpdatedMonotonic(t *testing.T) {
	t.Parallel()

	service := &queuedService{}
	service.push(discussionItems)
	service.push(evolvedNarrative)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pipeline := NewPipeline(service, withClock(func() time.Time { return base }))

	existing := NewAgentMemory("reader-1", "script-1", "rev-1")
	existing.LastUpdated = base.Add(time.Hour) // clock skew: existing is ahead

	mem, err := pipeline.Memorize(context.Background(), "reader-1", "script-1", "rev-1", Event{Type: EventDiscussion, Content: "x"}, existing)
	require.NoError(t, err)

	assert.Equal(t, base.Add(time.Hour), mem.LastUpdated, "LastUpdated must never move backward")
}

func TestApplyCoverageRecordsDeltasAgainstPriorRevision(t *testing.T) {
	t.Parallel()

	prior := NewAgentMemory("reader-1", "script-1", "rev-1")
	prior.Ratings["structure"] = Rating{Label: "weak", Numeric: 2}

	mem := NewAgentMemory("reader-1", "script-1", "rev-2")
	mem.Previous = prior

	mem.ApplyCoverage(CoverageResult{
		Ratings:        map[string]Rating{"structure": {Label: "solid", Numeric: 4}},
		Recommendation: "recommend",
		KeyStrengths:   []string{"tighter midpoint"},
		Reasons:        map[string]string{"structure": "the rewrite fixed the sagging second act"},
	}, time.Now())

	require.Len(t, mem.ScoreDeltas, 1)
	delta := mem.ScoreDeltas[0]
	assert.Equal(t, "structure", delta.Dimension)
	assert.Equal(t, 2.0, delta.PreviousNumeric)
	assert.Equal(t, 4.0, delta.CurrentNumeric)
	assert.Equal(t, "weak", delta.PreviousLabel)
	assert.Equal(t, "solid", delta.CurrentLabel)
	assert.Equal(t, "the rewrite fixed the sagging second act", delta.Reason)
	assert.Equal(t, "recommend", mem.Recommendation)
	assert.Equal(t, []string{"tighter midpoint"}, mem.KeyStrengths)
}

func TestApplyCoverageNeverShrinksStrengths(t *testing.T) {
	t.Parallel()

	mem := NewAgentMemory("reader-1", "script-1", "rev-1")
	mem.ApplyCoverage(CoverageResult{KeyStrengths: []string{"a"}}, time.Now())
	mem.ApplyCoverage(CoverageResult{KeyStrengths: []string{"b"}, Concerns: []string{"c"}}, time.Now())

	assert.Equal(t, []string{"a", "b"}, mem.KeyStrengths)
	assert.Equal(t, []string{"c"}, mem.Concerns)
}
