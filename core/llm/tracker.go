package llm

import (
	"sync"
	"time"
)

// UsageRecord represents a single completed provider call.
type UsageRecord struct {
	Timestamp    time.Time
	AgentID      string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Latency      time.Duration
}

// UsageTracker stores usage records with cached aggregates for O(1) lookups.
type UsageTracker struct {
	mu               sync.RWMutex
	records          []UsageRecord
	totalTokens      int64
	tokensByAgent    map[string]int64
	tokensByProvider map[string]int64
}

// NewUsageTracker creates a new UsageTracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		records:          make([]UsageRecord, 0),
		tokensByAgent:    make(map[string]int64),
		tokensByProvider: make(map[string]int64),
	}
}

// Record adds a usage record and updates cached aggregates. A zero
// TotalTokens is derived from input plus output.
func (t *UsageTracker) Record(record UsageRecord) {
	if record.TotalTokens == 0 {
		record.TotalTokens = record.InputTokens + record.OutputTokens
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, record)
	t.totalTokens += record.TotalTokens
	t.tokensByAgent[record.AgentID] += record.TotalTokens
	t.tokensByProvider[record.Provider] += record.TotalTokens
}

// TotalTokens returns the global total of tokens used.
func (t *UsageTracker) TotalTokens() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalTokens
}

// TokensByAgent returns total tokens used by the given agent.
func (t *UsageTracker) TokensByAgent(agentID string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokensByAgent[agentID]
}

// TokensByProvider returns total tokens used against the given provider.
func (t *UsageTracker) TokensByProvider(provider string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokensByProvider[provider]
}

// RecordCount returns the number of recorded calls.
func (t *UsageTracker) RecordCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Records returns a copy of all usage records.
func (t *UsageTracker) Records() []UsageRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]UsageRecord, len(t.records))
	copy(out, t.records)
	return out
}
