package llm

import (
	"log/slog"
	"sync"
	"time"
)

// AdmissionNotifier receives queueing events from the AdmissionController.
// Used to signal the orchestration layer when a caller is parked waiting
// for window capacity and when it resumes.
type AdmissionNotifier interface {
	// Waiting is called once when a caller starts waiting for capacity.
	Waiting(agentID string, estimatedTokens int)
	// Resumed is called when the caller has reserved capacity and proceeds.
	Resumed(agentID string, waited time.Duration)
}

// NoOpNotifier is an AdmissionNotifier that does nothing.
type NoOpNotifier struct{}

// Waiting does nothing.
func (n *NoOpNotifier) Waiting(agentID string, estimatedTokens int) {}

// Resumed does nothing.
func (n *NoOpNotifier) Resumed(agentID string, waited time.Duration) {}

// LoggingNotifier logs admission queueing events using slog.
type LoggingNotifier struct {
	logger *slog.Logger
}

// NewLoggingNotifier creates a new LoggingNotifier with the given logger.
func NewLoggingNotifier(logger *slog.Logger) *LoggingNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingNotifier{logger: logger}
}

// Waiting logs that a caller is queued behind the provider quota.
func (n *LoggingNotifier) Waiting(agentID string, estimatedTokens int) {
	n.logger.Info("caller queued for provider capacity",
		"agent_id", agentID,
		"estimated_tokens", estimatedTokens,
	)
}

// Resumed logs that a queued caller has reserved capacity.
func (n *LoggingNotifier) Resumed(agentID string, waited time.Duration) {
	n.logger.Info("caller resumed after admission wait",
		"agent_id", agentID,
		"waited", waited,
	)
}

// CompositeNotifier fans out notifications to multiple notifiers.
type CompositeNotifier struct {
	mu        sync.RWMutex
	notifiers []AdmissionNotifier
}

// NewCompositeNotifier creates a new CompositeNotifier with the given notifiers.
// Nil entries are filtered out.
func NewCompositeNotifier(notifiers ...AdmissionNotifier) *CompositeNotifier {
	filtered := make([]AdmissionNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			filtered = append(filtered, n)
		}
	}
	return &CompositeNotifier{notifiers: filtered}
}

// Add registers an additional notifier.
func (c *CompositeNotifier) Add(n AdmissionNotifier) {
	if n == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifiers = append(c.notifiers, n)
}

// Waiting fans out to all registered notifiers.
func (c *CompositeNotifier) Waiting(agentID string, estimatedTokens int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.notifiers {
		n.Waiting(agentID, estimatedTokens)
	}
}

// Resumed fans out to all registered notifiers.
func (c *CompositeNotifier) Resumed(agentID string, waited time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.notifiers {
		n.Resumed(agentID, waited)
	}
}
