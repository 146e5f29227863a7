package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// outputWarnFraction is the share of the soft output quota beyond
	// which Report raises a warning.
	outputWarnFraction = 0.8
)

// AdmissionConfig configures the sliding-window admission controller.
type AdmissionConfig struct {
	// Window is the rolling quota window length.
	Window time.Duration
	// MaxRequests is the maximum number of in-window reservations.
	MaxRequests int
	// MaxInputTokens is the maximum summed input tokens per window.
	MaxInputTokens int
	// SoftOutputTokens is the provider's soft output quota per window.
	// Tracked for observability only; never gates admission.
	SoftOutputTokens int
	// InitialPollDelay is the first backoff delay for queued callers.
	InitialPollDelay time.Duration
	// MaxPollDelay caps the exponential backoff.
	MaxPollDelay time.Duration
}

// DefaultAdmissionConfig returns provider-tier defaults: 50 requests and
// 40k input tokens per rolling minute.
func DefaultAdmissionConfig() AdmissionConfig {
	return AdmissionConfig{
		Window:           60 * time.Second,
		MaxRequests:      50,
		MaxInputTokens:   40000,
		SoftOutputTokens: 16000,
		InitialPollDelay: 250 * time.Millisecond,
		MaxPollDelay:     5 * time.Second,
	}
}

func normalizeAdmissionConfig(config AdmissionConfig) AdmissionConfig {
	def := DefaultAdmissionConfig()
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = def.MaxRequests
	}
	if config.MaxInputTokens <= 0 {
		config.MaxInputTokens = def.MaxInputTokens
	}
	if config.InitialPollDelay <= 0 {
		config.InitialPollDelay = def.InitialPollDelay
	}
	if config.MaxPollDelay < config.InitialPollDelay {
		config.MaxPollDelay = def.MaxPollDelay
	}
	return config
}

// WindowUsage is a snapshot of the live admission window.
type WindowUsage struct {
	Requests     int
	InputTokens  int
	OutputTokens int
}

// windowEntry is one reservation in the sliding window. Entries are keyed
// by reservation id so Report back-fills the correct in-flight request
// even under concurrent reservation.
type windowEntry struct {
	id           string
	timestamp    time.Time
	inputTokens  int
	outputTokens int
}

// AdmissionController gates provider calls against a rolling per-window
// request and input-token quota. Capacity is reserved at check time under
// a single lock, so two near-simultaneous callers can never both claim the
// last slot. Construct one per process and share it by reference.
type AdmissionController struct {
	config   AdmissionConfig
	logger   *slog.Logger
	notifier AdmissionNotifier

	mu      sync.Mutex
	entries []*windowEntry
	byID    map[string]*windowEntry
	warned  bool
}

// AdmissionOption configures an AdmissionController.
type AdmissionOption func(*AdmissionController)

// WithAdmissionNotifier sets the queueing notifier.
func WithAdmissionNotifier(n AdmissionNotifier) AdmissionOption {
	return func(a *AdmissionController) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithAdmissionLogger sets the logger used for soft-quota warnings.
func WithAdmissionLogger(logger *slog.Logger) AdmissionOption {
	return func(a *AdmissionController) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdmissionController creates an AdmissionController with the given
// configuration. Zero config fields fall back to defaults.
func NewAdmissionController(config AdmissionConfig, opts ...AdmissionOption) *AdmissionController {
	a := &AdmissionController{
		config:   normalizeAdmissionConfig(config),
		logger:   slog.Default(),
		notifier: &NoOpNotifier{},
		byID:     make(map[string]*windowEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire blocks until the sliding window has capacity for a request of
// estimatedInputTokens, reserves it, and returns the reservation id the
// caller passes back to Report. Quota exhaustion is a scheduling delay,
// not an error: Acquire fails only when ctx is cancelled, and a cancelled
// wait should be treated as failure of the enclosing operation.
func (a *AdmissionController) Acquire(ctx context.Context, agentID string, estimatedInputTokens int) (string, error) {
	if id, ok := a.tryReserve(estimatedInputTokens); ok {
		return id, nil
	}

	a.notifier.Waiting(agentID, estimatedInputTokens)
	start := time.Now()
	delay := a.config.InitialPollDelay

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("admission wait: %w", ctx.Err())
		case <-time.After(delay):
		}

		if id, ok := a.tryReserve(estimatedInputTokens); ok {
			a.notifier.Resumed(agentID, time.Since(start))
			return id, nil
		}

		delay *= 2
		if delay > a.config.MaxPollDelay {
			delay = a.config.MaxPollDelay
		}
	}
}

// tryReserve atomically checks capacity and, if available, appends a
// provisional entry. The check-then-reserve sequence must stay under one
// lock acquisition.
func (a *AdmissionController) tryReserve(estimatedInputTokens int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.purge(time.Now())

	if len(a.entries) >= a.config.MaxRequests {
		return "", false
	}
	if a.inputSum()+estimatedInputTokens > a.config.MaxInputTokens {
		return "", false
	}

	entry := &windowEntry{
		id:          uuid.NewString(),
		timestamp:   time.Now(),
		inputTokens: estimatedInputTokens,
	}
	a.entries = append(a.entries, entry)
	a.byID[entry.id] = entry
	return entry.id, true
}

// Report back-fills the reservation with actual token counts once the
// provider response is known, improving subsequent window sums. Reporting
// against an expired reservation is a no-op for the sums but still
// evaluates the soft output quota.
func (a *AdmissionController) Report(reservationID string, actualInputTokens, actualOutputTokens int) {
	a.mu.Lock()
	a.purge(time.Now())

	if entry, ok := a.byID[reservationID]; ok {
		entry.inputTokens = actualInputTokens
		entry.outputTokens = actualOutputTokens
	}

	outputSum := 0
	for _, e := range a.entries {
		outputSum += e.outputTokens
	}
	soft := a.config.SoftOutputTokens
	warn := soft > 0 && float64(outputSum) >= outputWarnFraction*float64(soft)
	if !warn {
		a.warned = false
	}
	shouldLog := warn && !a.warned
	if shouldLog {
		a.warned = true
	}
	a.mu.Unlock()

	if shouldLog {
		a.logger.Warn("output token usage approaching soft quota",
			"window_output_tokens", outputSum,
			"soft_quota", soft,
		)
	}
}

// Usage returns a snapshot of the live window after purging stale entries.
func (a *AdmissionController) Usage() WindowUsage {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.purge(time.Now())

	usage := WindowUsage{Requests: len(a.entries)}
	for _, e := range a.entries {
		usage.InputTokens += e.inputTokens
		usage.OutputTokens += e.outputTokens
	}
	return usage
}

// purge drops entries older than the window. Entries are appended in time
// order, so expired ones form a prefix. Caller must hold a.mu.
func (a *AdmissionController) purge(now time.Time) {
	cutoff := now.Add(-a.config.Window)
	i := 0
	for ; i < len(a.entries); i++ {
		if !a.entries[i].timestamp.Before(cutoff) {
			break
		}
		delete(a.byID, a.entries[i].id)
	}
	if i > 0 {
		a.entries = append(a.entries[:0], a.entries[i:]...)
	}
}

// inputSum totals in-window input tokens. Caller must hold a.mu.
func (a *AdmissionController) inputSum() int {
	sum := 0
	for _, e := range a.entries {
		sum += e.inputTokens
	}
	return sum
}
