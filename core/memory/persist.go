package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store is the persistence capability the caller supplies: one record per
// (agent, script, revision) triple. The core never reads it back.
type Store interface {
	SaveMemory(ctx context.Context, mem *AgentMemory) error
}

// PersistResult reports the outcome of one background write.
type PersistResult struct {
	Key string
	Err error
}

// AsyncPersister writes memories in the background without blocking the
// interaction path. Every outcome is observable on Results, not just
// logged, so callers can decide whether to retry.
type AsyncPersister struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	results chan PersistResult
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewAsyncPersister creates a persister that reports outcomes on a
// buffered channel of the given size.
func NewAsyncPersister(store Store, resultBuffer int, timeout time.Duration, logger *slog.Logger) *AsyncPersister {
	if resultBuffer <= 0 {
		resultBuffer = 64
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncPersister{
		store:   store,
		logger:  logger,
		timeout: timeout,
		results: make(chan PersistResult, resultBuffer),
	}
}

// Persist schedules a background write. Returns false if the persister is
// already closed.
func (p *AsyncPersister) Persist(mem *AgentMemory) bool {
	if mem == nil {
		return false
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		key := CacheKey(mem.AgentID, mem.ScriptID, mem.RevisionID)
		err := p.store.SaveMemory(ctx, mem)
		if err != nil {
			p.logger.Error("background memory persist failed",
				"key", key,
				"error", err,
			)
		}

		select {
		case p.results <- PersistResult{Key: key, Err: err}:
		default:
			// Results channel full; the log line above remains the record.
		}
	}()
	return true
}

// Results exposes write outcomes for callers that retry or alert.
func (p *AsyncPersister) Results() <-chan PersistResult {
	return p.results
}

// Close waits for in-flight writes and closes the results channel.
func (p *AsyncPersister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	close(p.results)
}
