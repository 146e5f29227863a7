// Package llm defines the completion-service contract shared by all
// greenroom components and the admission control that gates calls to it.
package llm

import (
	"context"
)

// Completion is the result of a single text completion call.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// CompletionService is the capability greenroom requires from its
// environment: given a system instruction and a prompt, produce text and
// report token consumption. Implementations live in core/providers;
// tests substitute scripted fakes.
type CompletionService interface {
	Complete(ctx context.Context, system, prompt string, maxOutputTokens int) (*Completion, error)
}
