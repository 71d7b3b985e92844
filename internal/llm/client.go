// Package llm is the boundary to the language-model provider. Calls are
// never retried here; upstream failures surface once to the caller.
package llm

import "context"

// Fragment is one incremental unit of streamed completion text.
type Fragment struct {
	Text string `json:"text"`
}

type Client interface {
	// Generate runs one blocking completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream opens an incremental completion. The returned channel is
	// lazy, finite and not restartable; it closes when the upstream
	// signals completion or the context is cancelled.
	Stream(ctx context.Context, prompt string) (<-chan Fragment, error)
}
