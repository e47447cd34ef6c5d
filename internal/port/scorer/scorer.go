// Package scorer defines the relevance scoring port (interface).
package scorer

import "context"

// Scorer rates how relevant a piece of content is to the given keywords.
// The score is in [0,1]. Errors are always candidate-local: callers drop the
// candidate and continue.
type Scorer interface {
	Score(ctx context.Context, text string, keywords []string) (float64, error)
}
