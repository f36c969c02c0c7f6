package schema

import "context"

// Recollection is one long-term memory returned by a recall query.
type Recollection struct {
	Text     string
	Distance float64
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores texts by vector and answers nearest-neighbour queries.
// Query returns at most k results with distance <= maxDistance, closest first.
// A maxDistance <= 0 disables the cutoff.
type VectorIndex interface {
	Index(ctx context.Context, text string, vector []float32) error
	Query(ctx context.Context, vector []float32, k int, maxDistance float64) ([]Recollection, error)
}

// LogStore persists the conversation log.
// LoadRecent returns, oldest first, the longest suffix of history whose token
// counts sum to at most maxTokens.
type LogStore interface {
	Append(ctx context.Context, msg Message) error
	LoadRecent(ctx context.Context, maxTokens int) (Messages, error)
}
