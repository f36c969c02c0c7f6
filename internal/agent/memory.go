// Package agent contains the core agent loop and its supporting components.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/projectlily/lily/internal/schema"
)

// ErrRecallUnavailable is returned by Recall and Remember when no embedder or
// vector index is configured.
var ErrRecallUnavailable = errors.New("long-term memory is not configured")

// Memory couples the in-process MessageLog with persistence and long-term
// recall. Any collaborator may be nil.
type Memory struct {
	log      *MessageLog
	store    schema.LogStore
	embedder schema.Embedder
	index    schema.VectorIndex
}

func NewMemory(log *MessageLog, store schema.LogStore, embedder schema.Embedder, index schema.VectorIndex) *Memory {
	if log == nil {
		log = NewMessageLog()
	}
	return &Memory{log: log, store: store, embedder: embedder, index: index}
}

func (m *Memory) Log() *MessageLog { return m.log }

// Load seeds the history with the most recent persisted messages that fit in
// maxTokens.
func (m *Memory) Load(ctx context.Context, maxTokens int) error {
	if m.store == nil {
		return nil
	}
	msgs, err := m.store.LoadRecent(ctx, maxTokens)
	if err != nil {
		return fmt.Errorf("load chat log: %w", err)
	}
	for _, msg := range msgs {
		if err := m.log.Append(msg); err != nil {
			return fmt.Errorf("restore chat log: %w", err)
		}
	}
	slog.Info("memory loaded", "messages", len(msgs), "tokens", msgs.TotalTokens())
	return nil
}

// Append persists msg and then adds it to the log.
func (m *Memory) Append(ctx context.Context, msg schema.Message) error {
	if _, ok := msg.TokenCount(); !ok {
		return ErrTokensUnknown
	}
	if m.store != nil {
		if err := m.store.Append(ctx, msg); err != nil {
			return fmt.Errorf("persist message: %w", err)
		}
	}
	return m.log.Append(msg)
}

// Recall finds up to k memories within maxDistance of query. Results are not
// added to the log.
func (m *Memory) Recall(ctx context.Context, query string, k int, maxDistance float64) ([]schema.Recollection, error) {
	if m.embedder == nil || m.index == nil {
		return nil, ErrRecallUnavailable
	}
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := m.index.Query(ctx, vec, k, maxDistance)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	return hits, nil
}

// Remember embeds text and stores it in long-term memory.
func (m *Memory) Remember(ctx context.Context, text string) error {
	if m.embedder == nil || m.index == nil {
		return ErrRecallUnavailable
	}
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed memory: %w", err)
	}
	if err := m.index.Index(ctx, text, vec); err != nil {
		return fmt.Errorf("index memory: %w", err)
	}
	return nil
}

// logClearer is implemented by stores that can drop the persisted log.
type logClearer interface {
	Clear(ctx context.Context) error
}

// Forget deletes the persisted conversation log and empties the in-process
// history. The preamble and long-term memories are kept.
func (m *Memory) Forget(ctx context.Context) error {
	if c, ok := m.store.(logClearer); ok {
		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("clear chat log: %w", err)
		}
	}
	m.log.ClearHistory()
	return nil
}
