package channels

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/schema"
)

func waitForChannel(t *testing.T, r *Router, name string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return slices.Contains(r.Channels(), name)
	}, 2*time.Second, 5*time.Millisecond, "channel %s never opened", name)
}

func TestTranscriptSinkWritesEveryBroadcast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts", "today.jsonl")
	r := NewRouter()
	sink := NewTranscriptSink(path, r)

	done := make(chan error, 1)
	go func() { done <- sink.Start(context.Background()) }()
	waitForChannel(t, r, bus.ToExternal("transcript"))

	ctx := context.Background()
	r.Broadcast(ctx, schema.NewAssistantMessage(schema.SituationalAnalysis, "Nobody is here <yet>."))
	r.Broadcast(ctx, schema.NewAssistantMessage(schema.Say, "Hello!"))
	r.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not stop")
	}

	entries, err := ReadTranscript(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "assistant", entries[0].Role)
	assert.Equal(t, "SITUATIONAL_ANALYSIS", entries[0].Action)
	assert.Equal(t, "Nobody is here <yet>.", entries[0].Content)
	assert.Equal(t, "SAY", entries[1].Action)
	assert.NotEmpty(t, entries[1].Timestamp)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<yet>", "html must not be escaped")
}

func TestTranscriptSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"role":"system","severity":"info","content":"earlier","timestamp":"x"}`+"\nnot json\n"), 0o644))

	r := NewRouter()
	sink := NewTranscriptSink(path, r)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Start(ctx) }()
	waitForChannel(t, r, bus.ToExternal("transcript"))

	r.Broadcast(context.Background(), schema.NewAssistantMessage(schema.Say, "later"))
	require.Eventually(t, func() bool {
		entries, err := ReadTranscript(path)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	entries, err := ReadTranscript(path)
	require.NoError(t, err)
	assert.Equal(t, "earlier", entries[0].Content)
	assert.Equal(t, "later", entries[1].Content)
}

func TestReadTranscriptMissing(t *testing.T) {
	_, err := ReadTranscript(filepath.Join(t.TempDir(), "none.jsonl"))
	assert.Error(t, err)
}
