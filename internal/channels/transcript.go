package channels

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/schema"
)

// TranscriptEntry is one line of a transcript file.
type TranscriptEntry struct {
	Role      string `json:"role"`
	Action    string `json:"action,omitempty"`
	User      string `json:"user,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func entryFromMessage(msg schema.Message) TranscriptEntry {
	e := TranscriptEntry{
		Role:      msg.Role().String(),
		Content:   msg.Text(),
		Timestamp: msg.Time().UTC().Format(time.RFC3339Nano),
	}
	switch msg.Role() {
	case schema.RoleSystem:
		e.Severity = msg.Severity().String()
	case schema.RoleUser:
		e.User = msg.Username()
	case schema.RoleAssistant:
		e.Action = msg.Action().Name()
	}
	return e
}

// TranscriptSink appends every message the agent broadcasts to a JSONL file.
type TranscriptSink struct {
	path   string
	router *Router
}

func NewTranscriptSink(path string, router *Router) *TranscriptSink {
	return &TranscriptSink{path: path, router: router}
}

func (t *TranscriptSink) Name() string { return string(bus.ChannelTranscript) }

func (t *TranscriptSink) Path() string { return t.path }

// Start opens the outbound channel and writes until the agent closes it or
// ctx is cancelled.
func (t *TranscriptSink) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript %s: %w", t.path, err)
	}
	defer f.Close()

	in := t.router.OpenOutbound(t.Name())
	defer in.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for {
		msg, err := in.Receive(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrEndOfStream) || errors.Is(err, bus.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := enc.Encode(entryFromMessage(msg)); err != nil {
			slog.Warn("transcript: write failed", "path", t.path, "err", err)
		}
	}
}

// ReadTranscript loads every entry of the transcript at path, skipping lines
// that do not parse.
func ReadTranscript(path string) ([]TranscriptEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript %s: %w", path, err)
	}
	defer f.Close()

	var out []TranscriptEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var e TranscriptEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			slog.Warn("transcript: skipping bad line", "path", path, "err", err)
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read transcript %s: %w", path, err)
	}
	return out, nil
}
