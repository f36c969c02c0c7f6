// Package heartbeat keeps the agent aware of the passage of time. On every
// interval it posts the current time into the router as a debug-level system
// message, followed by the open items of HEARTBEAT.md when the workspace has
// one.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/schema"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 30 * time.Minute

// TimeLayout formats the wall clock in heartbeat messages.
const TimeLayout = "Monday, January 2, 2006 at 3:04 PM MST"

// InboundOpener is the part of the router the heartbeat needs.
type InboundOpener interface {
	OpenInbound(name string) *bus.Sender
}

// Service posts periodic time updates to the agent.
type Service struct {
	router    InboundOpener
	workspace string
	interval  time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a heartbeat. workspace may be empty, in which case
// HEARTBEAT.md is never consulted.
func NewService(router InboundOpener, workspace string, interval time.Duration, opts ...Option) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Service{
		router:    router,
		workspace: workspace,
		interval:  interval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements schema.Integration.
func (s *Service) Name() string { return string(bus.ChannelHeartbeat) }

// Start runs the heartbeat loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("heartbeat: no router")
	}
	out := s.router.OpenInbound(s.Name())
	defer out.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("heartbeat: started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			if err := s.beat(ctx, out); err != nil {
				if ctx.Err() != nil || errors.Is(err, bus.ErrClosed) {
					slog.Info("heartbeat: stopped")
					return nil
				}
				slog.Warn("heartbeat: send failed", "err", err)
			}
		case <-ctx.Done():
			slog.Info("heartbeat: stopped")
			return nil
		}
	}
}

func (s *Service) beat(ctx context.Context, out *bus.Sender) error {
	for _, msg := range s.Messages() {
		if err := out.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Messages returns what one heartbeat delivers.
func (s *Service) Messages() []schema.Message {
	msgs := []schema.Message{
		schema.NewSystemMessage(schema.SeverityDebug,
			fmt.Sprintf("The current time is %s.", s.now().Format(TimeLayout))),
	}
	if tasks := s.readTasks(); tasks != "" {
		msgs = append(msgs, schema.NewSystemMessage(schema.SeverityInfo, "Open tasks: "+tasks))
	}
	return msgs
}

func (s *Service) readTasks() string {
	if s.workspace == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(s.workspace, "HEARTBEAT.md"))
	if err != nil {
		// No file means no standing tasks.
		return ""
	}
	return strings.Join(activeTasks(string(data)), "; ")
}

// activeTasks returns the open items of HEARTBEAT.md: every line that is not
// blank, a comment, a heading or a ticked box. List and checkbox markers are
// stripped.
func activeTasks(content string) []string {
	var tasks []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case trimmed == "",
			strings.HasPrefix(trimmed, "<!--"),
			strings.HasPrefix(trimmed, "#"),
			strings.HasPrefix(lower, "- [x]"):
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "- [ ]")
		trimmed = strings.TrimPrefix(trimmed, "- ")
		if trimmed = strings.TrimSpace(trimmed); trimmed != "" {
			tasks = append(tasks, trimmed)
		}
	}
	return tasks
}
