// Package channels connects the agent to the outside world: the Router that
// owns every pipe, and the integrations that translate chat platforms onto
// those pipes.
package channels

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/schema"
)

// Base holds the state and helpers shared by all integrations.
type Base struct {
	name      string
	allowFrom []string // empty = allow all
	logAll    bool
	limiter   *rate.Limiter
}

// BaseOption customises a Base.
type BaseOption func(*Base)

// WithLogAll relays every assistant thought, labelled with its action,
// instead of only what the agent says.
func WithLogAll(on bool) BaseOption {
	return func(b *Base) { b.logAll = on }
}

// WithRateLimit caps outbound sends at perSecond, with a burst of one.
// Zero or less disables throttling.
func WithRateLimit(perSecond float64) BaseOption {
	return func(b *Base) {
		if perSecond > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewBase creates a Base with the given integration name and allowlist.
func NewBase(name string, allowFrom []string, opts ...BaseOption) Base {
	b := Base{name: name, allowFrom: allowFrom}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *Base) Name() string { return b.name }

// IsAllowed checks whether senderID is on the allowlist.
// senderID may be "id|username" (Telegram) or a plain string.
func (b *Base) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, allowed := range b.allowFrom {
		if allowed == senderID {
			return true
		}
	}
	if strings.Contains(senderID, "|") {
		for _, part := range strings.Split(senderID, "|") {
			if part == "" {
				continue
			}
			for _, allowed := range b.allowFrom {
				if allowed == part {
					return true
				}
			}
		}
	}
	return false
}

// HandleMessage verifies the sender is allowed, then forwards what they said
// to the agent. It reports whether the message was delivered.
func (b *Base) HandleMessage(ctx context.Context, out *bus.Sender, senderID, username, text string) bool {
	if !b.IsAllowed(senderID) {
		slog.Warn("access denied", "channel", b.name, "sender", senderID)
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if username == "" {
		username = senderID
	}
	if err := out.Send(ctx, schema.NewUserMessage(username, text)); err != nil {
		slog.Warn("failed to send message to agent", "channel", b.name, "err", err)
		return false
	}
	return true
}

// Notify sends a system notice to the agent, logging failures.
func (b *Base) Notify(ctx context.Context, out *bus.Sender, severity schema.Severity, text string) {
	if err := out.Send(ctx, schema.NewSystemMessage(severity, text)); err != nil {
		slog.Warn("failed to send notice to agent", "channel", b.name, "err", err)
	}
}

// Render picks the text an external user should see for msg. Only SAY is
// shown unless logAll is set; user messages are never echoed back.
func (b *Base) Render(msg schema.Message) (string, bool) {
	if msg.IsSay() {
		return msg.Text(), msg.Text() != ""
	}
	if b.logAll && msg.Role() != schema.RoleUser {
		return msg.Content(), true
	}
	return "", false
}

// Relay reads the agent's outbound messages from in and hands the ones worth
// showing to send, throttled by the rate limit. It returns nil when the agent
// closes the channel or ctx ends. Send failures are logged and skipped.
func (b *Base) Relay(ctx context.Context, in *bus.Receiver, send func(ctx context.Context, text string) error) error {
	for {
		msg, err := in.Receive(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrEndOfStream) || errors.Is(err, bus.ErrClosed) {
				slog.Info("connection to agent closed", "channel", b.name)
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		text, ok := b.Render(msg)
		if !ok {
			continue
		}
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		if err := send(ctx, text); err != nil {
			slog.Warn("send error", "channel", b.name, "err", err)
		}
	}
}

// splitMessage splits content into chunks that fit within maxLen bytes,
// preferring newline breaks, then space breaks, then a hard cut on a rune
// boundary.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
			for pos > 0 && !utf8.RuneStart(content[pos]) {
				pos--
			}
			if pos == 0 {
				pos = maxLen
			}
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t\n")
	}
	return chunks
}
