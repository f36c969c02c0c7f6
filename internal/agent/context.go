package agent

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/projectlily/lily/internal/memory"
	"github.com/projectlily/lily/internal/schema"
	"github.com/projectlily/lily/internal/shared/llmutils"
)

// ErrTokensUnknown is returned when a message is appended before its token
// count has been set.
var ErrTokensUnknown = errors.New("message token count unknown")

const preamblePlaceholder = "Pre-Prompt Placeholder"

// MessageLog is the conversation as the model sees it: a replaceable
// preamble, the append-only history and a temporary overlay that is never
// persisted.
//
// MessageLog is owned by the loop goroutine and is not safe for concurrent use.
type MessageLog struct {
	preamble schema.Message
	history  schema.Messages
	temp     schema.Messages
}

func NewMessageLog() *MessageLog {
	return &MessageLog{preamble: schema.NewSystemMessage(schema.SeverityInfo, preamblePlaceholder)}
}

// Preamble returns slot 0.
func (l *MessageLog) Preamble() schema.Message { return l.preamble }

// UpdatePreamble replaces slot 0 and nothing else.
func (l *MessageLog) UpdatePreamble(text string, tokens int) {
	m := schema.NewSystemMessage(schema.SeverityInfo, text)
	_ = m.SetTokenCount(max(tokens, 0))
	l.preamble = m
}

// Append adds msg to the history. msg must carry its token count.
func (l *MessageLog) Append(msg schema.Message) error {
	if _, ok := msg.TokenCount(); !ok {
		return ErrTokensUnknown
	}
	slog.Debug("log", "role", msg.Role(), "content", llmutils.Truncate(msg.Content(), 120))
	l.history = append(l.history, msg)
	return nil
}

// AppendTemp adds msg to the overlay shown on the next render.
func (l *MessageLog) AppendTemp(msg schema.Message) { l.temp = append(l.temp, msg) }

// ClearTemp drops the overlay.
func (l *MessageLog) ClearTemp() { l.temp = nil }

// ClearHistory truncates the log back to the preamble.
func (l *MessageLog) ClearHistory() {
	l.history = nil
	l.temp = nil
}

// Render concatenates the preamble, the whole history and the overlay.
func (l *MessageLog) Render(f Format) string {
	return l.render(f, l.history)
}

// RenderBudget is Render restricted to the most recent history that fits in
// maxTokens once the preamble and overlay have been paid for.
func (l *MessageLog) RenderBudget(f Format, maxTokens int) string {
	pre, _ := l.preamble.TokenCount()
	budget := maxTokens - pre - l.temp.TotalTokens()
	return l.render(f, memory.SelectRecent(l.history, budget))
}

func (l *MessageLog) render(f Format, history schema.Messages) string {
	var b strings.Builder
	b.WriteString(f.Wrap(l.preamble))
	f.render(&b, history)
	f.render(&b, l.temp)
	return b.String()
}

// Len is the number of history messages, not counting the preamble.
func (l *MessageLog) Len() int { return len(l.history) }

func (l *MessageLog) TempLen() int { return len(l.temp) }

// History returns a copy of the history.
func (l *MessageLog) History() schema.Messages { return l.history.Clone() }

// TokenTotal sums the preamble and history token counts.
func (l *MessageLog) TokenTotal() int {
	pre, _ := l.preamble.TokenCount()
	return pre + l.history.TotalTokens()
}
