package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTokenCountSet is returned when a message's token count is written twice.
var ErrTokenCountSet = errors.New("token count already set")

// Role identifies which side of the conversation produced a message.
type Role int

const (
	RoleSystem Role = iota
	RoleUser
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, error) {
	switch s {
	case "system":
		return RoleSystem, nil
	case "user":
		return RoleUser, nil
	case "assistant":
		return RoleAssistant, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Severity grades a system message.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// String returns the storage name ("debug", "info", ...).
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Label returns the upper-case form shown to the model.
func (s Severity) Label() string { return strings.ToUpper(s.String()) }

// ParseSeverity accepts either the storage name or the label.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "debug":
		return SeverityDebug, nil
	case "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Message is one entry of the conversation: a system notice, something a user
// said, or something the agent generated while in a given action state.
//
// Messages are values. The only mutation allowed after construction is the
// single SetTokenCount call made by the agent loop.
type Message struct {
	role     Role
	severity Severity
	username string
	action   Action
	text     string
	time     time.Time

	tokens  int
	counted bool
}

// NewSystemMessage creates a system notice.
func NewSystemMessage(severity Severity, text string) Message {
	return Message{role: RoleSystem, severity: severity, text: text, time: time.Now()}
}

// NewUserMessage creates a message said by username.
func NewUserMessage(username, text string) Message {
	return Message{role: RoleUser, username: username, text: text, time: time.Now()}
}

// NewAssistantMessage creates agent output tagged with the action it was generated in.
func NewAssistantMessage(action Action, text string) Message {
	return Message{role: RoleAssistant, action: action, text: text, time: time.Now()}
}

func (m Message) Role() Role           { return m.role }
func (m Message) Severity() Severity   { return m.severity }
func (m Message) Username() string     { return m.username }
func (m Message) Action() Action       { return m.action }
func (m Message) Text() string         { return m.text }
func (m Message) Time() time.Time      { return m.time }
func (m Message) IsSay() bool          { return m.role == RoleAssistant && m.action.Kind == KindSay }
func (m *Message) SetTime(t time.Time) { m.time = t }

// Content renders the message body the way the model sees it, without any
// role prefix or suffix.
func (m Message) Content() string {
	switch m.role {
	case RoleSystem:
		return "[" + m.severity.Label() + "] " + m.text
	case RoleUser:
		return m.username + ": " + m.text
	case RoleAssistant:
		return m.action.Name() + ": " + m.text
	}
	return m.text
}

// TokenCount returns the tokenizer count and whether it has been set.
func (m Message) TokenCount() (int, bool) { return m.tokens, m.counted }

// SetTokenCount records the tokenizer count. It may be called once.
func (m *Message) SetTokenCount(n int) error {
	if m.counted {
		return ErrTokenCountSet
	}
	if n < 0 {
		return fmt.Errorf("negative token count %d", n)
	}
	m.tokens = n
	m.counted = true
	return nil
}

func (m Message) String() string { return m.Content() }
