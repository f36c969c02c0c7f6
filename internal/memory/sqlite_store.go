package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/projectlily/lily/internal/schema"
)

// ErrUncounted is returned when a message without a token count is persisted.
var ErrUncounted = errors.New("message has no token count")

// LogStore is the chat_log table.
type LogStore struct {
	db *DB
}

// NewLogStore returns a LogStore over db.
func NewLogStore(db *DB) *LogStore { return &LogStore{db: db} }

// Append persists msg. The token count must already be set.
func (s *LogStore) Append(ctx context.Context, msg schema.Message) error {
	tokens, ok := msg.TokenCount()
	if !ok {
		return ErrUncounted
	}

	var action, question, answers, severity string
	switch msg.Role() {
	case schema.RoleSystem:
		severity = msg.Severity().String()
	case schema.RoleAssistant:
		a := msg.Action()
		action = a.Name()
		if a.IsQuery() {
			question = a.Question
			b, err := json.Marshal(a.Answers)
			if err != nil {
				return fmt.Errorf("encode answers: %w", err)
			}
			answers = string(b)
		}
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO chat_log (role, user, content, action, question, answers, severity, time, token_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.Role().String(), msg.Username(), msg.Text(), action, question, answers, severity,
		msg.Time().UnixMilli(), tokens,
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

// LoadRecent returns the longest suffix of the log whose token counts fit in
// maxTokens, oldest first.
func (s *LogStore) LoadRecent(ctx context.Context, maxTokens int) (schema.Messages, error) {
	rows, err := s.db.sql.QueryContext(ctx, `
		SELECT role, user, content, action, question, answers, severity, time, token_count
		FROM (
			SELECT *, SUM(token_count) OVER (ORDER BY id DESC) AS running
			FROM chat_log
		)
		WHERE running <= ?
		ORDER BY id ASC`, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("query recent logs: %w", err)
	}
	defer rows.Close()

	var out schema.Messages
	for rows.Next() {
		var (
			role, user, content, action, question, answers, severity string
			ms                                                       int64
			tokens                                                   int
		)
		if err := rows.Scan(&role, &user, &content, &action, &question, &answers, &severity, &ms, &tokens); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		msg, err := decodeRow(role, user, content, action, question, answers, severity)
		if err != nil {
			return nil, err
		}
		msg.SetTime(time.UnixMilli(ms))
		if err := msg.SetTokenCount(tokens); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chat log: %w", err)
	}
	return out, nil
}

func decodeRow(role, user, content, action, question, answers, severity string) (schema.Message, error) {
	r, err := schema.ParseRole(role)
	if err != nil {
		return schema.Message{}, err
	}
	switch r {
	case schema.RoleSystem:
		sev, err := schema.ParseSeverity(severity)
		if err != nil {
			return schema.Message{}, err
		}
		return schema.NewSystemMessage(sev, content), nil
	case schema.RoleUser:
		return schema.NewUserMessage(user, content), nil
	default:
		qa, err := decodeAnswers(answers)
		if err != nil {
			return schema.Message{}, err
		}
		a, err := schema.ParseAction(action, question, qa)
		if err != nil {
			return schema.Message{}, err
		}
		return schema.NewAssistantMessage(a, content), nil
	}
}

// decodeAnswers reads the answers column. Rows written before answers were
// stored as JSON hold the "a|b|c" form.
func decodeAnswers(col string) (schema.QueryAnswers, error) {
	if !strings.HasPrefix(col, "{") {
		return schema.ParseQueryAnswers(col)
	}
	var qa schema.QueryAnswers
	if err := json.Unmarshal([]byte(col), &qa); err != nil {
		return schema.QueryAnswers{}, fmt.Errorf("decode answers: %w", err)
	}
	return qa, nil
}

// Stats summarises the stored log.
type Stats struct {
	Messages int
	Tokens   int
}

// Stats counts stored messages and tokens.
func (s *LogStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(token_count), 0) FROM chat_log`).Scan(&st.Messages, &st.Tokens)
	if err != nil {
		return Stats{}, fmt.Errorf("count chat log: %w", err)
	}
	return st, nil
}

// Clear deletes the whole log.
func (s *LogStore) Clear(ctx context.Context) error {
	if _, err := s.db.sql.ExecContext(ctx, `DELETE FROM chat_log`); err != nil {
		return fmt.Errorf("clear chat log: %w", err)
	}
	return nil
}

// Count returns the number of stored messages.
func (s *LogStore) Count(ctx context.Context) (int, error) {
	st, err := s.Stats(ctx)
	return st.Messages, err
}
