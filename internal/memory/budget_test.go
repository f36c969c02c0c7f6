package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/projectlily/lily/internal/schema"
)

func counted(text string, tokens int) schema.Message {
	m := schema.NewUserMessage("u", text)
	_ = m.SetTokenCount(tokens)
	return m
}

func TestSelectRecentSuffix(t *testing.T) {
	msgs := schema.Messages{counted("a", 5), counted("b", 3), counted("c", 4)}

	tests := []struct {
		budget int
		want   []string
	}{
		{-1, nil},
		{0, nil},
		{3, nil},
		{4, []string{"c"}},
		{6, []string{"c"}},
		{7, []string{"b", "c"}},
		{11, []string{"b", "c"}},
		{12, []string{"a", "b", "c"}},
		{100, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		got := SelectRecent(msgs, tt.budget)
		var names []string
		for _, m := range got {
			names = append(names, m.Text())
		}
		assert.Equal(t, tt.want, names, "budget %d", tt.budget)
		assert.LessOrEqual(t, got.TotalTokens(), max(tt.budget, 0))
	}
}

func TestSelectRecentStopsAtFirstOverflow(t *testing.T) {
	// A small old message must not be picked up past a large one.
	msgs := schema.Messages{counted("tiny", 1), counted("huge", 50), counted("new", 2)}
	got := SelectRecent(msgs, 10)
	assert.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Text())
}

func TestSelectRecentMonotone(t *testing.T) {
	msgs := schema.Messages{counted("a", 2), counted("b", 7), counted("c", 1), counted("d", 3)}
	prev := 0
	for budget := 0; budget <= 20; budget++ {
		n := len(SelectRecent(msgs, budget))
		assert.GreaterOrEqual(t, n, prev, "budget %d", budget)
		prev = n
	}
}
