package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/projectlily/lily/internal/schema"
)

func TestBuildSystemPrompt(t *testing.T) {
	agent := schema.NewAgentSettings("Lily", "Alice", "Curious and kind.", "Help people.", "")
	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	got := BuildSystemPrompt(agent, 2048, NewCommandSet(CmdSay).Specs(), now)

	assert.True(t, strings.HasPrefix(got, "# Meta\nCurrent Date: 2024-03-09\nContext Length: 2048 tokens"))
	assert.Contains(t, got, "You are Lily, an experimental AI")
	assert.Contains(t, got, "created by Alice")
	assert.Contains(t, got, "# Personality\nCurious and kind.")
	assert.Contains(t, got, "# Active Memory Context\nNone")
	assert.True(t, strings.HasSuffix(got, "# Primary Directive\nHelp people."))
	assert.Contains(t, got, "- `say <message>`: Say something out-loud to the user. Example: `say \"Hello, world!\"`")
	assert.NotContains(t, got, "{")

	for _, a := range schema.AllActions() {
		assert.Contains(t, got, a.Explanation())
	}
	assert.Contains(t, got, "- Problem Solving:\n    - ")
}

func TestBuildSystemPromptMemoryContext(t *testing.T) {
	agent := schema.NewAgentSettings("Lily", "Alice", "", "", "Talking with Bob about tea.")
	got := BuildSystemPrompt(agent, 1024, nil, time.Now())
	assert.Contains(t, got, "# Active Memory Context\nTalking with Bob about tea.")
	assert.Contains(t, got, "# Commands\nWhile in the Command state")
}
