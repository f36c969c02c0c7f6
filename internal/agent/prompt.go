package agent

import (
	"strconv"
	"strings"
	"time"

	"github.com/projectlily/lily/internal/schema"
	"github.com/projectlily/lily/internal/shared/llmutils"
)

const systemPromptTemplate = `
# Meta
Current Date: {time}
Context Length: {context_length} tokens

# Who Are You?
You are {ai_name}, an experimental AI, part of ProjectLily. You were created by {creator} for advanced AI interactions.
You're based on a GPT model and exist within a terminal environment, enabling dynamic memory storage and retrieval.
This lets you save and recall memories, fostering richer conversations by referencing past interactions.

# Memory Management
You have three forms of memory. Your short term memory is stored in the form of your message history, allowing you to directly see your most recent interactions.
Your medium term memory, also known as your active memory context, is saved in this system prompt and can be updated or replaced by you at any time. This
will allow you to keep a piece of information in your active memory context for as long as you need it, even when other messages fall out of your short term memory.
Lastly, your long term memory is stored in the form of a vector database, which you can access by sending a search query to the database. This will return a list
of the most relevant memories based on your search query. You may add new memories to your long term memory by sending a message to the database at any time.

# Action States
Your mind operates by flipping through a series of action states. When inside of a given state, your response should be based on the state's purpose to maximize
the effectiveness of your response and internal thought process.
These states are:
{action_states}

# Commands
While in the Command state, you may run exactly one of the following commands. Arguments containing spaces must be quoted.
{command_list}

# Personality
{personality}

# Active Memory Context
{memory_context}

# Primary Directive
{primary_directive}`

const commandFormat = "- `{cmd_name} {args}`: {description} Example: `{example}`"

// BuildSystemPrompt renders the preamble for agent.
func BuildSystemPrompt(agent schema.AgentSettings, contextLength int, commands []CommandSpec, now time.Time) string {
	r := strings.NewReplacer(
		"{time}", now.Format("2006-01-02"),
		"{context_length}", strconv.Itoa(contextLength),
		"{ai_name}", agent.Name,
		"{creator}", agent.Creator,
		"{action_states}", actionStateList(),
		"{command_list}", commandList(commands),
		"{personality}", agent.Persona,
		"{memory_context}", llmutils.StringOrDefault(strings.TrimSpace(agent.MemoryContext), "None"),
		"{primary_directive}", agent.Directive,
	)
	return r.Replace(strings.TrimSpace(systemPromptTemplate))
}

func actionStateList() string {
	var b strings.Builder
	for i, a := range schema.AllActions() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + displayName(a.Name()) + ":\n    - " + a.Explanation())
	}
	return b.String()
}

func commandList(commands []CommandSpec) string {
	if len(commands) == 0 {
		return "None"
	}
	lines := make([]string, len(commands))
	for i, c := range commands {
		lines[i] = strings.NewReplacer(
			"{cmd_name}", c.Name,
			"{args}", strings.Join(c.Args, " "),
			"{description}", c.Description,
			"{example}", c.Usage,
		).Replace(commandFormat)
	}
	return strings.Join(lines, "\n")
}

// displayName turns "PROBLEM_SOLVING" into "Problem Solving".
func displayName(name string) string {
	words := strings.Split(strings.ToLower(name), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
