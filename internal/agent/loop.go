package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/projectlily/lily/internal/channels"
	"github.com/projectlily/lily/internal/schema"
	"github.com/projectlily/lily/internal/shared/llmutils"
)

const (
	DefaultContextLength = 2048
	DefaultStartupBudget = 4096
	DefaultRecallK       = 3
)

// Router is the loop's view of the channel fabric.
type Router interface {
	DrainInbound() []schema.Message
	Broadcast(ctx context.Context, msg schema.Message) channels.BroadcastReport
}

// LoopSettings tune one Loop.
type LoopSettings struct {
	Generation    schema.GenerationSettings
	ContextLength int
	// StartupBudget bounds how much persisted history Start loads.
	StartupBudget int
	// TickInterval pauses Run between ticks. Zero ticks back to back.
	TickInterval      time.Duration
	RecallK           int
	RecallMaxDistance float64
}

// DefaultGeneration returns the default sampling parameters.
func DefaultGeneration() schema.GenerationSettings {
	return schema.GenerationSettings{
		Temperature:   0.7,
		TopP:          1.0,
		MinP:          0.05,
		TopK:          40,
		Stop:          []string{"\n"},
		MaxTokens:     128,
		RepeatPenalty: 1.1,
		RepeatLastN:   64,
	}
}

func DefaultLoopSettings() LoopSettings {
	return LoopSettings{
		Generation:    DefaultGeneration(),
		ContextLength: DefaultContextLength,
		StartupBudget: DefaultStartupBudget,
		RecallK:       DefaultRecallK,
	}
}

// Loop is the agent's single-threaded cognitive cycle. Each Tick drains
// inbound messages, generates one thought for the next action state,
// records and broadcasts it, and runs it as a command when in COMMAND.
//
// All methods must be called from one goroutine.
type Loop struct {
	lm       schema.LanguageModel
	router   Router
	memory   *Memory
	states   *StateMachine
	commands *CommandSet
	contexts ContextStore

	agent    schema.AgentSettings
	format   Format
	settings LoopSettings
	now      func() time.Time

	pending *schema.Action
}

// LoopOption customises a Loop.
type LoopOption func(*Loop)

// WithContextStore persists the active memory context across restarts.
func WithContextStore(s ContextStore) LoopOption {
	return func(l *Loop) { l.contexts = s }
}

// WithClock overrides time.Now in the preamble.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) { l.now = now }
}

func NewLoop(
	lm schema.LanguageModel,
	router Router,
	memory *Memory,
	commands *CommandSet,
	agent schema.AgentSettings,
	format Format,
	settings LoopSettings,
	opts ...LoopOption,
) *Loop {
	if commands == nil {
		commands = NewCommandSet()
	}
	if settings.RecallK <= 0 {
		settings.RecallK = DefaultRecallK
	}
	l := &Loop{
		lm:       lm,
		router:   router,
		memory:   memory,
		states:   NewStateMachine(),
		commands: commands,
		agent:    agent,
		format:   format,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Memory() *Memory             { return l.memory }
func (l *Loop) Agent() schema.AgentSettings { return l.agent }

// Start installs the preamble and seeds the log from persisted history.
func (l *Loop) Start(ctx context.Context) error {
	if l.contexts != nil && strings.TrimSpace(l.agent.MemoryContext) == "" {
		l.agent.MemoryContext = l.contexts.ReadContext()
	}
	if err := l.RefreshPreamble(ctx); err != nil {
		return err
	}
	if err := l.memory.Load(ctx, l.settings.StartupBudget); err != nil {
		return err
	}
	slog.Info("agent started", "name", l.agent.Name, "history", l.memory.Log().Len())
	return nil
}

// RefreshPreamble rebuilds and re-tokenizes the system preamble.
func (l *Loop) RefreshPreamble(ctx context.Context) error {
	text := BuildSystemPrompt(l.agent, l.settings.ContextLength, l.commands.Specs(), l.now())
	n, err := l.countTokens(ctx, schema.NewSystemMessage(schema.SeverityInfo, text))
	if err != nil {
		return fmt.Errorf("tokenize preamble: %w", err)
	}
	l.memory.Log().UpdatePreamble(text, n)
	slog.Debug("preamble refreshed", "tokens", n)
	return nil
}

// Ask schedules query as the next action.
func (l *Loop) Ask(query schema.Action) {
	q := schema.Query(query.Question, query.Answers)
	l.pending = &q
}

// Run ticks until ctx is cancelled or a tick fails. Cancellation is not an error.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("Agent loop started")
	for {
		if ctx.Err() != nil {
			slog.Info("Agent loop stopping")
			return nil
		}
		if err := l.Tick(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				slog.Info("Agent loop stopping")
				return nil
			}
			return fmt.Errorf("tick: %w", err)
		}
		if l.settings.TickInterval > 0 {
			t := time.NewTimer(l.settings.TickInterval)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
}

// Tick runs one cycle step.
func (l *Loop) Tick(ctx context.Context) error {
	for _, msg := range l.router.DrainInbound() {
		if err := l.record(ctx, &msg); err != nil {
			return err
		}
	}

	action := l.nextAction()

	gen := l.settings.Generation
	gen.Grammar = action.Grammar()

	log := l.memory.Log()
	prompt := log.RenderBudget(l.format, l.settings.ContextLength-gen.MaxTokens) + l.format.PromptSuffix(action)

	text, err := l.complete(ctx, prompt, gen)
	if err != nil {
		return err
	}
	log.ClearTemp()

	msg := schema.NewAssistantMessage(action, text)
	if err := l.emit(ctx, msg); err != nil {
		return err
	}

	if action.Kind == schema.KindCommand {
		return l.execute(ctx, text)
	}
	return nil
}

func (l *Loop) nextAction() schema.Action {
	if l.pending != nil {
		q := *l.pending
		l.pending = nil
		return l.states.Interrupt(q)
	}
	return l.states.Next()
}

// complete calls the model until it produces non-blank text.
func (l *Loop) complete(ctx context.Context, prompt string, gen schema.GenerationSettings) (string, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		c, err := l.lm.Complete(ctx, prompt, gen)
		if err != nil {
			return "", fmt.Errorf("complete: %w", err)
		}
		if text := llmutils.CleanCompletion(c.Text); text != "" {
			return text, nil
		}
		slog.Debug("empty completion, retrying", "attempt", attempt)
	}
}

func (l *Loop) countTokens(ctx context.Context, msg schema.Message) (int, error) {
	toks, err := l.lm.Tokenize(ctx, l.format.Wrap(msg))
	if err != nil {
		return 0, err
	}
	return len(toks), nil
}

// record token-annotates msg and appends it to memory.
func (l *Loop) record(ctx context.Context, msg *schema.Message) error {
	if _, ok := msg.TokenCount(); !ok {
		n, err := l.countTokens(ctx, *msg)
		if err != nil {
			return fmt.Errorf("tokenize message: %w", err)
		}
		if err := msg.SetTokenCount(n); err != nil {
			return err
		}
	}
	return l.memory.Append(ctx, *msg)
}

// emit records msg and broadcasts it to every outbound channel.
func (l *Loop) emit(ctx context.Context, msg schema.Message) error {
	if err := l.record(ctx, &msg); err != nil {
		return err
	}
	l.router.Broadcast(ctx, msg)
	return nil
}

// execute runs line as a command. Command mistakes are shown to the model as
// temporary errors; only infrastructure failures are returned.
func (l *Loop) execute(ctx context.Context, line string) error {
	inv, err := l.commands.Parse(line)
	if err == nil {
		err = l.run(ctx, inv)
	}
	if err == nil {
		return nil
	}
	if ce, ok := AsCommandError(err); ok {
		slog.Debug("command rejected", "line", line, "err", ce.Error())
		l.memory.Log().AppendTemp(schema.NewSystemMessage(schema.SeverityError, ce.Error()))
		return nil
	}
	return err
}

func (l *Loop) run(ctx context.Context, inv Invocation) error {
	switch inv.Spec.Kind {
	case CmdSay:
		return l.emit(ctx, schema.NewAssistantMessage(schema.Say, inv.Args[0]))

	case CmdThink:
		return nil

	case CmdSaveMemory:
		if err := l.memory.Remember(ctx, inv.Args[0]); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return internalError(inv, "Failed to save memory: %v", err)
		}
		return l.emit(ctx, schema.NewSystemMessage(schema.SeverityInfo, "This memory has been saved."))

	case CmdRecallMemory:
		hits, err := l.memory.Recall(ctx, inv.Args[0], l.settings.RecallK, l.settings.RecallMaxDistance)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return internalError(inv, "Failed to recall memories: %v", err)
		}
		return l.emit(ctx, schema.NewSystemMessage(schema.SeverityInfo, formatRecollections(hits)))

	case CmdSetContext:
		l.agent.MemoryContext = strings.TrimSpace(inv.Args[0])
		if l.contexts != nil {
			if err := l.contexts.WriteContext(l.agent.MemoryContext); err != nil {
				return internalError(inv, "Failed to store the memory context: %v", err)
			}
		}
		if err := l.RefreshPreamble(ctx); err != nil {
			return err
		}
		return l.emit(ctx, schema.NewSystemMessage(schema.SeverityInfo, "Your active memory context has been updated."))

	case CmdAsk:
		answers := schema.QueryAnswers{Kind: schema.AnswerBoolean}
		if len(inv.Args) == 2 {
			qa, err := schema.ParseQueryAnswers(inv.Args[1])
			if err != nil {
				return invalidArgument(inv, "The answers must be boolean, number, string or a list like \"a|b|c\"")
			}
			answers = qa
		}
		l.Ask(schema.Query(inv.Args[0], answers))
		return nil
	}
	return internalError(inv, "The command is not implemented.")
}

func formatRecollections(hits []schema.Recollection) string {
	if len(hits) == 0 {
		return "No memories matched your search."
	}
	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = "- `" + h.Text + "`"
	}
	return "Recalled the following memories:\n" + strings.Join(lines, "\n")
}
