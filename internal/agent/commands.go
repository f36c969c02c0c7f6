package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// CommandKind enumerates every command the interpreter understands.
type CommandKind int

const (
	CmdSay CommandKind = iota
	CmdThink
	CmdSaveMemory
	CmdRecallMemory
	CmdSetContext
	CmdAsk
)

// CommandSpec is how a command is presented to the model and to users.
type CommandSpec struct {
	Kind        CommandKind
	Name        string
	Args        []string
	Description string
	Usage       string
	// MinArgs and MaxArgs bound the argument count.
	MinArgs, MaxArgs int
}

var builtinCommands = []CommandSpec{
	{
		Kind:        CmdSay,
		Name:        "say",
		Args:        []string{"<message>"},
		Description: "Say something out-loud to the user.",
		Usage:       `say "Hello, world!"`,
		MinArgs:     1, MaxArgs: 1,
	},
	{
		Kind:        CmdThink,
		Name:        "think",
		Args:        []string{"<message>"},
		Description: "Think something to yourself.",
		Usage:       `think "I wonder what I'm going to do, tomorrow."`,
		MinArgs:     1, MaxArgs: 1,
	},
	{
		Kind:        CmdSaveMemory,
		Name:        "save_memory",
		Args:        []string{"<memory>"},
		Description: "Saves a memory to your long-term memory database.",
		Usage:       `save_memory "This is something I want to remember forever."`,
		MinArgs:     1, MaxArgs: 1,
	},
	{
		Kind:        CmdRecallMemory,
		Name:        "recall_memory",
		Args:        []string{"<search_terms>"},
		Description: "Recalls memories from your long-term memory database matching the search string.",
		Usage:       `recall_memory "favorite color"`,
		MinArgs:     1, MaxArgs: 1,
	},
	{
		Kind:        CmdSetContext,
		Name:        "set_context",
		Args:        []string{"<context>"},
		Description: "Replaces your active memory context with the given text.",
		Usage:       `set_context "I am talking with Alice about her garden."`,
		MinArgs:     1, MaxArgs: 1,
	},
	{
		Kind:        CmdAsk,
		Name:        "ask",
		Args:        []string{"<question>", "[answers]"},
		Description: "Asks yourself a question to answer in your next thought. Answers may be boolean, number, string or a list like \"a|b|c\".",
		Usage:       `ask "Should I greet the user?" boolean`,
		MinArgs:     1, MaxArgs: 2,
	},
}

// CommandSet is the registry of commands available to one loop.
type CommandSet struct {
	specs []CommandSpec
}

// NewCommandSet enables the given commands, or every builtin when none are given.
func NewCommandSet(kinds ...CommandKind) *CommandSet {
	if len(kinds) == 0 {
		return &CommandSet{specs: append([]CommandSpec(nil), builtinCommands...)}
	}
	set := &CommandSet{}
	for _, spec := range builtinCommands {
		for _, k := range kinds {
			if spec.Kind == k {
				set.specs = append(set.specs, spec)
				break
			}
		}
	}
	return set
}

// CommandSetFromNames enables commands by name. Unknown names are an error.
func CommandSetFromNames(names []string) (*CommandSet, error) {
	if len(names) == 0 {
		return NewCommandSet(), nil
	}
	var kinds []CommandKind
	for _, n := range names {
		spec, ok := NewCommandSet().Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown command %q", n)
		}
		kinds = append(kinds, spec.Kind)
	}
	return NewCommandSet(kinds...), nil
}

func (c *CommandSet) Specs() []CommandSpec { return append([]CommandSpec(nil), c.specs...) }

func (c *CommandSet) Lookup(name string) (CommandSpec, bool) {
	for _, s := range c.specs {
		if s.Name == name {
			return s, true
		}
	}
	return CommandSpec{}, false
}

func (c *CommandSet) Names() []string {
	names := make([]string, len(c.specs))
	for i, s := range c.specs {
		names[i] = s.Name
	}
	return names
}

// Invocation is a parsed command line.
type Invocation struct {
	Spec CommandSpec
	Args []string
}

// Parse splits line shell-style, resolves the command and checks its arity.
// Every error it returns is a *CommandError.
func (c *CommandSet) Parse(line string) (Invocation, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return Invocation{}, &CommandError{Kind: ErrKindFormat}
	}
	if len(fields) == 0 {
		return Invocation{}, &CommandError{Kind: ErrKindEmpty}
	}

	name := strings.ToLower(fields[0])
	spec, ok := c.Lookup(name)
	if !ok {
		return Invocation{}, &CommandError{Kind: ErrKindInvalidCommand, Command: name, available: c.Names()}
	}

	args := fields[1:]
	if len(args) < spec.MinArgs || len(args) > spec.MaxArgs {
		return Invocation{}, &CommandError{
			Kind:    ErrKindInvalidArguments,
			Command: name,
			Reason:  arityReason(spec),
			usage:   spec.Usage,
		}
	}
	return Invocation{Spec: spec, Args: args}, nil
}

func arityReason(spec CommandSpec) string {
	switch {
	case spec.MinArgs == spec.MaxArgs && spec.MinArgs == 1:
		return fmt.Sprintf("The `%s` command expects exactly one argument", spec.Name)
	case spec.MinArgs == spec.MaxArgs:
		return fmt.Sprintf("The `%s` command expects exactly %d arguments", spec.Name, spec.MinArgs)
	default:
		return fmt.Sprintf("The `%s` command expects between %d and %d arguments", spec.Name, spec.MinArgs, spec.MaxArgs)
	}
}

// CommandErrorKind classifies a user-facing command failure.
type CommandErrorKind int

const (
	ErrKindInvalidCommand CommandErrorKind = iota
	ErrKindInvalidArguments
	ErrKindInternal
	ErrKindFormat
	ErrKindEmpty
)

// CommandError is a mistake in a command the model issued. Its Error text is
// shown back to the model as a temporary system message.
type CommandError struct {
	Kind    CommandErrorKind
	Command string
	Reason  string

	usage     string
	available []string
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case ErrKindInvalidCommand:
		quoted := make([]string, len(e.available))
		for i, n := range e.available {
			quoted[i] = "`" + n + "`"
		}
		return fmt.Sprintf("You have entered an invalid command: `%s`. Available commands: %s", e.Command, strings.Join(quoted, ", "))
	case ErrKindInvalidArguments:
		return fmt.Sprintf("You have used the command `%s` incorrectly. %s\nExample usage: `%s`", e.Command, e.Reason, e.usage)
	case ErrKindInternal:
		return fmt.Sprintf("An internal error has occurred while executing the command `%s`. %s", e.Command, e.Reason)
	case ErrKindFormat:
		return "The command you entered could not be parsed. Make sure you are using quotes and whitespace correctly."
	default:
		return "The command you entered was empty."
	}
}

func internalError(inv Invocation, format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrKindInternal, Command: inv.Spec.Name, Reason: fmt.Sprintf(format, args...)}
}

func invalidArgument(inv Invocation, reason string) *CommandError {
	return &CommandError{Kind: ErrKindInvalidArguments, Command: inv.Spec.Name, Reason: reason, usage: inv.Spec.Usage}
}

// AsCommandError reports whether err is a user-facing command error.
func AsCommandError(err error) (*CommandError, bool) {
	var ce *CommandError
	ok := errors.As(err, &ce)
	return ce, ok
}
