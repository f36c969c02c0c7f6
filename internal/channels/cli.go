package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/config/channel"
	"github.com/projectlily/lily/internal/shared/cmdutils"
)

var cliExitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// CLIChannel wires the terminal into the router: every line typed is said by
// the configured user, and what the agent says is printed above the prompt.
type CLIChannel struct {
	Base
	cfg       *channel.CLIConfig
	router    *Router
	agentName string
	onExit    func()
}

// NewCLIChannel creates a CLIChannel. onExit, if set, runs when the user
// leaves the console.
func NewCLIChannel(cfg *channel.CLIConfig, router *Router, agentName string, onExit func()) *CLIChannel {
	return &CLIChannel{
		Base:      NewBase(string(bus.ChannelCLI), nil, WithLogAll(cfg.Verbose)),
		cfg:       cfg,
		router:    router,
		agentName: agentName,
		onExit:    onExit,
	}
}

// Start runs the REPL until ctx is cancelled, stdin closes or the user exits.
func (c *CLIChannel) Start(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.cfg.Prompt,
		HistoryFile:     c.cfg.HistoryFile,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("cli: init readline: %w", err)
	}
	defer rl.Close()
	stop := context.AfterFunc(ctx, func() { _ = rl.Close() })
	defer stop()

	ep := c.router.OpenTwoWay(c.Name())
	defer ep.Close()

	relayCtx, cancel := context.WithCancel(ctx)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = c.Relay(relayCtx, ep.In, func(_ context.Context, text string) error {
			cmdutils.FprintResponse(rl.Stdout(), c.agentName, text)
			return nil
		})
	}()
	defer func() {
		cancel()
		<-relayDone
	}()

	fmt.Fprintf(rl.Stdout(), "Talking to %s. Type 'exit' or press Ctrl+C to quit.\n\n", c.agentName)
	username := c.cfg.Username
	if username == "" {
		username = "user"
	}

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				c.exit(rl.Stdout())
				return nil
			}
			slog.Warn("cli: read input", "err", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if cliExitCommands[strings.ToLower(input)] {
			c.exit(rl.Stdout())
			return nil
		}
		c.HandleMessage(ctx, ep.Out, username, username, input)
	}
}

func (c *CLIChannel) exit(w io.Writer) {
	fmt.Fprintln(w, "Goodbye!")
	if c.onExit != nil {
		c.onExit()
	}
}
