package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/projectlily/lily/internal/dependency"
	"github.com/projectlily/lily/internal/providers"
	"github.com/projectlily/lily/internal/shared/cmdutils"
)

var runSkipValidate bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the agent loop and every enabled integration",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runAgent(false)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the agent with the console integration enabled",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runAgent(true)
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, chatCmd} {
		c.Flags().BoolVar(&runSkipValidate, "skip-validate", false, "Do not check the LM server before starting")
	}
}

func runAgent(forceCLI bool) error {
	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, c, err := newContainer(dependency.Options{ForceCLI: forceCLI, OnExit: stop})
	if err != nil {
		return err
	}
	defer c.Close()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s:\n%w", resolvedConfigPath(), err)
	}

	loop, err := c.Loop()
	if err != nil {
		return err
	}
	manager, err := c.ChannelManager()
	if err != nil {
		return err
	}

	if !runSkipValidate && cfg.Provider.ValidateOnStart {
		if err := validateLM(ctx, c); err != nil {
			return err
		}
	}

	if err := loop.Start(ctx); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	if enabled := manager.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("Warning: no channels enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A failed loop takes the integrations down with it.
		defer stop()
		return loop.Run(gctx)
	})
	g.Go(func() error { return manager.StartAll(gctx) })

	fmt.Printf("%s %s is running. Press Ctrl+C to stop.\n", cmdutils.Logo, loop.Agent().Name)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("agent stopped: %w", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}

func validateLM(ctx context.Context, c *dependency.Container) error {
	lm, err := c.LanguageModel()
	if err != nil {
		return err
	}
	v, ok := lm.(providers.Validator)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := v.Validate(ctx); err != nil {
		return fmt.Errorf("language model server: %w", err)
	}
	return nil
}
