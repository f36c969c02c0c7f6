package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/projectlily/lily/internal/dependency"
	"github.com/projectlily/lily/internal/providers"
	"github.com/projectlily/lily/internal/shared/cmdutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lily status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	fmt.Printf("%s lily Status\n\n", cmdutils.Logo)
	fmt.Printf("Config:    %s %s\n", cfgPath, cmdutils.YesNo(exists(cfgPath)))

	cfg, c, err := newContainer(dependency.Options{})
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}
	defer c.Close()

	if err := cfg.Validate(); err != nil {
		fmt.Println("  Config problems:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("    - %s\n", line)
		}
	}

	agentPath := personaPath
	if agentPath == "" {
		agentPath = cfg.PersonaPath()
	}
	fmt.Printf("Agent:     %s %s\n", agentPath, cmdutils.YesNo(exists(agentPath)))
	if p, err := c.Persona(); err == nil {
		fmt.Printf("  Name:    %s (context %d, max tokens %d)\n",
			p.Name, p.Completion.ContextLength, p.Completion.MaxTokens)
	} else {
		fmt.Printf("  (%v)\n", err)
	}

	ws := cfg.WorkspacePath()
	fmt.Printf("Workspace: %s %s\n", ws, cmdutils.YesNo(exists(ws)))

	spec := providers.Resolve(cfg.Provider.Name, cfg.Provider.APIBase)
	fmt.Printf("\nLM server: %s at %s\n", spec.Label(), cfg.Provider.APIBase)
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := validateLM(ctx, c); err != nil {
		fmt.Printf("  ✗ %v\n", err)
	} else {
		fmt.Println("  ✓ reachable")
	}

	fmt.Printf("\nDatabase:  %s\n", cfg.DatabasePath())
	if logs, err := c.LogStore(); err == nil {
		if st, err := logs.Stats(ctx); err == nil {
			fmt.Printf("  Messages: %d (%d tokens)\n", st.Messages, st.Tokens)
		}
	} else {
		fmt.Printf("  ✗ %v\n", err)
	}
	if vs, err := c.VectorStore(); err == nil && vs != nil {
		if n, err := vs.Count(ctx); err == nil {
			fmt.Printf("  Memories: %d\n", n)
		}
	} else if err == nil {
		fmt.Println("  Memories: recall disabled")
	}

	enabled := cfg.Channels.Enabled()
	if len(enabled) == 0 {
		fmt.Println("\nChannels:  (none enabled)")
	} else {
		fmt.Printf("\nChannels:  %s\n", strings.Join(enabled, ", "))
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
