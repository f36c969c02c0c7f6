package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/projectlily/lily/internal/config"
	agentcfg "github.com/projectlily/lily/internal/config/agent"
	"github.com/projectlily/lily/internal/shared/cmdutils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration, agent file and workspace",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			return fmt.Errorf("load existing config: %w", loadErr)
		}
		cfg = existing
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		def := config.DefaultConfig()
		cfg = &def
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	agentPath := personaPath
	if agentPath == "" {
		agentPath = cfg.PersonaPath()
	}
	if _, err := os.Stat(agentPath); os.IsNotExist(err) {
		p := agentcfg.DefaultPersona()
		p.Completion = cfg.Agent.Completion
		if err := agentcfg.SavePersona(&p, agentPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created agent file at %s\n", agentPath)
	} else {
		fmt.Printf("✓ Agent file at %s\n", agentPath)
	}

	workspace := cfg.WorkspacePath()
	if err := os.MkdirAll(filepath.Join(workspace, "memory"), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	fmt.Printf("✓ Workspace at %s\n", workspace)
	createHeartbeatTemplate(workspace)

	fmt.Printf("\n%s lily is ready!\n\n", cmdutils.Logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Start a llama.cpp server on %s (or set provider.apiBase in %s)\n",
		cfg.Provider.APIBase, cfgPath)
	fmt.Printf("  2. Edit the persona in %s\n", agentPath)
	fmt.Println("  3. Chat: lily chat")
	return nil
}

func createHeartbeatTemplate(workspace string) {
	p := filepath.Join(workspace, "HEARTBEAT.md")
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return
	}
	content := `# HEARTBEAT

<!-- Open items below are passed to the agent on every heartbeat. -->
<!-- Tick a box to mark it done. -->

- [ ] Check in with the operator about their day
`
	if err := os.WriteFile(p, []byte(content), 0o644); err == nil {
		fmt.Println("  Created HEARTBEAT.md")
	}
}
