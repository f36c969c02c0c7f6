package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/projectlily/lily/internal/dependency"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and edit the agent's memory",
}

func init() {
	memoryCmd.AddCommand(memorySaveCmd)
	memoryCmd.AddCommand(memoryRecallCmd)
	memoryCmd.AddCommand(memoryLogCmd)
	memoryCmd.AddCommand(memoryClearCmd)
}

// ---- save ------------------------------------------------------------------

var memorySaveCmd = &cobra.Command{
	Use:   "save <text>",
	Short: "Store a long-term memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := newContainer(dependency.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		mem, err := c.Memory()
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")
		if err := mem.Remember(cmd.Context(), text); err != nil {
			return fmt.Errorf("save memory: %w", err)
		}
		fmt.Println("✓ Memory saved")
		return nil
	},
}

// ---- recall ----------------------------------------------------------------

var (
	memoryRecallK           int
	memoryRecallMaxDistance float64
)

var memoryRecallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Search long-term memories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := newContainer(dependency.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		mem, err := c.Memory()
		if err != nil {
			return err
		}
		k := memoryRecallK
		if k <= 0 {
			k = cfg.Memory.Recall.K
		}
		maxDist := cfg.Memory.Recall.MaxDistance
		if cmd.Flags().Changed("max-distance") {
			maxDist = memoryRecallMaxDistance
		}

		hits, err := mem.Recall(cmd.Context(), strings.Join(args, " "), k, maxDist)
		if err != nil {
			return fmt.Errorf("recall: %w", err)
		}
		if len(hits) == 0 {
			fmt.Println("No memories matched your search.")
			return nil
		}
		for i, h := range hits {
			fmt.Printf("%d. [%.3f] %s\n", i+1, h.Distance, h.Text)
		}
		return nil
	},
}

func init() {
	memoryRecallCmd.Flags().IntVarP(&memoryRecallK, "k", "k", 0, "Maximum results (default from config)")
	memoryRecallCmd.Flags().Float64Var(&memoryRecallMaxDistance, "max-distance", 0, "Distance cutoff, 0 disables")
}

// ---- log -------------------------------------------------------------------

var memoryLogTokens int

var memoryLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the most recent conversation log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, c, err := newContainer(dependency.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		logs, err := c.LogStore()
		if err != nil {
			return err
		}
		msgs, err := logs.LoadRecent(cmd.Context(), memoryLogTokens)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			fmt.Println("The conversation log is empty.")
			return nil
		}
		for _, m := range msgs {
			fmt.Printf("%s  %s\n", m.Time().Format("2006-01-02 15:04:05"), m.Content())
		}
		return nil
	},
}

func init() {
	memoryLogCmd.Flags().IntVarP(&memoryLogTokens, "tokens", "t", 2048, "Token budget of the printed suffix")
}

// ---- clear -----------------------------------------------------------------

var (
	memoryClearAll bool
	memoryClearYes bool
)

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the conversation log (and with --all, long-term memories)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !memoryClearYes {
			fmt.Print("This cannot be undone. Type 'yes' to continue: ")
			var answer string
			fmt.Scanln(&answer)
			if answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		_, c, err := newContainer(dependency.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		return clearMemory(cmd.Context(), c, memoryClearAll)
	},
}

func init() {
	memoryClearCmd.Flags().BoolVar(&memoryClearAll, "all", false, "Also delete long-term memories")
	memoryClearCmd.Flags().BoolVarP(&memoryClearYes, "yes", "y", false, "Do not ask for confirmation")
}

func clearMemory(ctx context.Context, c *dependency.Container, all bool) error {
	mem, err := c.Memory()
	if err != nil {
		return err
	}
	if err := mem.Forget(ctx); err != nil {
		return err
	}
	fmt.Println("✓ Conversation log cleared")

	if !all {
		return nil
	}
	vs, err := c.VectorStore()
	if err != nil {
		return err
	}
	if vs == nil {
		fmt.Println("Long-term memory is disabled; nothing else to clear.")
		return nil
	}
	if err := vs.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("✓ Long-term memories cleared")
	return nil
}
