package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adalundhe/greenroom/core/providers"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <file>",
	Short: "Estimate token usage for a script file",
	Long: `Estimate the token footprint of a script and report how it fits the
document layer quota.`,
	Args: cobra.ExactArgs(1),
	RunE: runEstimate,
}

func runEstimate(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}
	cfg := manager.Get()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	counter := providers.NewCharacterBasedCounter(providers.TokenCounterConfig{
		CharsPerToken: cfg.Budget.CharsPerToken,
	})
	tokens := counter.CountText(string(data))

	cmd.Printf("file: %s\n", args[0])
	cmd.Printf("characters: %d\n", len(data))
	cmd.Printf("estimated tokens: %d\n", tokens)
	cmd.Printf("document quota: %d\n", cfg.Budget.DocumentTokens)
	if tokens > cfg.Budget.DocumentTokens {
		cmd.Printf("over quota: head and tail truncation will apply (%d + %d chars)\n",
			cfg.Budget.DocumentHeadChars, cfg.Budget.DocumentTailChars)
	} else {
		cmd.Println("within quota: no truncation")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}
