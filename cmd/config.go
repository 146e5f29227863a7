package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adalundhe/greenroom/core/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
	Long:  `Inspect and validate the effective greenroom configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after merging defaults, file, and environment.`,
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Long:  `Load the configuration and report whether it is usable.`,
	RunE:  runConfigCheck,
}

func loadManager() (*config.Manager, error) {
	manager := config.NewManager(configPath, nil)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	return manager, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(redacted(manager.Get()))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	cmd.Print(string(out))
	return nil
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	if _, err := loadManager(); err != nil {
		return err
	}
	cmd.Println("configuration ok")
	return nil
}

// redacted masks credentials before printing.
func redacted(cfg *config.Config) *config.Config {
	out := *cfg
	if out.Providers.Anthropic.APIKey != "" {
		out.Providers.Anthropic.APIKey = "****"
	}
	if out.Providers.OpenAI.APIKey != "" {
		out.Providers.OpenAI.APIKey = "****"
	}
	if out.Providers.Google.APIKey != "" {
		out.Providers.Google.APIKey = "****"
	}
	return &out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
}
