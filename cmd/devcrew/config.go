package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devcrew-io/devcrew/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long: `Display the configuration a run would use after merging defaults,
the user config, the project config, and environment variables.

Configuration is stored at ~/.config/devcrew/config.yaml
Project-specific overrides can be placed in .devcrew.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayAllConfig(cfg)
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}
	modelDisplay := cfg.Anthropic.Model
	if modelDisplay == "" {
		modelDisplay = "(default)"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", modelDisplay)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("generation.max_tokens: %d\n", cfg.Generation.MaxTokens)
	fmt.Printf("generation.temperature: %.2f\n", cfg.Generation.Temperature)
	fmt.Printf("generation.step_timeout: %s\n", cfg.Generation.StepTimeout)
	fmt.Printf("retry.max_retries: %d\n", cfg.Retry.MaxRetries)
	fmt.Printf("retry.backoff: %s\n", cfg.Retry.Backoff)
	fmt.Printf("retry.backoff_policy: %s\n", cfg.Retry.BackoffPolicy)
	fmt.Printf("retry.backoff_max: %s\n", cfg.Retry.BackoffMax)
	fmt.Printf("limits.max_artifact_context_chars: %d\n", cfg.Limits.MaxArtifactContextChars)
	fmt.Printf("limits.max_task_chars: %d\n", cfg.Limits.MaxTaskChars)
	fmt.Printf("limits.max_concurrent_runs: %d\n", cfg.Limits.MaxConcurrentRuns)
	fmt.Printf("roles.file: %s\n", orUnset(cfg.Roles.File))
	fmt.Printf("roles.order: %s\n", orUnset(strings.Join(cfg.Roles.Order, ", ")))
	fmt.Printf("export.dir: %s\n", cfg.Export.Dir)
	fmt.Printf("audit.enabled: %t\n", cfg.Audit.Enabled)
	fmt.Printf("audit.path: %s\n", orUnset(cfg.Audit.Path))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
