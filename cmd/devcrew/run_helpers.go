package main

import (
	"fmt"

	"github.com/devcrew-io/devcrew/internal/config"
	"github.com/devcrew-io/devcrew/internal/llm"
	"github.com/devcrew-io/devcrew/internal/role"
	"github.com/devcrew-io/devcrew/internal/workflow"
)

// resolveRoles builds the role sequence for a run. Precedence: the
// --roles flag, then roles.file from config, then the built-in crew.
// An order list in config reorders or subsets the result.
func resolveRoles(cfg *config.Config, flagPath string) (role.Sequence, error) {
	path := flagPath
	if path == "" {
		path = cfg.Roles.File
	}

	roles := role.Defaults()
	if path != "" {
		loaded, err := role.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load roles from %s: %w", path, err)
		}
		roles = loaded
	}

	if len(cfg.Roles.Order) > 0 {
		reordered, err := roles.Reorder(cfg.Roles.Order)
		if err != nil {
			return nil, err
		}
		roles = reordered
	}
	return roles, nil
}

// engineOptions maps loaded configuration onto workflow options.
func engineOptions(cfg *config.Config) workflow.Options {
	return workflow.Options{
		MaxRetries: cfg.Retry.MaxRetries,
		Backoff: workflow.Backoff{
			Policy: workflow.BackoffPolicy(cfg.Retry.BackoffPolicy),
			Base:   cfg.Retry.Backoff,
			Max:    cfg.Retry.BackoffMax,
		},
		MaxArtifactContextChars: cfg.Limits.MaxArtifactContextChars,
		MaxTaskChars:            cfg.Limits.MaxTaskChars,
		MaxTokens:               cfg.Generation.MaxTokens,
		Temperature:             cfg.Generation.Temperature,
		StepTimeout:             cfg.Generation.StepTimeout,
	}
}

// buildClient creates the generation client: the offline generator for
// dry runs, otherwise the Anthropic client, capped by the configured
// concurrency limit.
func buildClient(cfg *config.Config, model string, dryRun bool) (llm.Generator, *llm.TokenTracker, error) {
	if dryRun {
		return llm.NewOffline(), nil, nil
	}

	if model == "" {
		model = cfg.Anthropic.Model
	}
	client, err := llm.NewAnthropicClient(llm.AnthropicConfig{
		Model:         model,
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, nil, err
	}
	return llm.Limit(client, cfg.Limits.MaxConcurrentRuns), client.Tracker(), nil
}
