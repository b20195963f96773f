package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devcrew",
	Short: "Multi-agent software generation crew",
	Long: `Devcrew turns a one-line application request into a working set of
source files by walking it through a crew of specialized agents:
analyst, engineer, reviewer, tech writer, QA engineer, devops
engineer, and UX designer. Each agent sees the task plus everything
the agents before it produced, and contributes its own artifacts to a
shared workspace.

Run a task:
  devcrew run "a todo list web app with due dates"

The finished workspace is exported to a directory (or zip) when the
run completes.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
