package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devcrew-io/devcrew/internal/config"
	"github.com/devcrew-io/devcrew/internal/state"
)

var historyLimit int
var historyShow string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List audited runs",
	Long: `List runs persisted to the audit store (requires audit.enabled).

Use --show <run-id> to print one run's steps and artifacts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		path := cfg.Audit.Path
		if path == "" {
			path = config.DefaultAuditDBPath()
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("no audit store at %s (set audit.enabled to start recording runs)", path)
		}

		db, err := state.Open(path)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer db.Close()

		if historyShow != "" {
			return showRun(db, historyShow)
		}
		return listRuns(db, historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "Print one run's details by ID")
}

func listRuns(db *state.DB, limit int) error {
	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tTASK")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status, truncateTask(r.Task))
	}
	return w.Flush()
}

func showRun(db *state.DB, id string) error {
	run, err := db.LoadRun(id)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %s\n", run.ID, run.Status)
	fmt.Printf("Task: %s\n\n", run.Task)
	for i, step := range run.Steps {
		line := fmt.Sprintf("%d. %s: %s", i+1, step.Role, step.Status)
		if step.Attempts > 1 {
			line += fmt.Sprintf(" (%d attempts)", step.Attempts)
		}
		if step.Verdict != "" {
			line += fmt.Sprintf(" [%s]", step.Verdict)
		}
		if step.Error != "" {
			line += " — " + step.Error
		}
		fmt.Println(line)
	}

	snapshot := run.Workspace.Snapshot()
	if len(snapshot) > 0 {
		fmt.Println("\nArtifacts:")
		for _, art := range snapshot {
			fmt.Printf("  %s (by %s, rev %d, %d bytes)\n", art.Name, art.ProducedBy, art.Revision, len(art.Content))
		}
	}
	return nil
}

func truncateTask(s string) string {
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
