package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devcrew-io/devcrew/internal/config"
	"github.com/devcrew-io/devcrew/internal/export"
	"github.com/devcrew-io/devcrew/internal/state"
	"github.com/devcrew-io/devcrew/internal/workflow"
)

var (
	runTUI    bool
	runOutput string
	runZip    string
	runRoles  string
	runModel  string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task through the generation crew",
	Long: `Run an application request through the full crew, one role at a
time. Each role reads the task and the artifacts produced so far,
then writes its own artifacts into the shared workspace.

The completed workspace is exported to --output (default from config),
or to a zip archive with --zip. Interrupt with Ctrl-C: the role that
is currently running finishes, then the run stops cleanly and whatever
was produced so far is still exported.

Use --dry-run to exercise the whole pipeline with a canned offline
generator, without an API key or any network traffic.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live progress view instead of plain output")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Directory to export artifacts to (default from config)")
	runCmd.Flags().StringVar(&runZip, "zip", "", "Export artifacts as a zip archive instead of a directory")
	runCmd.Flags().StringVar(&runRoles, "roles", "", "Roles YAML file replacing the built-in crew")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model identifier (overrides config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Use the offline generator instead of the API")
}

func runTask(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	roles, err := resolveRoles(cfg, runRoles)
	if err != nil {
		return err
	}

	client, tracker, err := buildClient(cfg, runModel, runDryRun)
	if err != nil {
		return err
	}

	engine, err := workflow.New(roles, client, engineOptions(cfg))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupt received, stopping after the current step...")
		cancel()
	}()

	var runErr error
	if runTUI {
		runErr = runWithTUI(ctx, engine, task, roles)
	} else {
		runErr = runPlain(ctx, engine, task)
	}

	run := engine.State()
	if run == nil {
		return runErr
	}

	if cfg.Audit.Enabled {
		saveAudit(cfg, run)
	}

	if err := exportRun(cfg, run); err != nil {
		return err
	}

	if tracker != nil && tracker.Calls() > 0 {
		in, out := tracker.Total()
		fmt.Printf("Tokens: %d in / %d out across %d calls (~$%.2f)\n", in, out, tracker.Calls(), tracker.Cost())
	}

	if runErr != nil && !errors.Is(runErr, workflow.ErrCancelled) {
		return runErr
	}
	return nil
}

// runPlain executes the run with line-oriented progress on stdout.
func runPlain(ctx context.Context, engine *workflow.Engine, task string) error {
	reporter := workflow.Observe(engine.Events(), printEvent)

	_, err := engine.Run(ctx, task)

	engine.CloseEvents()
	reporter.Wait()
	return err
}

// printEvent renders one run event as a plain progress line.
func printEvent(ev workflow.Event) {
	switch ev.Type {
	case workflow.EventRunStarted:
		color.New(color.Bold).Printf("Starting run %s (%s)\n", shortID(ev.RunID), ev.Message)
	case workflow.EventStepStarted:
		activity := ev.Message
		if activity == "" {
			activity = "working"
		}
		color.Cyan("→ %s: %s...", ev.Role, activity)
	case workflow.EventStepRetried:
		color.Yellow("  %s attempt %d failed, retrying: %v", ev.Role, ev.Attempt, ev.Err)
	case workflow.EventArtifactWritten:
		if ev.Revision > 1 {
			color.Blue("  + %s (rev %d)", ev.Artifact, ev.Revision)
		} else {
			color.Blue("  + %s", ev.Artifact)
		}
	case workflow.EventStepCompleted:
		color.Green("✓ %s done", ev.Role)
	case workflow.EventStepFailed:
		color.Red("✗ %s failed: %v", ev.Role, ev.Err)
	case workflow.EventRunCompleted:
		color.New(color.FgGreen, color.Bold).Printf("Run completed (%s)\n", ev.Message)
	case workflow.EventRunFailed:
		color.New(color.FgRed, color.Bold).Printf("Run failed: %v\n", ev.Err)
	case workflow.EventRunCancelled:
		color.Yellow("Run cancelled")
	}
}

// exportRun writes whatever artifacts the run produced, regardless of
// how it ended. A failed run still leaves its partial work behind.
func exportRun(cfg *config.Config, run *workflow.Run) error {
	snapshot := run.Workspace.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	if runZip != "" {
		if err := export.WriteZip(snapshot, runZip); err != nil {
			return fmt.Errorf("export zip: %w", err)
		}
		fmt.Printf("Exported %d artifacts to %s\n", len(snapshot), runZip)
		return nil
	}

	dir := runOutput
	if dir == "" {
		dir = cfg.Export.Dir
	}
	if err := export.WriteDir(snapshot, dir); err != nil {
		return fmt.Errorf("export artifacts: %w", err)
	}
	fmt.Printf("Exported %d artifacts to %s/\n", len(snapshot), dir)
	return nil
}

// saveAudit persists the finished run. Audit failures are reported but
// never change the run's outcome.
func saveAudit(cfg *config.Config, run *workflow.Run) {
	path := cfg.Audit.Path
	if path == "" {
		path = config.DefaultAuditDBPath()
	}
	db, err := state.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit store unavailable: %v\n", err)
		return
	}
	defer db.Close()
	if err := db.SaveRun(run); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit save failed: %v\n", err)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
