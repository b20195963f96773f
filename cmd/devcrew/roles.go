package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devcrew-io/devcrew/internal/config"
	"github.com/devcrew-io/devcrew/internal/role"
)

var rolesFile string
var rolesFull bool
var rolesWatch bool

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Show the role sequence a run would use",
	Long: `List the crew's roles in execution order.

Without flags this shows the built-in crew, or the roles file from
config if one is set. Use --roles to preview a custom file and --full
to include each role's instruction template.

With --watch the file is re-validated and re-printed every time it is
saved, which makes editing a custom crew much less trial-and-error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if rolesWatch {
			return watchRoles(cfg)
		}

		roles, err := resolveRoles(cfg, rolesFile)
		if err != nil {
			return err
		}
		printRoles(roles)
		return nil
	},
}

func init() {
	rolesCmd.Flags().StringVar(&rolesFile, "roles", "", "Roles YAML file to preview")
	rolesCmd.Flags().BoolVar(&rolesFull, "full", false, "Include each role's instructions")
	rolesCmd.Flags().BoolVar(&rolesWatch, "watch", false, "Re-validate and re-print on every save")
}

func printRoles(roles role.Sequence) {
	for i, r := range roles {
		color.New(color.Bold).Printf("%d. %s", i+1, r.Name)
		fmt.Printf(" — %s\n", r.Responsibility)
		if rolesFull {
			fmt.Println()
			fmt.Println(indent(r.Instructions, "   "))
		}
	}
}

// watchRoles follows the roles file, printing the sequence after every
// valid save until interrupted.
func watchRoles(cfg *config.Config) error {
	path := rolesFile
	if path == "" {
		path = cfg.Roles.File
	}
	if path == "" {
		return fmt.Errorf("--watch needs a roles file (--roles or roles.file in config)")
	}

	watcher, err := role.Watch(path, func(seq role.Sequence) {
		fmt.Printf("\n%s (%d roles):\n", path, len(seq))
		printRoles(seq)
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
