package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ruleomatic/cmd/ruleomatic/ui"
	"ruleomatic/internal/config"
	"ruleomatic/internal/logging"
	"ruleomatic/internal/process"
	"ruleomatic/internal/rules"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Resolved at startup
	configFile string
	cfg        *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ruleomatic",
	Short: "Browse ananicy rules and check them against running processes",
	Long: `ruleomatic reads the ananicy rule directories, works out which rule wins
for each process name and compares it with what the kernel reports for the
running process.

Run without arguments to start the interactive rule browser.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd == cmd.Root())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runBrowser,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/ananicy-rule-o-matic/config.yaml)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves the config file, loads it and starts logging. The
// interactive view owns the terminal, so it only logs to a configured file.
func setup(interactive bool) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	configFile = path

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded

	opts := logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		JSON:       cfg.Logging.JSON,
		Categories: cfg.Logging.Categories,
	}
	if verbose {
		opts.Level = "debug"
	}
	if interactive && opts.File == "" {
		opts.Discard = true
	}
	if err := logging.Initialize(opts); err != nil {
		return err
	}

	logging.Get(logging.CategoryBoot).Debugw("configuration loaded",
		"path", configFile,
		"rule_paths", cfg.RulePaths,
		"proc_root", cfg.ProcRoot)
	return nil
}

func runBrowser(cmd *cobra.Command, args []string) error {
	scanner, err := process.NewScanner(cfg.ProcRoot)
	if err != nil {
		return err
	}
	return ui.Run(ui.Options{
		Context: cmdContext(cmd),
		Rules:   newRuleService(),
		Scanner: scanner,
		Tick:    cfg.GetTickInterval(),
		Refresh: cfg.GetRefreshInterval(),
		Styles:  ui.DefaultStyles(),
	})
}

func newRuleService() *rules.Service {
	return rules.NewService(rules.NewRepository(cfg.RulePaths))
}

// takeSnapshot scans the process table. A failed scan is logged and yields
// a nil snapshot, which reports no running processes.
func takeSnapshot(ctx context.Context) *process.Snapshot {
	log := logging.Get(logging.CategoryProcess)
	scanner, err := process.NewScanner(cfg.ProcRoot)
	if err != nil {
		log.Warnw("process scan unavailable", "error", err)
		return nil
	}
	snap, err := scanner.Scan(ctx)
	if err != nil {
		log.Warnw("process scan failed", "error", err)
		return nil
	}
	return snap
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or 0 when it is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func outputStyles(w io.Writer) ui.Styles {
	if isTerminal(w) {
		return ui.DefaultStyles()
	}
	return ui.PlainStyles()
}
