package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ruleomatic/internal/config"
	"ruleomatic/internal/logging"
)

// configCmd groups the config subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the rule directories",
	Long: `Rule directories are loaded in the listed order; a rule in a later
directory shadows an earlier rule with the same name.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a rule directory with the highest precedence",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigAdd,
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a rule directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRemove,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), configFile)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintf(out, "Config File: %s\n", configFile)
	fmt.Fprintln(out, "Rule Paths:")
	if len(cfg.RulePaths) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, p := range cfg.RulePaths {
		fmt.Fprintf(out, "  - %s\n", p)
	}
	fmt.Fprintf(out, "Refresh Interval: %s\n", cfg.GetRefreshInterval())
	fmt.Fprintf(out, "Log Level: %s\n", cfg.Logging.Level)
	return nil
}

// The edit commands work on the file as stored so environment overrides
// are never written back.
func runConfigAdd(cmd *cobra.Command, args []string) error {
	stored, err := config.ReadFile(configFile)
	if err != nil {
		return err
	}
	if err := stored.AddRulePath(args[0]); err != nil {
		return err
	}
	if err := stored.Save(configFile); err != nil {
		return err
	}

	added := stored.RulePaths[len(stored.RulePaths)-1]
	logging.Get(logging.CategoryConfig).Infow("rule path added", "path", added)
	fmt.Fprintf(cmd.OutOrStdout(), "Added rule path: %s\n", added)
	if _, err := os.Stat(added); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning: %s is not accessible: %v\n", added, err)
	}
	return nil
}

func runConfigRemove(cmd *cobra.Command, args []string) error {
	stored, err := config.ReadFile(configFile)
	if err != nil {
		return err
	}
	if err := stored.RemoveRulePath(args[0]); err != nil {
		return err
	}
	if err := stored.Save(configFile); err != nil {
		return err
	}

	logging.Get(logging.CategoryConfig).Infow("rule path removed", "path", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Removed rule path: %s\n", args[0])
	return nil
}
