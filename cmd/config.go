package cmd

import (
	"fmt"

	"squeeze-audio/infrastructure/config"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration values",
	Long: `Show or change values in the configuration file.

Keys use the section.name form of the YAML file.

Examples:
  squeeze-audio config show
  squeeze-audio config set conversion.max_size_mb 10
  squeeze-audio config set tools.encode_timeout 45m`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every configuration value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigShowWithDependencies(cfg, cfgFile, DefaultOutput)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration value and save the file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigSetWithDependencies(cfg, cfgFile, args[0], args[1], DefaultOutput)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// RunConfigShowWithDependencies prints the configuration with injected dependencies
func RunConfigShowWithDependencies(cfg *config.Config, configPath string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "Value"})
	for _, e := range mgr.List() {
		tw.AppendRow(table.Row{e.Key, e.Value})
	}

	fmt.Fprintf(out, "Config file: %s\n", configPath)
	fmt.Fprintln(out, tw.Render())
	return nil
}

// RunConfigSetWithDependencies updates one value with injected dependencies
func RunConfigSetWithDependencies(cfg *config.Config, configPath, key, value string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.Set(key, value); err != nil {
		return err
	}

	saved, _ := mgr.Get(key)
	fmt.Fprintf(out, "Set %s = %s\n", key, saved)
	return nil
}
