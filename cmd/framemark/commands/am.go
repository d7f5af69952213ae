package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Show and validate framemark configuration",
	Long: `am - Show and validate framemark configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/framemark/config.toml)
3. User config (~/.framemark/am.toml)
4. Settings saved from the UI (~/.framemark/am_from_ui.toml)
5. Project config (./am.toml, searched up from the working directory)
6. Environment variables (FRAMEMARK_* prefix)

Examples:
  framemark am show                    # Show current configuration
  framemark am show --format json      # Show configuration in JSON format
  framemark am get camera_tool.path    # Get specific config value
  framemark am where                   # Show which source set each value
  framemark am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., camera_tool.path, history.enabled)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each configuration value comes from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", am.FormatTOML, "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	data, err := am.Render(cfg, configFormat)
	if err != nil {
		return err
	}
	if configFormat != am.FormatJSON {
		fmt.Fprintln(cmd.OutOrStdout(), "# framemark configuration")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	settings, err := am.Introspect()
	if err != nil {
		return err
	}

	rows := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range settings {
		rows = append(rows, []string{
			s.Key,
			fmt.Sprintf("%v", s.Value),
			string(s.Source),
			s.SourcePath,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
