package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage genpipe configuration",
	Long: `am - Manage genpipe configuration ("I am")

Configuration sources (later overrides earlier):
1. Built-in defaults
2. System config (/etc/genpipe/config.toml)
3. User config (~/.genpipe/config.toml)
4. Project config (./genpipe.toml, searched up from the working directory)
5. Environment variables (GENPIPE_* prefix, MINIO_* for S3 credentials, .env honoured)
6. Command line flags

Examples:
  genpipe am show                 # Show current configuration
  genpipe am show --format json   # Show configuration in JSON format
  genpipe am get pipeline.targets # Show a single value
  genpipe am validate             # Validate current configuration
  genpipe am init                 # Write ./genpipe.toml with defaults
  genpipe am where                # Show which config files are read`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current genpipe configuration from all sources. Credentials are never shown.",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., pipeline.max_workers, output.dir)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a project config with default values",
	Long: `Write the default configuration to ./genpipe.toml (or --path).

An existing file is kept as a .back1 backup; older backups rotate up to .back3.`,
	RunE: runAmInit,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var (
	configFormat string
	initPath     string
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amInitCmd.Flags().StringVar(&initPath, "path", am.ProjectConfigName, "Where to write the config file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return showConfig(cmd, cfg, configFormat)
}

func showConfig(cmd *cobra.Command, cfg *am.Config, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		// Credentials carry json:"-"
		return writeJSON(out, cfg)

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# genpipe configuration\n%s", data)

	case "toml":
		data, err := am.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# genpipe configuration\n%s", data)

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	return printValue(cmd, am.GetViper(), args[0])
}

func printValue(cmd *cobra.Command, v *viper.Viper, key string) error {
	if am.IsCredential(key) {
		return errors.WithHint(
			errors.Newf("configuration key %q is a credential and is never printed", key),
			"check the GENPIPE_S3_* or MINIO_* environment variables instead")
	}
	if !v.IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
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

	fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration is valid\n", pterm.Green("✓"))
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	_, statErr := os.Stat(initPath)
	if err := am.WriteDefault(initPath); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statErr == nil {
		fmt.Fprintf(out, "%s Previous %s saved as %s.back1\n", pterm.Yellow("!"), initPath, initPath)
	}
	fmt.Fprintf(out, "%s Wrote default configuration to %s\n", pterm.Green("✓"), initPath)
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration files (later overrides earlier):")
	for _, path := range am.ConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "  %s %s\n", pterm.Green("✓"), path)
		} else {
			fmt.Fprintf(out, "  %s %s %s\n", pterm.Gray("-"), path, pterm.Gray("(not found)"))
		}
	}
	if len(am.ExistingConfigPaths()) == 0 {
		fmt.Fprintf(out, "\nNo config files found; defaults apply. Run 'genpipe am init' to create %s.\n", am.ProjectConfigName)
	}
	return nil
}
