package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dshills/rekey/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage rekey configuration",
	Long:  "Manage the rekey config file (" + config.EnvMappingFile + " and " + config.EnvPrefix + " still override it).",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file from defaults and the given --mapping/--prefix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			configFailure(cmd, err)
			return nil
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Config file already exists at %s\n", path)
			return nil
		}

		cfg := config.Default()
		overrides := buildOverrides()
		if v, ok := overrides["mappingFile"]; ok {
			cfg.MappingFile = v
		}
		if v, ok := overrides["prefix"]; ok {
			cfg.Prefix = &v
		}
		if err := config.Save(cfg); err != nil {
			configFailure(cmd, fmt.Errorf("writing config: %w", err))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value (mappingFile, prefix, format)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFileOrDefault()
		if err != nil {
			configFailure(cmd, err)
			return nil
		}

		// unknown keys and bad values are usage errors
		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			return err
		}

		if err := config.Save(cfg); err != nil {
			configFailure(cmd, fmt.Errorf("saving config: %w", err))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %q\n", args[0], args[1])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration after file, .env, environment and flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			configFailure(cmd, err)
			return nil
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}
