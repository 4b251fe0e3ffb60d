package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/artagon/artagon-common/internal/config"
	"github.com/artagon/artagon-common/internal/config/validate"
)

// createConfigCommand creates the config command group
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate .artagon.yml",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			data, err := s.Config.Marshal()
			if err != nil {
				return err
			}
			if s.Config.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", s.Config.Path)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "# built-in defaults")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a configuration file against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE:  executeConfigValidate,
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "schema [config|agents]",
		Short: "Print an embedded JSON schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := validate.ConfigSchemaName
			if len(args) == 1 {
				switch args[0] {
				case "config":
				case "agents":
					name = validate.AgentManifestSchemaName
				default:
					return fmt.Errorf("unknown schema %q (expected config|agents)", args[0])
				}
			}
			data, err := validate.Schema(name)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return configCmd
}

// executeConfigValidate handles the config validate command logic
func executeConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = config.FileName
		if rootDir != "" {
			path = filepath.Join(rootDir, config.FileName)
		}
	}
	cfg, err := config.Load(path, false)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", cfg.Path)
	return nil
}
