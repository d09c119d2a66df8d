package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			data, err := cfg.Encode("." + format)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", "toml", "output format (toml, json, yaml)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			path, _ = filepath.Abs(path)

			_, created, err := config.LoadOrCreate(path)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists and is valid\n", path)
			}
			return nil
		},
	}

	cmd.AddCommand(show, initCmd)
	return cmd
}
