package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/config"
)

// options are the flags shared by every command.
type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "smartkbd",
		Short: "Fix words typed on the wrong keyboard layout",
		Long: `smartkbd reads key presses, notices words that were typed with the wrong
keyboard layout active (English keys meant as Hebrew), and replaces them on
screen with the intended word.

Examples:
  smartkbd run
  smartkbd check akuo xpr
  smartkbd config init`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default: ./config.{toml,json,yaml} or "+config.ConfigPath()+")")

	root.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newDevicesCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// resolvePath returns the config file to use. A missing default file is
// not an error: the defaults apply.
func (o *options) resolvePath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if found := config.FindConfigFile(); found != "" {
		return found
	}
	return config.ConfigPath()
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.resolvePath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
