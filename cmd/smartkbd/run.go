package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/config"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/engine"
)

func newRunCmd(opts *options) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture the keyboard and correct words as they are typed",
		Long: `Run reads every keyboard under /dev/input (or the configured device) and
injects corrections with xdotool. Reading input devices requires membership
of the 'input' group or root.

The config file is watched: logging.level, correction.enabled and
correction.context take effect without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.resolvePath()
			loader := config.NewLoader(path)
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			defer loader.Close()

			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			e, err := engine.New(cfg, engine.Options{Version: version})
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !noWatch {
				if err := e.Watch(ctx, loader); err != nil {
					e.Logger().Warn("config hot reload disabled", "path", path, "error", err)
				}
			}

			return e.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the config file when it changes")
	return cmd
}
