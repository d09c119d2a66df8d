package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/keyboard"
)

func newDevicesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Report whether keystrokes can be captured and injected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			ok, reason := keyboard.NewHook(keyboard.HookConfig{Device: cfg.Keyboard.Device}).Available()
			fmt.Fprintf(out, "capture:   %s (%s)\n", status(ok), reason)

			if cfg.Keyboard.LayoutQuery == "" {
				fmt.Fprintln(out, "layout:    disabled (keys are read as US QWERTY)")
			} else {
				ok, reason := keyboard.NewXkbQuery(cfg.Keyboard.LayoutQuery, cfg.Keyboard.TargetGroup).Available()
				fmt.Fprintf(out, "layout:    %s (%s)\n", status(ok), reason)
			}

			switch cfg.Keyboard.Injector {
			case "none":
				fmt.Fprintln(out, "injection: disabled (injector = none)")
			default:
				ok, reason := keyboard.NewXdotool(0).Available()
				fmt.Fprintf(out, "injection: %s (%s)\n", status(ok), reason)
			}
			return nil
		},
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}
