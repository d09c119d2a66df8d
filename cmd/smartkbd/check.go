package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/engine"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/keyboard"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <words...>",
		Short: "Show the corrections typing the given words would produce",
		Long: `Check runs the words through the same classification and contextual
correction the daemon uses, as if each were followed by a space. Nothing is
typed and no keyboard access is needed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			// Only problems such as missing dictionaries are worth showing here.
			cfg.Logging.Level = "warn"
			cfg.Logging.Output = "stderr"
			cfg.Journal.Enabled = false
			cfg.Metrics.Enabled = false

			e, err := engine.New(cfg, engine.Options{
				Hook:      keyboard.NewSimulated(1),
				Injector:  keyboard.Nop{},
				LogWriter: cmd.ErrOrStderr(),
				Version:   version,
			})
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			corrections := e.Check(args)
			if len(corrections) == 0 {
				fmt.Fprintln(out, "no corrections")
				return nil
			}
			for _, c := range corrections {
				fmt.Fprintf(out, "%-7s %q -> %q\n", c.Kind, c.OldText, c.NewText)
			}
			return nil
		},
	}
}
