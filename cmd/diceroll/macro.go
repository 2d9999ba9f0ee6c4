package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMacroCmd(a *app) *cobra.Command {
	var times int
	cmd := &cobra.Command{
		Use:   "macro [name]",
		Short: "List catalog macros, or roll one by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.catalog == nil {
				return fmt.Errorf("no macro catalog configured (set catalog.path or --catalog)")
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range a.catalog.Names() {
					m, _ := a.catalog.Get(name)
					fmt.Fprintf(out, "%-20s %-30s %s\n", name, m.Expression, m.Description)
				}
				return nil
			}
			m, ok := a.catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown macro %q", args[0])
			}
			if times < 1 {
				return fmt.Errorf("--times must be >= 1, got %d", times)
			}
			for i := 0; i < times; i++ {
				fmt.Fprintln(out, a.roller.Roll(m.Parsed()).String())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&times, "times", 1, "number of rolls")
	return cmd
}
