package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	var bindings map[string]int
	cmd := &cobra.Command{
		Use:   "stats [expression]",
		Short: "Print exact statistics for a dice expression without rolling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := a.parser.Parse(args[0], bindings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", expr, expr.Statistics())
			return nil
		},
	}
	cmd.Flags().StringToIntVar(&bindings, "bind", nil, "placeholder binding name=value (repeatable)")
	return cmd
}
