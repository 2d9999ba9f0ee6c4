package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRollCmd(a *app) *cobra.Command {
	var (
		bindings map[string]int
		times    int
	)
	cmd := &cobra.Command{
		Use:   "roll [expression]",
		Short: "Roll a dice expression",
		Long: `Roll a dice expression and print the audit line for each roll. Examples:

  roll "4d6 keep 3 highest"
  roll "1d20 + %str% >= 15" --bind str=3
  roll "10d10 >= 8" --times 5 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 1 {
				return fmt.Errorf("--times must be >= 1, got %d", times)
			}
			expr, err := a.parser.Parse(args[0], bindings)
			if err != nil {
				return err
			}
			for i := 0; i < times; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), a.roller.Roll(expr).String())
			}
			return nil
		},
	}
	cmd.Flags().StringToIntVar(&bindings, "bind", nil, "placeholder binding name=value (repeatable)")
	cmd.Flags().IntVar(&times, "times", 1, "number of rolls")
	return cmd
}
