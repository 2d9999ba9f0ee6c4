package main

import (
	"fmt"

	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/dicenotation/internal/scripting"
)

func newScriptCmd(a *app) *cobra.Command {
	var hook string
	cmd := &cobra.Command{
		Use:   "script [file.lua]",
		Short: "Run a Lua roll script in the sandbox",
		Long: `Load a Lua file into the sandbox and call one of its global functions.
The script sees engine.dice.roll, engine.dice.stats, engine.dice.macro and
engine.log.*. A non-nil return value is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := scripting.NewManager(a.roller, a.catalog, a.logger, a.cfg.Scripting.InstructionLimit)
			defer mgr.Close()
			if err := mgr.LoadScript(args[0]); err != nil {
				return err
			}
			ret, err := mgr.CallHook(hook)
			if err != nil {
				return err
			}
			if ret != lua.LNil {
				fmt.Fprintln(cmd.OutOrStdout(), ret.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hook, "hook", "main", "global function to call after loading")
	return cmd
}
