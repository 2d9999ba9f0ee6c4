package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicenotation/internal/catalog"
	"github.com/cory-johannsen/dicenotation/internal/dice"
	"github.com/cory-johannsen/dicenotation/internal/scripting"
	"github.com/cory-johannsen/dicenotation/internal/testutil"
)

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	require.NoError(t, mgr.LoadString(t.Name(), luaSrc))
	ret, err := mgr.CallHook(hook, args...)
	require.NoError(t, err)
	return ret
}

func TestEngineLog_AllLevels(t *testing.T) {
	mgr, logs := newTestManager(t)

	runScript(t, mgr, `
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`, "do_all_logs")

	levels := map[string]string{}
	for _, e := range logs.All() {
		levels[e.Level.String()] = e.Message
		assert.Equal(t, "lua", e.ContextMap()["source"])
	}
	assert.Equal(t, map[string]string{"debug": "d", "info": "i", "warn": "w", "error": "e"}, levels)
}

func TestEngineDice_Roll_ScriptedFaces(t *testing.T) {
	mgr, _ := newManagerWithSource(t, testutil.NewSequenceSource(t, 6, 2, 5, 1))
	ret := runScript(t, mgr, `
		function do_roll()
			local r = engine.dice.roll("4d6 keep 3 highest")
			return string.format("%d|%d|%d,%d,%d|%d|%s",
				r.total, #r.dice, r.kept[1], r.kept[2], r.kept[3], r.discarded[1],
				tostring(r.successes))
		end
	`, "do_roll")
	assert.Equal(t, lua.LString("13|4|6,2,5|1|nil"), ret)
}

func TestEngineDice_Roll_Bindings(t *testing.T) {
	mgr, _ := newManagerWithSource(t, testutil.NewSequenceSource(t, 10))
	ret := runScript(t, mgr, `
		function do_roll()
			return engine.dice.roll("1d20 + %str%", {str = 4}).total
		end
	`, "do_roll")
	assert.Equal(t, lua.LNumber(14), ret)
}

func TestEngineDice_Roll_SuccessAndComparison(t *testing.T) {
	mgr, _ := newManagerWithSource(t, testutil.NewSequenceSource(t, 6, 3, 5, 20))
	ret := runScript(t, mgr, `
		function do_roll()
			local pool = engine.dice.roll("3d6 >= 5")
			local check = engine.dice.roll("1d20 crit 20 + 5 >= 15")
			return string.format("%d %s %s %s", pool.successes, tostring(check.success),
				tostring(check.critical_success), tostring(check.critical_failure))
		end
	`, "do_roll")
	assert.Equal(t, lua.LString("2 true true false"), ret)
}

func TestEngineDice_Roll_ParseErrorRaises(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadString("bad", `
		function do_roll() return engine.dice.roll("1d20 + %dex%").total end
	`))
	_, err := mgr.CallHook("do_roll")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dex")
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestEngineDice_Roll_PcallCatchesError(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_roll()
			local ok, msg = pcall(engine.dice.roll, "0d6")
			if ok then return "no error" end
			return "caught"
		end
	`, "do_roll")
	assert.Equal(t, lua.LString("caught"), ret)
}

func TestEngineDice_Roll_BadBindings(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("bad", `
		function do_roll() return engine.dice.roll("1d20 + %dex%", {dex = "high"}) end
	`))
	_, err := mgr.CallHook("do_roll")
	assert.Error(t, err)
}

func TestEngineDice_Roll_FractionalBindingRejected(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadString("frac", `
		function do_roll() return engine.dice.roll("1d20 + %str%", {str = 2.7}).total end
		function do_stats() return engine.dice.stats("1d20 + %str%", {str = 2.5}).max end
		function do_whole() return engine.dice.stats("1d20 + %str%", {str = 3.0}).max end
	`))
	for _, hook := range []string{"do_roll", "do_stats"} {
		_, err := mgr.CallHook(hook)
		require.Error(t, err, hook)
		assert.Contains(t, err.Error(), "must be an integer", hook)
	}
	assert.Equal(t, 0, logs.FilterMessage("dice roll").Len(), "nothing is rolled")

	ret, err := mgr.CallHook("do_whole")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(23), ret)
}

func TestEngineDice_Stats(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_stats()
			local s = engine.dice.stats("3d6")
			return string.format("%g %g %g %g", s.min, s.max, s.expected, s.variance)
		end
	`, "do_stats")
	assert.Equal(t, lua.LString("3 18 10.5 8.75"), ret)
}

func TestEngineDice_Stats_NoVarianceWhenInexact(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_stats()
			local s = engine.dice.stats("1d20 advantage")
			return s.variance == nil and s.max == 20
		end
	`, "do_stats")
	assert.Equal(t, lua.LTrue, ret)
}

func TestEngineDice_Macro(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	parser, err := dice.NewParser(dice.DefaultPolicy())
	require.NoError(t, err)
	cat, err := catalog.LoadFromBytes([]byte(`
macros:
  - name: attack
    expression: "1d20 + %str%"
    bindings: {str: 3}
`), parser)
	require.NoError(t, err)
	roller := dice.NewLoggedRoller(testutil.NewSequenceSource(t, 12), logger, dice.WithParser(parser))
	mgr := scripting.NewManager(roller, cat, logger, 0)
	defer mgr.Close()

	ret := runScript(t, mgr, `
		function do_macro() return engine.dice.macro("attack").total end
	`, "do_macro")
	assert.Equal(t, lua.LNumber(15), ret)
	assert.Equal(t, 1, logs.FilterMessage("dice roll").Len())

	require.NoError(t, mgr.LoadString("missing", `
		function missing_macro() return engine.dice.macro("nope") end
	`))
	_, err = mgr.CallHook("missing_macro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown macro")
}

func TestEngineDice_Macro_NoCatalog(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("m", `function m() return engine.dice.macro("x") end`))
	_, err := mgr.CallHook("m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no macro catalog")
}

func TestProperty_DiceRoll_TotalWithinStats(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("prop", `
		function check_bounds(expr)
			local r = engine.dice.roll(expr)
			local s = engine.dice.stats(expr)
			return r.total >= s.min and r.total <= s.max
		end
	`))
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.SampledFrom([]string{
			"1d6", "2d6 + 3", "4d6 keep 3 highest", "1d20 advantage", "5d10 >= 7", "1dF", "d%",
		}).Draw(rt, "expr")
		ret, err := mgr.CallHook("check_bounds", lua.LString(expr))
		if err != nil {
			rt.Fatalf("%s: %v", expr, err)
		}
		if ret != lua.LTrue {
			rt.Fatalf("%s: total outside [min, max]", expr)
		}
	})
}
