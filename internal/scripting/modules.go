package scripting

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicenotation/internal/dice"
)

// RegisterModules registers all engine.* Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine, engine.dice and engine.log are defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "dice", m.newDiceModule(L))
	L.SetField(engine, "log", m.newLogModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) newDiceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"roll":  m.luaRoll,
		"stats": m.luaStats,
		"macro": m.luaMacro,
	})
	return mod
}

func (m *Manager) newLogModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logFn := range levels {
		logFn := logFn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

// luaRoll implements engine.dice.roll(text[, bindings]).
func (m *Manager) luaRoll(L *lua.LState) int {
	text := L.CheckString(1)
	bindings := checkBindings(L, 2)
	result, err := m.roller.RollExpr(text, bindings)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(resultToTable(L, result))
	return 1
}

// luaStats implements engine.dice.stats(text[, bindings]).
func (m *Manager) luaStats(L *lua.LState) int {
	text := L.CheckString(1)
	bindings := checkBindings(L, 2)
	expr, err := m.roller.Parser().Parse(text, bindings)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	s := expr.Statistics()
	t := L.NewTable()
	L.SetField(t, "min", lua.LNumber(s.Minimum))
	L.SetField(t, "max", lua.LNumber(s.Maximum))
	L.SetField(t, "expected", lua.LNumber(s.Expected))
	if s.Variance != nil {
		L.SetField(t, "variance", lua.LNumber(*s.Variance))
	}
	L.Push(t)
	return 1
}

// luaMacro implements engine.dice.macro(name).
func (m *Manager) luaMacro(L *lua.LState) int {
	name := L.CheckString(1)
	if m.catalog == nil {
		L.RaiseError("no macro catalog loaded")
		return 0
	}
	macro, ok := m.catalog.Get(name)
	if !ok {
		L.RaiseError("unknown macro %q", name)
		return 0
	}
	L.Push(resultToTable(L, m.roller.Roll(macro.Parsed())))
	return 1
}

// checkBindings reads an optional {name = integer} table at stack index n.
func checkBindings(L *lua.LState, n int) map[string]int {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return nil
	}
	tbl := L.CheckTable(n)
	bindings := make(map[string]int)
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			L.ArgError(n, "binding names must be strings")
		}
		num, ok := v.(lua.LNumber)
		if !ok {
			L.ArgError(n, "binding "+string(key)+" must be a number")
		}
		f := float64(num)
		if f != math.Trunc(f) {
			L.ArgError(n, fmt.Sprintf("binding %s must be an integer, got %g", key, f))
		}
		bindings[string(key)] = int(num)
	})
	return bindings
}

func intsToTable(L *lua.LState, vs []int) *lua.LTable {
	t := L.CreateTable(len(vs), 0)
	for _, v := range vs {
		t.Append(lua.LNumber(v))
	}
	return t
}

// resultToTable converts a RollResult to the table engine.dice.roll returns.
// successes and success are nil unless the expression counts successes or
// compares its total.
func resultToTable(L *lua.LState, r dice.RollResult) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "expression", lua.LString(r.Expression))
	L.SetField(t, "total", lua.LNumber(r.Total))
	L.SetField(t, "dice", intsToTable(L, r.Dice))
	L.SetField(t, "kept", intsToTable(L, r.KeptValues()))
	discarded := make([]int, 0, len(r.Discarded))
	for _, i := range r.Discarded {
		discarded = append(discarded, r.Dice[i])
	}
	L.SetField(t, "discarded", intsToTable(L, discarded))
	L.SetField(t, "critical_success", lua.LBool(r.CriticalSuccess))
	L.SetField(t, "critical_failure", lua.LBool(r.CriticalFailure))
	if r.Successes != nil {
		L.SetField(t, "successes", lua.LNumber(*r.Successes))
	}
	if r.Success != nil {
		L.SetField(t, "success", lua.LBool(*r.Success))
	}
	return t
}
