package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicenotation/internal/catalog"
	"github.com/cory-johannsen/dicenotation/internal/dice"
)

// Manager owns one sandboxed LState and exposes hook dispatch.
//
// An LState is single-threaded, so every load and call holds mu. Each load
// and each hook call runs with a fresh instruction budget.
type Manager struct {
	mu      sync.Mutex
	L       *lua.LState
	cancel  func()
	limit   int
	roller  *dice.Roller
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewManager creates a Manager whose scripts roll with roller and resolve
// macros from cat. A nil cat makes engine.dice.macro raise a Lua error.
//
// Precondition: roller and logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a non-nil Manager with engine.* registered.
func NewManager(roller *dice.Roller, cat *catalog.Catalog, logger *zap.Logger, instLimit int) *Manager {
	if roller == nil {
		panic("scripting: NewManager called with nil roller")
	}
	if logger == nil {
		panic("scripting: NewManager called with nil logger")
	}
	L, cancel := NewSandboxedState(instLimit)
	m := &Manager{
		L:       L,
		cancel:  cancel,
		limit:   effectiveLimit(instLimit),
		roller:  roller,
		catalog: cat,
		logger:  logger,
	}
	m.RegisterModules(L)
	return m
}

// run executes fn with a fresh instruction budget.
//
// Precondition: m.mu is held.
func (m *Manager) run(fn func() error) error {
	if m.L == nil {
		return fmt.Errorf("scripting: manager is closed")
	}
	ctx, cancel := newCountingContext(m.limit)
	m.L.SetContext(ctx)
	defer cancel()
	return fn()
}

// LoadScript executes the Lua file at path, defining its globals.
//
// Postcondition: Returns an error on read, syntax or runtime failure.
func (m *Manager) LoadScript(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.run(func() error { return m.L.DoFile(path) }); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	return nil
}

// LoadString executes src under the chunk name name.
func (m *Manager) LoadString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.run(func() error {
		fn, err := m.L.Load(strings.NewReader(src), name)
		if err != nil {
			return err
		}
		m.L.Push(fn)
		return m.L.PCall(0, lua.MultRet, nil)
	})
	if err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// LoadDir executes every *.lua file in dir in lexicographic order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Stops at the first failing file and returns its error.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := m.LoadScript(path); err != nil {
			return err
		}
	}
	return nil
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if the
// hook is not defined. Lua runtime errors, including dice parse errors
// raised by engine.dice.*, are logged at Warn level and returned.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.L == nil {
		m.logger.Info("scripting: hook called on closed manager", zap.String("hook", hook))
		return lua.LNil, nil
	}

	fn := m.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	var ret lua.LValue = lua.LNil
	err := m.run(func() error {
		if err := m.L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, args...); err != nil {
			return err
		}
		ret = m.L.Get(-1)
		m.L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: hook %q: %w", hook, err)
	}
	return ret, nil
}

// Close releases the LState. Later calls to CallHook return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return
	}
	m.cancel()
	m.L.Close()
	m.L = nil
}
