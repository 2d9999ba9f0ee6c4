// Package catalog loads named roll macros from YAML and validates every
// expression at load time.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dicenotation/internal/dice"
)

// Macro is a named dice expression with fixed placeholder bindings.
type Macro struct {
	Name        string         `yaml:"name"`
	Expression  string         `yaml:"expression"`
	Description string         `yaml:"description"`
	Bindings    map[string]int `yaml:"bindings"`

	parsed *dice.Expression
}

// Parsed returns the expression parsed at load time.
func (m *Macro) Parsed() *dice.Expression { return m.parsed }

type file struct {
	Macros []*Macro `yaml:"macros"`
}

// Catalog holds macros keyed by name.
//
// A Catalog is read-only after loading and safe for concurrent use.
type Catalog struct {
	macros map[string]*Macro
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{macros: make(map[string]*Macro)}
}

// Get returns the macro named name, or (nil, false) if not found.
func (c *Catalog) Get(name string) (*Macro, bool) {
	m, ok := c.macros[name]
	return m, ok
}

// Names returns every macro name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.macros))
	for n := range c.macros {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of macros.
func (c *Catalog) Len() int { return len(c.macros) }

// add parses m with parser and registers it.
func (c *Catalog) add(m *Macro, parser *dice.Parser, source string) error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return fmt.Errorf("%s: macro with expression %q has no name", source, m.Expression)
	}
	if _, dup := c.macros[name]; dup {
		return fmt.Errorf("%s: duplicate macro %q", source, name)
	}
	e, err := parser.Parse(m.Expression, m.Bindings)
	if err != nil {
		return fmt.Errorf("%s: macro %q: %w", source, name, err)
	}
	m.Name = name
	m.parsed = e
	c.macros[name] = m
	return nil
}

// LoadFromBytes decodes one YAML document of macros into a new Catalog.
//
// Precondition: parser must be non-nil.
// Postcondition: Returns a Catalog holding every macro, or an error listing
// every invalid macro.
func LoadFromBytes(data []byte, parser *dice.Parser) (*Catalog, error) {
	c := New()
	if err := c.load(data, parser, "catalog"); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromFile reads one YAML file of macros.
func LoadFromFile(path string, parser *dice.Parser) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	c := New()
	if err := c.load(data, parser, path); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromDir reads every *.yaml file in dir into one Catalog. Macro names
// must be unique across files.
//
// Precondition: dir must be a readable directory.
func LoadFromDir(dir string, parser *dice.Parser) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}
	c := New()
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %q: %w", path, err))
			continue
		}
		if err := c.load(data, parser, path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// Load dispatches to LoadFromDir or LoadFromFile depending on what path names.
func Load(path string, parser *dice.Parser) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %q: %w", path, err)
	}
	if info.IsDir() {
		return LoadFromDir(path, parser)
	}
	return LoadFromFile(path, parser)
}

func (c *Catalog) load(data []byte, parser *dice.Parser, source string) error {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %q: %w", source, err)
	}
	var errs []error
	for _, m := range f.Macros {
		if err := c.add(m, parser, source); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
