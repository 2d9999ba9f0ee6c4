package dice

// Expression is a parsed, validated and analyzed dice expression.
//
// Invariant: an Expression never changes after Parse returns it; it can be
// rolled any number of times, from any number of goroutines, as long as each
// caller's Source is itself safe for that use.
type Expression struct {
	text       string
	root       Node
	primary    *Dice
	mods       RollModifiers
	comparison *Comparison
	stats      StatisticalData
}

// String returns the source text.
func (e *Expression) String() string { return e.text }

// Root returns the arithmetic tree.
func (e *Expression) Root() Node { return e.root }

// HasDice reports whether the expression contains at least one dice atom.
func (e *Expression) HasDice() bool { return e.primary != nil }

// Specification returns the left-most dice atom's specification, which the
// modifiers are bound to. It is the zero value when HasDice is false.
func (e *Expression) Specification() DiceSpecification {
	if e.primary == nil {
		return DiceSpecification{}
	}
	return e.primary.Spec()
}

// Modifiers returns a copy of the modifier record.
func (e *Expression) Modifiers() RollModifiers { return e.mods.clone() }

// Comparison returns the expression-level comparison, if any.
func (e *Expression) Comparison() (Comparison, bool) {
	if e.comparison == nil {
		return Comparison{}, false
	}
	return *e.comparison, true
}

// Statistics returns the exact minimum, maximum and expected value of the
// roll total, computed at parse time without rolling.
func (e *Expression) Statistics() StatisticalData {
	out := e.stats
	if e.stats.Variance != nil {
		v := *e.stats.Variance
		out.Variance = &v
	}
	return out
}
