package dice

import "maps"

// CompareOp is a comparison operator as written in the notation.
type CompareOp string

const (
	CmpGreaterEqual CompareOp = ">="
	CmpGreater      CompareOp = ">"
	CmpLessEqual    CompareOp = "<="
	CmpLess         CompareOp = "<"
	CmpEqual        CompareOp = "=="
)

// Match reports whether v satisfies "v op threshold".
func (op CompareOp) Match(v, threshold int) bool {
	return op.MatchFloat(float64(v), float64(threshold))
}

// MatchFloat is Match for arithmetic results.
func (op CompareOp) MatchFloat(v, threshold float64) bool {
	switch op {
	case CmpGreaterEqual:
		return v >= threshold
	case CmpGreater:
		return v > threshold
	case CmpLessEqual:
		return v <= threshold
	case CmpLess:
		return v < threshold
	case CmpEqual:
		return v == threshold
	}
	return false
}

// AdvantageMode is advantage, disadvantage, or neither.
type AdvantageMode int

const (
	NoAdvantage AdvantageMode = iota
	Advantage
	Disadvantage
)

func (a AdvantageMode) String() string {
	switch a {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	default:
		return "none"
	}
}

// Keep retains Count dice from the pool.
type Keep struct {
	Count   int
	Highest bool
}

// Condition triggers a reroll or explosion on faces matching "face Op Threshold",
// at most Limit times per die.
type Condition struct {
	Op        CompareOp
	Threshold int
	Limit     int
}

// Matches reports whether face triggers the condition.
func (c Condition) Matches(face int) bool { return c.Op.Match(face, c.Threshold) }

// Comparison is "value Op Threshold". Placeholder names the binding the
// threshold came from, if any.
type Comparison struct {
	Op          CompareOp
	Threshold   int
	Placeholder string
}

// Matches reports whether v satisfies the comparison.
func (c Comparison) Matches(v float64) bool { return c.Op.MatchFloat(v, float64(c.Threshold)) }

// RollModifiers is the flat record of mechanics bound to the primary dice atom.
//
// Invariant: Keep and Advantage are never both set; AdvantageExtra is 1 exactly
// when Advantage != NoAdvantage.
type RollModifiers struct {
	Advantage       AdvantageMode
	AdvantageExtra  int
	Keep            *Keep
	Reroll          *Condition
	Explode         *Condition
	Success         *Comparison
	CriticalSuccess *int
	CriticalFailure *int
	Placeholders    map[string]int
}

// any reports whether a mechanic other than placeholder binding is configured.
func (m RollModifiers) any() bool {
	return m.Advantage != NoAdvantage || m.Keep != nil || m.Reroll != nil || m.Explode != nil ||
		m.Success != nil || m.CriticalSuccess != nil || m.CriticalFailure != nil
}

// selection returns the effective keep rule for a pool of spec.Count dice:
// how many dice are rolled, how many are kept and from which end.
func (m RollModifiers) selection(spec DiceSpecification) (rolled, kept int, highest bool) {
	rolled = spec.Count + m.AdvantageExtra
	switch {
	case m.Advantage == Advantage:
		return rolled, spec.Count, true
	case m.Advantage == Disadvantage:
		return rolled, spec.Count, false
	case m.Keep != nil:
		return rolled, m.Keep.Count, m.Keep.Highest
	}
	return rolled, rolled, true
}

func (m RollModifiers) clone() RollModifiers {
	out := m
	if m.Keep != nil {
		k := *m.Keep
		out.Keep = &k
	}
	if m.Reroll != nil {
		c := *m.Reroll
		out.Reroll = &c
	}
	if m.Explode != nil {
		c := *m.Explode
		out.Explode = &c
	}
	if m.Success != nil {
		c := *m.Success
		out.Success = &c
	}
	if m.CriticalSuccess != nil {
		v := *m.CriticalSuccess
		out.CriticalSuccess = &v
	}
	if m.CriticalFailure != nil {
		v := *m.CriticalFailure
		out.CriticalFailure = &v
	}
	out.Placeholders = maps.Clone(m.Placeholders)
	return out
}
