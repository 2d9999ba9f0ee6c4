package dice

import (
	"fmt"
	"strings"
)

// Dice bounds. Fudge dice always have 3 internal sides and percentile dice 100.
const (
	MinDiceCount = 1
	MaxDiceCount = 100
	MinSides     = 2
	MaxSides     = 100
)

const (
	// DefaultRerollLimit caps rerolls per die when the notation gives no limit.
	DefaultRerollLimit = 100
	// DefaultExplodeLimit caps extra draws per exploding die when the notation gives no limit.
	DefaultExplodeLimit = 100
	// MaxIterationLimit is the largest reroll or explode limit accepted anywhere.
	MaxIterationLimit = 100
)

// MixedDicePolicy decides what happens when modifiers are attached to an
// expression that contains dice atoms of more than one type.
type MixedDicePolicy int

const (
	// MixedDiceBindFirst binds modifiers to the left-most dice atom.
	MixedDiceBindFirst MixedDicePolicy = iota
	// MixedDiceReject rejects the expression with RuleMixedDice.
	MixedDiceReject
)

func (p MixedDicePolicy) String() string {
	if p == MixedDiceReject {
		return "reject"
	}
	return "first"
}

// ParseMixedDicePolicy maps "first" or "reject" to a MixedDicePolicy.
func ParseMixedDicePolicy(s string) (MixedDicePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return MixedDiceBindFirst, nil
	case "reject":
		return MixedDiceReject, nil
	}
	return 0, fmt.Errorf("dice: unknown mixed dice policy %q (want first or reject)", s)
}

// Policy holds the tunable parsing rules.
type Policy struct {
	// RerollLimit is the per-die reroll cap used when "reroll" has no explicit limit.
	RerollLimit int
	// ExplodeLimit is the per-die explosion cap used when "explode" has no explicit limit.
	ExplodeLimit int
	// AllowFullRangeExplode permits explode conditions that match every face.
	// Rerolls matching every face are always rejected.
	AllowFullRangeExplode bool
	MixedDice             MixedDicePolicy
}

// DefaultPolicy returns the stock rules.
func DefaultPolicy() Policy {
	return Policy{
		RerollLimit:           DefaultRerollLimit,
		ExplodeLimit:          DefaultExplodeLimit,
		AllowFullRangeExplode: true,
		MixedDice:             MixedDiceBindFirst,
	}
}

// Validate checks the limits are within [0, MaxIterationLimit].
func (p Policy) Validate() error {
	var errs []string
	if p.RerollLimit < 0 || p.RerollLimit > MaxIterationLimit {
		errs = append(errs, fmt.Sprintf("reroll limit must be 0-%d, got %d", MaxIterationLimit, p.RerollLimit))
	}
	if p.ExplodeLimit < 0 || p.ExplodeLimit > MaxIterationLimit {
		errs = append(errs, fmt.Sprintf("explode limit must be 0-%d, got %d", MaxIterationLimit, p.ExplodeLimit))
	}
	if p.MixedDice != MixedDiceBindFirst && p.MixedDice != MixedDiceReject {
		errs = append(errs, fmt.Sprintf("unknown mixed dice policy %d", int(p.MixedDice)))
	}
	if len(errs) > 0 {
		return validationError(RulePolicy, -1, "%s", strings.Join(errs, "; "))
	}
	return nil
}
