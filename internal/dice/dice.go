// Package dice parses tabletop dice notation into immutable expressions,
// computes their exact statistics without rolling, and evaluates them
// against an injected random Source.
//
//	expr, err := dice.Parse("4d6 keep 3 highest + %str%", map[string]int{"str": 2})
//	stats := expr.Statistics()
//	result := dice.Evaluate(expr, dice.NewCryptoSource())
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use if shared between goroutines.
type Source interface {
	// Next returns an int uniformly distributed in [lo, hi].
	//
	// Precondition: lo <= hi.
	Next(lo, hi int) int
}

// RerollLog records one die's reroll chain.
//
// Invariant: len(Rolls) == Count+1; Rolls[0] is the original face.
type RerollLog struct {
	Die          int
	Rolls        []int
	Count        int
	LimitReached bool
}

// ExplosionLog records one die's explosion chain.
//
// Invariant: len(Rolls) == Count+1 and CumulativeTotal == sum(Rolls).
type ExplosionLog struct {
	Die             int
	Rolls           []int
	Count           int
	CumulativeTotal int
	LimitReached    bool
}

// TermRoll is a secondary dice atom rolled plainly during arithmetic.
type TermRoll struct {
	Spec   DiceSpecification
	Offset int
	Dice   []int
	Total  int
}

// RollResult holds the full audit trail for one evaluation.
//
// Invariant: Kept and Discarded are ascending and together partition the
// indices of Dice. Successes, when set, equals Total.
type RollResult struct {
	Expression string
	Total      float64
	// Dice holds the final value of every die in the primary pool: the
	// reroll-resolved face, or the cumulative total of an exploding die.
	Dice       []int
	Kept       []int
	Discarded  []int
	Rerolls    []RerollLog
	Explosions []ExplosionLog
	Successes  *int

	CriticalSuccess bool
	CriticalFailure bool

	// Success is the outcome of the expression-level comparison, if any.
	Success *bool
	Terms   []TermRoll
}

// KeptValues returns the values of the kept dice in draw order.
func (r RollResult) KeptValues() []int {
	out := make([]int, 0, len(r.Kept))
	for _, i := range r.Kept {
		out = append(out, r.Dice[i])
	}
	return out
}

// String returns a human-readable audit string in the format:
//
//	"4d6 keep 3 highest → [6 2 5 (1)] = 13"
//
// Discarded dice are parenthesized.
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	discarded := make(map[int]bool, len(r.Discarded))
	for _, i := range r.Discarded {
		discarded[i] = true
	}
	faces := make([]string, len(r.Dice))
	for i, v := range r.Dice {
		faces[i] = strconv.Itoa(v)
		if discarded[i] {
			faces[i] = "(" + faces[i] + ")"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s → [%s] = %g", r.Expression, strings.Join(faces, " "), r.Total)
	if r.Successes != nil {
		b.WriteString(" successes")
	}
	if r.Success != nil {
		if *r.Success {
			b.WriteString(" (success)")
		} else {
			b.WriteString(" (failure)")
		}
	}
	if r.CriticalSuccess {
		b.WriteString(" critical success")
	}
	if r.CriticalFailure {
		b.WriteString(" critical failure")
	}
	return b.String()
}
