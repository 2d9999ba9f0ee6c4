package dice

import (
	"fmt"
	"math"
)

// StatisticalData summarizes the distribution of a roll total.
//
// Invariant: Minimum <= Expected <= Maximum. Expected is rounded to three
// decimals. Variance is nil when it has no closed form (keep, advantage,
// rounding functions, division by a random divisor).
type StatisticalData struct {
	Minimum  float64
	Maximum  float64
	Expected float64
	Variance *float64
}

func (s StatisticalData) String() string {
	out := fmt.Sprintf("min=%g max=%g expected=%g", s.Minimum, s.Maximum, s.Expected)
	if s.Variance != nil {
		out += fmt.Sprintf(" variance=%g", *s.Variance)
	}
	return out
}

// moments is the working summary of one subtree.
type moments struct {
	min, max float64
	mean     float64
	variance float64
	exactVar bool
}

func constant(v float64) moments {
	return moments{min: v, max: v, mean: v, exactVar: true}
}

// analyzer computes statistics for one parsed expression. The primary pool
// model is built at most once.
type analyzer struct {
	primary *Dice
	mods    RollModifiers
	pool    *poolModel
}

func newAnalyzer(primary *Dice, mods RollModifiers) *analyzer {
	return &analyzer{primary: primary, mods: mods}
}

// statistics returns the final summary for the tree rooted at root. When
// success counting is on, the total is the success count and the arithmetic
// around the pool does not contribute.
func (a *analyzer) statistics(root Node) StatisticalData {
	var m moments
	if a.mods.Success != nil && a.primary != nil {
		m = a.model().successes(*a.mods.Success)
	} else {
		m = a.moments(root)
	}
	return finish(m)
}

func finish(m moments) StatisticalData {
	mean := math.Min(math.Max(round3(m.mean), m.min), m.max)
	out := StatisticalData{Minimum: m.min, Maximum: m.max, Expected: mean}
	if m.exactVar {
		v := round3(math.Max(m.variance, 0))
		out.Variance = &v
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (a *analyzer) model() *poolModel {
	if a.pool == nil {
		a.pool = newPoolModel(a.primary.Spec(), a.mods)
	}
	return a.pool
}

// moments evaluates the summary of n bottom-up.
func (a *analyzer) moments(n Node) moments {
	switch t := n.(type) {
	case *Number:
		return constant(float64(t.Value))
	case *Placeholder:
		return constant(float64(t.Value))
	case *Dice:
		if t == a.primary {
			return a.model().sum()
		}
		return plainDice(t.Spec())
	case *FunctionCall:
		return applyFunction(t.Name, a.moments(t.Arg))
	case *BinaryOp:
		return combine(t.Op, a.moments(t.Left), a.moments(t.Right))
	}
	panic(fmt.Sprintf("dice: unknown node type %T", n))
}

// plainDice summarizes count dice with no mechanics attached.
func plainDice(spec DiceSpecification) moments {
	lo, hi := spec.Faces()
	n := float64(hi - lo + 1)
	c := float64(spec.Count)
	return moments{
		min:      c * float64(lo),
		max:      c * float64(hi),
		mean:     c * float64(lo+hi) / 2,
		variance: c * (n*n - 1) / 12,
		exactVar: true,
	}
}

func combine(op Operator, x, y moments) moments {
	switch op {
	case OpAdd:
		return moments{
			min: x.min + y.min, max: x.max + y.max, mean: x.mean + y.mean,
			variance: x.variance + y.variance, exactVar: x.exactVar && y.exactVar,
		}
	case OpSub:
		return moments{
			min: x.min - y.max, max: x.max - y.min, mean: x.mean - y.mean,
			variance: x.variance + y.variance, exactVar: x.exactVar && y.exactVar,
		}
	case OpMul:
		lo, hi := corners(x, y, func(a, b float64) float64 { return a * b })
		mx2, my2 := x.mean*x.mean, y.mean*y.mean
		return moments{
			min: lo, max: hi, mean: x.mean * y.mean,
			variance: (x.variance+mx2)*(y.variance+my2) - mx2*my2,
			exactVar: x.exactVar && y.exactVar,
		}
	case OpDiv:
		lo, hi := corners(x, y, func(a, b float64) float64 { return a / b })
		m := moments{min: lo, max: hi, mean: x.mean / y.mean}
		if y.min == y.max {
			m.variance = x.variance / (y.min * y.min)
			m.exactVar = x.exactVar
		}
		return m
	}
	panic(fmt.Sprintf("dice: unknown operator %q", byte(op)))
}

// corners returns the extremes of f over the four range corners. Valid for
// multiplication and for division by a range that excludes zero, where f is
// monotone in each argument.
func corners(x, y moments, f func(a, b float64) float64) (lo, hi float64) {
	vs := [4]float64{f(x.min, y.min), f(x.min, y.max), f(x.max, y.min), f(x.max, y.max)}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

func applyFunction(name string, m moments) moments {
	var f func(float64) float64
	switch name {
	case "floor":
		f = math.Floor
	case "ceil":
		f = math.Ceil
	case "round":
		f = math.Round
	default:
		panic("dice: unknown function " + name)
	}
	return moments{min: f(m.min), max: f(m.max), mean: f(m.mean)}
}

// poolModel is the per-die and pool-level distribution of the primary atom
// with every mechanic applied.
type poolModel struct {
	rolled, kept int
	highest      bool
	die          pmf     // final value of one die
	dieMean      float64 // closed-form mean of one die
	dieLo, dieHi int     // attainable range of one die
	weights      []float64
}

func newPoolModel(spec DiceSpecification, mods RollModifiers) *poolModel {
	face := uniform(spec)
	first := face
	if mods.Reroll != nil {
		first = rerolled(face, *mods.Reroll)
	}
	p := &poolModel{die: first, dieMean: first.mean()}
	p.dieLo, p.dieHi = face.lo, face.hi()
	if mods.Explode != nil {
		cond := *mods.Explode
		p.die = exploded(first, face, cond)
		p.dieMean = explodedMean(first, face, cond)
		p.dieLo, p.dieHi = explodedRange(spec.faceValues(), cond)
	}
	p.rolled, p.kept, p.highest = mods.selection(spec)
	p.weights = keptMass(p.die, p.rolled, p.kept, p.highest)
	return p
}

func (p *poolModel) selective() bool { return p.kept < p.rolled }

// sum summarizes the total of the kept dice.
func (p *poolModel) sum() moments {
	k := float64(p.kept)
	m := moments{min: k * float64(p.dieLo), max: k * float64(p.dieHi)}
	if !p.selective() {
		m.mean = k * p.dieMean
		m.variance = k * p.die.variance()
		m.exactVar = true
		return m
	}
	for i, w := range p.weights {
		m.mean += float64(p.die.lo+i) * w
	}
	return m
}

// successes summarizes the number of kept dice satisfying cmp. The range is
// always [0, kept].
func (p *poolModel) successes(cmp Comparison) moments {
	m := moments{min: 0, max: float64(p.kept)}
	if !p.selective() {
		q := p.die.mass(func(v int) bool { return cmp.Matches(float64(v)) })
		k := float64(p.kept)
		m.mean = k * q
		m.variance = k * q * (1 - q)
		m.exactVar = true
		return m
	}
	for i, w := range p.weights {
		if cmp.Matches(float64(p.die.lo + i)) {
			m.mean += w
		}
	}
	return m
}
