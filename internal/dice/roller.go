package dice

import (
	"math"
	"slices"
)

// Evaluate rolls expr against src.
//
// Draw order is fixed so a deterministic Source replays exactly: every initial
// face of the primary pool left to right, then each die's reroll chain, then
// each die's explosion chain, then secondary dice atoms in the order the
// arithmetic visits them.
//
// Precondition: expr came from Parse; src is non-nil.
// Postcondition: Total lies within expr.Statistics() [Minimum, Maximum].
func Evaluate(expr *Expression, src Source) RollResult {
	res := RollResult{Expression: expr.text}

	var poolSum float64
	if expr.primary != nil {
		p := rollPool(expr.primary.Spec(), expr.mods, src)
		res.Dice = p.values
		res.Kept, res.Discarded = p.kept, p.discarded
		res.Rerolls, res.Explosions = p.rerolls, p.explosions
		for _, i := range p.kept {
			poolSum += float64(p.values[i])
		}
		res.CriticalSuccess, res.CriticalFailure = criticals(p.physical, expr.mods)
	}

	ev := &evaluation{primary: expr.primary, poolSum: poolSum, src: src}
	res.Total = ev.eval(expr.root)
	res.Terms = ev.terms

	if cmp := expr.mods.Success; cmp != nil && expr.primary != nil {
		n := 0
		for _, i := range res.Kept {
			if cmp.Matches(float64(res.Dice[i])) {
				n++
			}
		}
		res.Successes = &n
		res.Total = float64(n)
	}
	if expr.comparison != nil {
		ok := expr.comparison.Matches(res.Total)
		res.Success = &ok
	}
	return res
}

func draw(spec DiceSpecification, src Source) int {
	if spec.Kind == Fudge {
		return src.Next(1, 3) - 2
	}
	return src.Next(1, spec.Sides)
}

type pool struct {
	values     []int
	kept       []int
	discarded  []int
	rerolls    []RerollLog
	explosions []ExplosionLog
	// physical lists every face that landed: resolved faces then explosion draws.
	physical []int
}

func rollPool(spec DiceSpecification, mods RollModifiers, src Source) pool {
	rolled, keep, highest := mods.selection(spec)

	faces := make([]int, rolled)
	for i := range faces {
		faces[i] = draw(spec, src)
	}

	var p pool
	if cond := mods.Reroll; cond != nil {
		for i := range faces {
			if !cond.Matches(faces[i]) {
				continue
			}
			log := RerollLog{Die: i, Rolls: []int{faces[i]}}
			for log.Count < cond.Limit && cond.Matches(faces[i]) {
				faces[i] = draw(spec, src)
				log.Rolls = append(log.Rolls, faces[i])
				log.Count++
			}
			log.LimitReached = cond.Matches(faces[i])
			p.rerolls = append(p.rerolls, log)
		}
	}

	p.values = slices.Clone(faces)
	p.physical = slices.Clone(faces)
	if cond := mods.Explode; cond != nil {
		for i, face := range faces {
			if !cond.Matches(face) {
				continue
			}
			log := ExplosionLog{Die: i, Rolls: []int{face}, CumulativeTotal: face}
			last := face
			for log.Count < cond.Limit && cond.Matches(last) {
				last = draw(spec, src)
				log.Rolls = append(log.Rolls, last)
				log.CumulativeTotal += last
				log.Count++
				p.physical = append(p.physical, last)
			}
			log.LimitReached = cond.Matches(last)
			p.values[i] = log.CumulativeTotal
			p.explosions = append(p.explosions, log)
		}
	}

	p.kept, p.discarded = partition(p.values, keep, highest)
	return p
}

// partition splits die indices into the keep highest (or lowest) values and
// the rest. Ties go to the earlier die. Both slices come back ascending.
func partition(values []int, keep int, highest bool) (kept, discarded []int) {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	if keep >= len(values) {
		return order, nil
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if highest {
			return values[b] - values[a]
		}
		return values[a] - values[b]
	})
	kept = slices.Clone(order[:keep])
	discarded = slices.Clone(order[keep:])
	slices.Sort(kept)
	slices.Sort(discarded)
	return kept, discarded
}

// criticals scans every physical face for the configured thresholds. The
// flags are independent.
func criticals(faces []int, mods RollModifiers) (success, failure bool) {
	for _, f := range faces {
		if mods.CriticalSuccess != nil && f == *mods.CriticalSuccess {
			success = true
		}
		if mods.CriticalFailure != nil && f == *mods.CriticalFailure {
			failure = true
		}
	}
	return success, failure
}

// evaluation walks the tree for one roll. The tree itself is never written.
type evaluation struct {
	primary *Dice
	poolSum float64
	src     Source
	terms   []TermRoll
}

func (ev *evaluation) eval(n Node) float64 {
	switch t := n.(type) {
	case *Number:
		return float64(t.Value)
	case *Placeholder:
		return float64(t.Value)
	case *Dice:
		if t == ev.primary {
			return ev.poolSum
		}
		return ev.rollTerm(t)
	case *FunctionCall:
		v := ev.eval(t.Arg)
		switch t.Name {
		case "floor":
			return math.Floor(v)
		case "ceil":
			return math.Ceil(v)
		default:
			return math.Round(v)
		}
	case *BinaryOp:
		l := ev.eval(t.Left)
		r := ev.eval(t.Right)
		switch t.Op {
		case OpAdd:
			return l + r
		case OpSub:
			return l - r
		case OpMul:
			return l * r
		default:
			if r == 0 {
				return 0
			}
			return l / r
		}
	}
	return 0
}

func (ev *evaluation) rollTerm(d *Dice) float64 {
	spec := d.Spec()
	term := TermRoll{Spec: spec, Offset: d.Offset, Dice: make([]int, spec.Count)}
	for i := range term.Dice {
		term.Dice[i] = draw(spec, ev.src)
		term.Total += term.Dice[i]
	}
	ev.terms = append(ev.terms, term)
	return float64(term.Total)
}
