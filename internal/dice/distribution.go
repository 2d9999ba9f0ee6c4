package dice

import "math"

// negligibleMass ends the explosion recurrence once the probability that a
// chain is still running can no longer move a 3-decimal statistic.
const negligibleMass = 1e-15

// pmf is a probability mass function over lo, lo+1, ..., lo+len(p)-1.
type pmf struct {
	lo int
	p  []float64
}

func uniform(spec DiceSpecification) pmf {
	lo, hi := spec.Faces()
	n := hi - lo + 1
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return pmf{lo: lo, p: p}
}

func (d pmf) hi() int { return d.lo + len(d.p) - 1 }

func (d pmf) mean() float64 {
	var m float64
	for i, pr := range d.p {
		m += float64(d.lo+i) * pr
	}
	return m
}

func (d pmf) variance() float64 {
	mu := d.mean()
	var v float64
	for i, pr := range d.p {
		x := float64(d.lo+i) - mu
		v += x * x * pr
	}
	return v
}

// mass returns P(pred(X)).
func (d pmf) mass(pred func(int) bool) float64 {
	var m float64
	for i, pr := range d.p {
		if pred(d.lo + i) {
			m += pr
		}
	}
	return m
}

// geometric returns 1 + q + q^2 + ... + q^(n-1).
func geometric(q float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	if q == 1 {
		return float64(n)
	}
	return (1 - math.Pow(q, float64(n))) / (1 - q)
}

// rerolled is the exact distribution of a die redrawn while it matches cond,
// at most cond.Limit times. A non-matching face f ends the chain at any of the
// limit+1 draws; a matching face survives only as the last allowed draw.
// Its support is therefore the full face range, so pool min/max keep the raw
// faces rather than the lowest non-matching one.
func rerolled(face pmf, cond Condition) pmf {
	q := face.mass(cond.Matches)
	keepOther := geometric(q, cond.Limit+1)
	keepMatch := math.Pow(q, float64(cond.Limit))
	out := pmf{lo: face.lo, p: make([]float64, len(face.p))}
	for i, pr := range face.p {
		if cond.Matches(face.lo + i) {
			out.p[i] = pr * keepMatch
		} else {
			out.p[i] = pr * keepOther
		}
	}
	return out
}

// explodedMean is E[first + extra draws] for a die whose first face follows
// first and whose extra draws follow face. Given the first face matched, the
// expected number of extra draws is the bounded geometric series
// 1 + p + ... + p^(limit-1).
func explodedMean(first, face pmf, cond Condition) float64 {
	p := face.mass(cond.Matches)
	return first.mean() + first.mass(cond.Matches)*face.mean()*geometric(p, cond.Limit)
}

// explodedRange returns the smallest and largest attainable cumulative total
// of one exploding die.
func explodedRange(faces []int, cond Condition) (lo, hi int) {
	if cond.Limit == 0 {
		return faces[0], faces[len(faces)-1]
	}
	var match, rest []int
	for _, f := range faces {
		if cond.Matches(f) {
			match = append(match, f)
		} else {
			rest = append(rest, f)
		}
	}

	lo, hi = math.MaxInt, math.MinInt
	consider := func(a, b int) {
		lo, hi = min(lo, a), max(hi, b)
	}
	if len(rest) > 0 {
		consider(rest[0], rest[len(rest)-1])
	}
	if len(match) == 0 {
		return lo, hi
	}
	mLo, mHi := match[0], match[len(match)-1]
	for j := 1; j <= cond.Limit; j++ {
		// The first face and j-1 extra draws matched; draw j ends the chain.
		switch {
		case j == cond.Limit:
			consider(j*mLo+faces[0], j*mHi+faces[len(faces)-1])
		case len(rest) > 0:
			consider(j*mLo+rest[0], j*mHi+rest[len(rest)-1])
		}
	}
	return lo, hi
}

// exploded is the distribution of the cumulative total of one exploding die.
func exploded(first, face pmf, cond Condition) pmf {
	if cond.Limit == 0 {
		return first
	}
	limit := cond.Limit
	base := min(face.lo, (limit+1)*face.lo)
	top := max(face.hi(), (limit+1)*face.hi())
	size := top - base + 1

	matches := make([]bool, len(face.p))
	for j := range face.p {
		matches[j] = cond.Matches(face.lo + j)
	}

	final := make([]float64, size)
	active := make([]float64, size)
	for i, pr := range first.p {
		v := first.lo + i
		if cond.Matches(v) {
			active[v-base] += pr
		} else {
			final[v-base] += pr
		}
	}

	for k := 1; k <= limit; k++ {
		next := make([]float64, size)
		var running float64
		for idx, pa := range active {
			if pa == 0 {
				continue
			}
			for j, pf := range face.p {
				t := idx + face.lo + j
				np := pa * pf
				if k < limit && matches[j] {
					next[t] += np
					running += np
				} else {
					final[t] += np
				}
			}
		}
		active = next
		if running < negligibleMass {
			break
		}
	}
	return trimmed(pmf{lo: base, p: final})
}

func trimmed(d pmf) pmf {
	start, end := 0, len(d.p)
	for start < end-1 && d.p[start] == 0 {
		start++
	}
	for end > start+1 && d.p[end-1] == 0 {
		end--
	}
	return pmf{lo: d.lo + start, p: d.p[start:end]}
}

// keptMass returns, for every value x in die's support, the expected number of
// kept dice showing x when rolled dice are drawn from die and the kept highest
// (or lowest) are retained. The entries sum to kept.
//
// For order statistic X(j) of the sorted sample, P(X(j) >= x) is the binomial
// tail P(Bin(rolled, P(X >= x)) >= rolled-j+1). Summed over the kept ranks this
// collapses to E[min(B, kept)] for the highest and E[max(B-(rolled-kept), 0)]
// for the lowest, where B ~ Bin(rolled, P(X >= x)).
func keptMass(die pmf, rolled, kept int, highest bool) []float64 {
	n := len(die.p)
	w := make([]float64, n)
	if kept == rolled {
		for i, pr := range die.p {
			w[i] = float64(rolled) * pr
		}
		return w
	}

	tail := make([]float64, n+1)
	for i := n - 1; i >= 0; i-- {
		tail[i] = tail[i+1] + die.p[i]
	}
	logFact := logFactorials(rolled)
	atLeast := make([]float64, n+1)
	for i := 0; i < n; i++ {
		b := binomialPMF(rolled, min(tail[i], 1), logFact)
		var t float64
		for c, pc := range b {
			if highest {
				t += pc * float64(min(c, kept))
			} else {
				t += pc * float64(max(c-(rolled-kept), 0))
			}
		}
		atLeast[i] = t
	}
	for i := range w {
		w[i] = max(atLeast[i]-atLeast[i+1], 0)
	}
	return w
}

func logFactorials(n int) []float64 {
	out := make([]float64, n+1)
	for i := 2; i <= n; i++ {
		out[i] = out[i-1] + math.Log(float64(i))
	}
	return out
}

// binomialPMF returns P(Bin(n, q) = c) for c = 0..n.
func binomialPMF(n int, q float64, logFact []float64) []float64 {
	out := make([]float64, n+1)
	switch {
	case q <= 0:
		out[0] = 1
		return out
	case q >= 1:
		out[n] = 1
		return out
	}
	lq, lr := math.Log(q), math.Log1p(-q)
	for c := 0; c <= n; c++ {
		out[c] = math.Exp(logFact[n] - logFact[c] - logFact[n-c] + float64(c)*lq + float64(n-c)*lr)
	}
	return out
}
