package dice

// Inline predicates called by the parser as soon as the values they check are
// known. Each returns nil or a KindValidation *Error.

func checkDiceBounds(count, sides, offset int) error {
	if count < MinDiceCount || count > MaxDiceCount {
		return validationError(RuleDiceCount, offset,
			"dice count must be %d-%d, got %d at offset %d", MinDiceCount, MaxDiceCount, count, offset)
	}
	if sides < MinSides || sides > MaxSides {
		return validationError(RuleDiceSides, offset,
			"die sides must be %d-%d, got %d at offset %d", MinSides, MaxSides, sides, offset)
	}
	return nil
}

func checkKeep(keep Keep, spec DiceSpecification, mods RollModifiers, offset int) error {
	if mods.Advantage != NoAdvantage {
		return validationError(RuleModifierConflict, offset,
			"keep %d cannot be combined with %s", keep.Count, mods.Advantage)
	}
	if keep.Count < 1 || keep.Count > spec.Count {
		return validationError(RuleKeepCount, offset,
			"keep count must be 1-%d for %s, got %d", spec.Count, spec, keep.Count)
	}
	return nil
}

func checkLimit(which string, limit, offset int) error {
	if limit < 0 || limit > MaxIterationLimit {
		return validationError(RuleLimitRange, offset,
			"%s limit must be 0-%d, got %d", which, MaxIterationLimit, limit)
	}
	return nil
}

// matchesEveryFace reports whether cond triggers on every face of spec.
func matchesEveryFace(cond Condition, spec DiceSpecification) bool {
	for _, f := range spec.faceValues() {
		if !cond.Matches(f) {
			return false
		}
	}
	return true
}

func checkReroll(cond Condition, spec DiceSpecification, offset int) error {
	if matchesEveryFace(cond, spec) {
		return validationError(RuleRerollRange, offset,
			"reroll %s%d on %s: condition covers entire die range", cond.Op, cond.Threshold, spec)
	}
	return nil
}

func checkExplode(cond Condition, spec DiceSpecification, policy Policy, offset int) error {
	if !policy.AllowFullRangeExplode && matchesEveryFace(cond, spec) {
		return validationError(RuleExplodeRange, offset,
			"explode %s%d on %s: condition covers entire die range", cond.Op, cond.Threshold, spec)
	}
	return nil
}

func checkCritical(which string, v int, spec DiceSpecification, offset int) error {
	lo, hi := spec.Faces()
	if v < lo || v > hi {
		return validationError(RuleCriticalRange, offset,
			"%s threshold %d is outside the %s face range %d-%d", which, v, spec, lo, hi)
	}
	return nil
}

// checkMixedDice enforces MixedDiceReject: modifiers may only be attached when
// every dice atom shares the primary atom's die type.
func checkMixedDice(policy Policy, primary *Dice, all []*Dice, mods RollModifiers) error {
	if policy.MixedDice != MixedDiceReject || primary == nil || !mods.any() {
		return nil
	}
	for _, d := range all {
		if d.Kind != primary.Kind || d.Sides != primary.Sides {
			return validationError(RuleMixedDice, d.Offset,
				"modifiers are bound to %s but the expression also rolls %s at offset %d",
				primary, d, d.Offset)
		}
	}
	return nil
}

// checkDivisors rejects any division whose divisor can evaluate to zero, so
// that evaluation is total.
func checkDivisors(root Node, a *analyzer) error {
	var err error
	walk(root, func(n Node) {
		b, ok := n.(*BinaryOp)
		if !ok || b.Op != OpDiv || err != nil {
			return
		}
		r := a.moments(b.Right)
		if r.min <= 0 && r.max >= 0 {
			err = validationError(RuleZeroDivisor, b.Offset,
				"divisor %s at offset %d can be zero (range %g to %g)", b.Right, b.Offset, r.min, r.max)
		}
	})
	return err
}
