package dice

import (
	"maps"
	"slices"
)

// Parser turns dice notation into Expressions under a fixed Policy.
//
// A Parser is immutable and safe for concurrent use.
type Parser struct {
	policy Policy
}

// NewParser returns a Parser enforcing policy.
//
// Postcondition: returns a non-nil Parser, or an ErrInvalidPolicy error.
func NewParser(policy Policy) (*Parser, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Parser{policy: policy}, nil
}

var defaultParser = &Parser{policy: DefaultPolicy()}

// Parse parses text with DefaultPolicy. See (*Parser).Parse.
func Parse(text string, bindings map[string]int) (*Expression, error) {
	return defaultParser.Parse(text, bindings)
}

// MustParse parses text without bindings and panics on error. Useful for
// package-level constants.
//
// Precondition: text must be a valid dice expression without placeholders.
func MustParse(text string) *Expression {
	e, err := Parse(text, nil)
	if err != nil {
		panic("dice: MustParse failed for expression " + text + ": " + err.Error())
	}
	return e
}

// Policy returns the rules this Parser enforces.
func (p *Parser) Policy() Policy { return p.policy }

// Parse parses text into an immutable Expression, resolving every %name%
// placeholder from bindings. Validation runs while parsing, so every error
// surfaces here and never at roll time.
//
// Postcondition: returns a non-nil Expression, or a *Error of kind KindLex,
// KindParse or KindValidation. Unbound placeholders are reported together.
func (p *Parser) Parse(text string, bindings map[string]int) (*Expression, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	s := &parseState{
		policy:   p.policy,
		tokens:   tokens,
		bindings: bindings,
		resolved: make(map[string]int),
		missing:  make(map[string]int),
	}
	return s.parseExpression(text)
}

type parseState struct {
	policy   Policy
	tokens   []token
	pos      int
	bindings map[string]int
	resolved map[string]int
	missing  map[string]int // name -> offset of first use
	primary  *Dice
	dice     []*Dice
}

func (s *parseState) peek() token { return s.tokens[s.pos] }

func (s *parseState) next() token {
	t := s.tokens[s.pos]
	if t.kind != tokEOF {
		s.pos++
	}
	return t
}

func (s *parseState) accept(kind tokenKind) (token, bool) {
	if s.peek().kind == kind {
		return s.next(), true
	}
	return token{}, false
}

func (s *parseState) acceptKeyword(kw keyword) (token, bool) {
	if t := s.peek(); t.kind == tokKeyword && t.kw == kw {
		return s.next(), true
	}
	return token{}, false
}

// parseExpression is the top-level rule:
// term modifiers (('+'|'-') term)* [modifiers] [comparison] EOF.
// The second modifier suffix is only read when the first is empty.
func (s *parseState) parseExpression(text string) (*Expression, error) {
	if s.peek().kind == tokEOF {
		return nil, parseError(RuleEmptyExpression, 0, "empty expression")
	}

	base, err := s.parseTerm()
	if err != nil {
		return nil, err
	}
	mods, err := s.parseModifiers(base)
	if err != nil {
		return nil, err
	}
	root, err := s.parseAdditive(base)
	if err != nil {
		return nil, err
	}
	if t := s.peek(); root != base && !mods.any() && t.kind == tokKeyword && t.kw.isMechanic() {
		// "1d6 + 1d8 advantage": a suffix after the arithmetic still binds to
		// the left-most atom, subject to the mixed-dice policy.
		if mods, err = s.parseModifiers(root); err != nil {
			return nil, err
		}
	}
	cmp, err := s.parseComparison()
	if err != nil {
		return nil, err
	}
	if t := s.peek(); t.kind != tokEOF {
		return nil, s.trailingError(t)
	}

	if len(s.missing) > 0 {
		names := slices.Sorted(maps.Keys(s.missing))
		first := len(text)
		for _, off := range s.missing {
			first = min(first, off)
		}
		return nil, unboundError(names, first)
	}
	mods.Placeholders = s.resolved

	if err := checkMixedDice(s.policy, s.primary, s.dice, mods); err != nil {
		return nil, err
	}
	a := newAnalyzer(s.primary, mods)
	if err := checkDivisors(root, a); err != nil {
		return nil, err
	}

	expr := &Expression{
		text:       text,
		root:       root,
		primary:    s.primary,
		mods:       mods,
		comparison: cmp,
		stats:      a.statistics(root),
	}
	return expr, nil
}

// parseAdditive continues an arithmetic expression whose first term is left.
func (s *parseState) parseAdditive(left Node) (Node, error) {
	for {
		t := s.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return left, nil
		}
		s.next()
		right, err := s.parseTerm()
		if err != nil {
			return nil, err
		}
		op := OpAdd
		if t.kind == tokMinus {
			op = OpSub
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Offset: t.offset}
	}
}

// parseArith is expression := term (('+'|'-') term)*, used inside parentheses
// and function calls where no modifier suffix is allowed.
func (s *parseState) parseArith() (Node, error) {
	left, err := s.parseTerm()
	if err != nil {
		return nil, err
	}
	return s.parseAdditive(left)
}

// parseTerm is term := factor (('*'|'/') factor)*.
func (s *parseState) parseTerm() (Node, error) {
	left, err := s.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		t := s.peek()
		if t.kind != tokStar && t.kind != tokSlash {
			return left, nil
		}
		s.next()
		right, err := s.parseFactor()
		if err != nil {
			return nil, err
		}
		op := OpMul
		if t.kind == tokSlash {
			op = OpDiv
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Offset: t.offset}
	}
}

func (s *parseState) parseFactor() (Node, error) {
	t := s.peek()
	switch t.kind {
	case tokFunction:
		s.next()
		open, ok := s.accept(tokLParen)
		if !ok {
			return nil, parseError(RuleUnexpectedToken, s.peek().offset,
				"expected '(' after %s at offset %d", t.name, t.offset)
		}
		arg, err := s.parseArith()
		if err != nil {
			return nil, err
		}
		if _, ok := s.accept(tokRParen); !ok {
			return nil, s.unclosed(open)
		}
		return &FunctionCall{Name: t.name, Arg: arg}, nil

	case tokLParen:
		s.next()
		inner, err := s.parseArith()
		if err != nil {
			return nil, err
		}
		if _, ok := s.accept(tokRParen); !ok {
			return nil, s.unclosed(t)
		}
		return inner, nil

	case tokNumber:
		s.next()
		switch s.peek().kind {
		case tokDie, tokFudgeDie, tokPercentDie:
			return s.parseDice(&t)
		}
		return &Number{Value: t.value}, nil

	case tokDie, tokFudgeDie, tokPercentDie:
		return s.parseDice(nil)

	case tokPlaceholder:
		s.next()
		return s.placeholder(t), nil

	case tokEOF:
		return nil, parseError(RuleUnexpectedToken, t.offset,
			"unexpected end of input at offset %d, expected a number, dice, '(' or function", t.offset)

	case tokKeyword:
		if t.kw == kwOpaque {
			return nil, parseError(RuleUnknownKeyword, t.offset, "unknown keyword %s at offset %d", t, t.offset)
		}
	}
	return nil, parseError(RuleUnexpectedToken, t.offset,
		"unexpected %s %s at offset %d, expected a number, dice, '(' or function", t.kind, t, t.offset)
}

// parseDice is dieAtom := [NUMBER] ('d' NUMBER | 'dF' | 'd%'). countTok is the
// already-consumed count, or nil when omitted.
func (s *parseState) parseDice(countTok *token) (Node, error) {
	marker := s.next()
	count, offset := 1, marker.offset
	if countTok != nil {
		count, offset = countTok.value, countTok.offset
	}

	var sides int
	var kind DieKind
	switch marker.kind {
	case tokFudgeDie:
		sides, kind = 3, Fudge
	case tokPercentDie:
		sides, kind = 100, Percentile
	default:
		n, ok := s.accept(tokNumber)
		if !ok {
			return nil, parseError(RuleUnexpectedToken, s.peek().offset,
				"expected die sides after 'd' at offset %d, got %s", marker.offset, s.peek())
		}
		sides, kind = n.value, Standard
	}
	if err := checkDiceBounds(count, sides, offset); err != nil {
		return nil, err
	}

	d := &Dice{Count: count, Sides: sides, Kind: kind, Offset: offset}
	s.dice = append(s.dice, d)
	if s.primary == nil {
		s.primary = d
	}
	return d, nil
}

func (s *parseState) placeholder(t token) *Placeholder {
	v, ok := s.bindings[t.name]
	if ok {
		s.resolved[t.name] = v
	} else if _, seen := s.missing[t.name]; !seen {
		s.missing[t.name] = t.offset
	}
	return &Placeholder{Name: t.name, Value: v, Offset: t.offset}
}

// parseModifiers reads the optional modifier suffix in its fixed order:
// advantage|disadvantage, keep, explode, reroll, success, crit, glitch.
func (s *parseState) parseModifiers(base Node) (RollModifiers, error) {
	var mods RollModifiers

	if t, ok := s.acceptMechanic(kwAdvantage, kwDisadvantage); ok {
		if _, err := s.target(t); err != nil {
			return mods, err
		}
		mods.Advantage = Advantage
		if t.kw == kwDisadvantage {
			mods.Advantage = Disadvantage
		}
		mods.AdvantageExtra = 1
	}

	if t, ok := s.acceptKeyword(kwKeep); ok {
		spec, err := s.target(t)
		if err != nil {
			return mods, err
		}
		n, err := s.expectNumber("keep count", t)
		if err != nil {
			return mods, err
		}
		keep := Keep{Count: n.value}
		switch dir := s.next(); {
		case dir.kind == tokKeyword && dir.kw == kwHighest:
			keep.Highest = true
		case dir.kind == tokKeyword && dir.kw == kwLowest:
		default:
			return mods, parseError(RuleUnexpectedToken, dir.offset,
				"expected highest or lowest after keep %d at offset %d, got %s", n.value, dir.offset, dir)
		}
		if err := checkKeep(keep, spec, mods, t.offset); err != nil {
			return mods, err
		}
		mods.Keep = &keep
	}

	if t, ok := s.acceptKeyword(kwExplode); ok {
		spec, err := s.target(t)
		if err != nil {
			return mods, err
		}
		_, hi := spec.Faces()
		cond := Condition{Op: CmpGreaterEqual, Threshold: hi, Limit: s.policy.ExplodeLimit}
		if err := s.parseCondition(&cond, "explode", t, false); err != nil {
			return mods, err
		}
		if err := checkExplode(cond, spec, s.policy, t.offset); err != nil {
			return mods, err
		}
		mods.Explode = &cond
	}

	if t, ok := s.acceptKeyword(kwReroll); ok {
		spec, err := s.target(t)
		if err != nil {
			return mods, err
		}
		cond := Condition{Limit: s.policy.RerollLimit}
		if err := s.parseCondition(&cond, "reroll", t, true); err != nil {
			return mods, err
		}
		if err := checkReroll(cond, spec, t.offset); err != nil {
			return mods, err
		}
		mods.Reroll = &cond
	}

	success, err := s.parseSuccess(base, mods)
	if err != nil {
		return mods, err
	}
	mods.Success = success

	if t, ok := s.acceptKeyword(kwCrit); ok {
		spec, err := s.target(t)
		if err != nil {
			return mods, err
		}
		v, err := s.parseSignedInt("critical success threshold", t)
		if err != nil {
			return mods, err
		}
		if err := checkCritical("critical success", v, spec, t.offset); err != nil {
			return mods, err
		}
		mods.CriticalSuccess = &v
	}

	if t, ok := s.acceptKeyword(kwGlitch); ok {
		spec, err := s.target(t)
		if err != nil {
			return mods, err
		}
		v, err := s.parseSignedInt("critical failure threshold", t)
		if err != nil {
			return mods, err
		}
		if err := checkCritical("critical failure", v, spec, t.offset); err != nil {
			return mods, err
		}
		mods.CriticalFailure = &v
	}

	return mods, nil
}

// parseSuccess reads "success threshold N", "threshold N", or a bare
// comparison. A bare comparison only counts successes when it directly follows
// a multi-die atom; otherwise it is left for the expression-level comparison.
func (s *parseState) parseSuccess(base Node, mods RollModifiers) (*Comparison, error) {
	t := s.peek()
	switch {
	case t.kind == tokKeyword && (t.kw == kwSuccess || t.kw == kwThreshold):
		s.next()
		if _, err := s.target(t); err != nil {
			return nil, err
		}
		if t.kw == kwSuccess {
			if _, ok := s.acceptKeyword(kwThreshold); !ok {
				return nil, parseError(RuleUnexpectedToken, s.peek().offset,
					"expected threshold after success at offset %d, got %s", t.offset, s.peek())
			}
		}
		v, err := s.parseSignedInt("success threshold", t)
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: CmpGreaterEqual, Threshold: v}, nil

	case t.kind == tokCompare:
		d, ok := base.(*Dice)
		if !ok || d != s.primary {
			return nil, nil
		}
		if _, kept, _ := mods.selection(d.Spec()); kept < 2 {
			return nil, nil
		}
		s.next()
		v, err := s.parseSignedInt("success threshold", t)
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: t.op, Threshold: v}, nil
	}
	return nil, nil
}

// parseCondition reads "[limit] [op threshold]" after reroll or explode.
// When required is set the comparison must be present.
func (s *parseState) parseCondition(cond *Condition, which string, kw token, required bool) error {
	if n, ok := s.accept(tokNumber); ok {
		if err := checkLimit(which, n.value, n.offset); err != nil {
			return err
		}
		cond.Limit = n.value
	}
	op, ok := s.accept(tokCompare)
	if !ok {
		if required {
			return parseError(RuleUnexpectedToken, s.peek().offset,
				"%s at offset %d needs a condition such as <=2, got %s", which, kw.offset, s.peek())
		}
		return nil
	}
	v, err := s.parseSignedInt(which+" threshold", op)
	if err != nil {
		return err
	}
	cond.Op, cond.Threshold = op.op, v
	return nil
}

// parseComparison reads the optional expression-level comparison.
func (s *parseState) parseComparison() (*Comparison, error) {
	t, ok := s.accept(tokCompare)
	if !ok {
		return nil, nil
	}
	if ph, ok := s.accept(tokPlaceholder); ok {
		p := s.placeholder(ph)
		return &Comparison{Op: t.op, Threshold: p.Value, Placeholder: p.Name}, nil
	}
	v, err := s.parseSignedInt("comparison threshold", t)
	if err != nil {
		return nil, err
	}
	return &Comparison{Op: t.op, Threshold: v}, nil
}

// parseSignedInt reads ['-'] NUMBER. Thresholds may be negative for fudge dice.
func (s *parseState) parseSignedInt(what string, after token) (int, error) {
	neg := false
	if _, ok := s.accept(tokMinus); ok {
		neg = true
	}
	n, err := s.expectNumber(what, after)
	if err != nil {
		return 0, err
	}
	if neg {
		return -n.value, nil
	}
	return n.value, nil
}

func (s *parseState) expectNumber(what string, after token) (token, error) {
	n, ok := s.accept(tokNumber)
	if !ok {
		got := s.peek()
		return token{}, parseError(RuleUnexpectedToken, got.offset,
			"expected %s after %s at offset %d, got %s", what, after, after.offset, got)
	}
	return n, nil
}

func (s *parseState) acceptMechanic(kws ...keyword) (token, bool) {
	for _, kw := range kws {
		if t, ok := s.acceptKeyword(kw); ok {
			return t, true
		}
	}
	return token{}, false
}

// target returns the specification modifiers bind to: the left-most dice atom.
func (s *parseState) target(kw token) (DiceSpecification, error) {
	if s.primary == nil {
		return DiceSpecification{}, validationError(RuleModifierTarget, kw.offset,
			"modifier %s at offset %d needs a dice term before it", kw, kw.offset)
	}
	return s.primary.Spec(), nil
}

func (s *parseState) unclosed(open token) error {
	return parseError(RuleUnmatchedParen, open.offset,
		"unmatched '(' at offset %d, got %s", open.offset, s.peek())
}

func (s *parseState) trailingError(t token) error {
	switch {
	case t.kind == tokRParen:
		return parseError(RuleUnmatchedParen, t.offset, "unmatched ')' at offset %d", t.offset)
	case t.kind == tokKeyword && t.kw.isMechanic():
		return parseError(RuleUnexpectedToken, t.offset,
			"modifier %s at offset %d is repeated or out of order", t, t.offset)
	case t.kind == tokKeyword && t.kw == kwOpaque:
		return parseError(RuleUnknownKeyword, t.offset, "unknown keyword %s at offset %d", t, t.offset)
	}
	return parseError(RuleUnexpectedToken, t.offset, "unexpected %s %s at offset %d", t.kind, t, t.offset)
}
