package dice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind separates malformed input from well-formed but illegal input.
type ErrorKind int

const (
	// KindLex reports a character the lexer cannot tokenize.
	KindLex ErrorKind = iota + 1
	// KindParse reports a token sequence the grammar does not accept.
	KindParse
	// KindValidation reports a well-formed expression that violates a dice rule.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindLex:
		return "lex error"
	case KindParse:
		return "parse error"
	case KindValidation:
		return "validation error"
	default:
		return "error"
	}
}

// Rule is a stable code naming the violated rule.
type Rule string

const (
	RuleUnknownCharacter   Rule = "unknown_character"
	RuleNumberRange        Rule = "number_range"
	RuleUnexpectedToken    Rule = "unexpected_token"
	RuleUnmatchedParen     Rule = "unmatched_paren"
	RuleUnknownKeyword     Rule = "unknown_keyword"
	RuleEmptyExpression    Rule = "empty_expression"
	RuleDiceCount          Rule = "dice_count"
	RuleDiceSides          Rule = "dice_sides"
	RuleKeepCount          Rule = "keep_count"
	RuleModifierConflict   Rule = "modifier_conflict"
	RuleModifierTarget     Rule = "modifier_target"
	RuleRerollRange        Rule = "reroll_range"
	RuleExplodeRange       Rule = "explode_range"
	RuleCriticalRange      Rule = "critical_range"
	RuleLimitRange         Rule = "limit_range"
	RuleUnboundPlaceholder Rule = "unbound_placeholder"
	RuleZeroDivisor        Rule = "zero_divisor"
	RuleMixedDice          Rule = "mixed_dice"
	RulePolicy             Rule = "policy"
)

// Error is the single error type returned by Parse.
//
// Invariant: Names is non-empty only for RuleUnboundPlaceholder and is sorted.
type Error struct {
	Kind    ErrorKind
	Rule    Rule
	Offset  int // byte offset into the source text, -1 when not positional
	Message string
	Names   []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("dice: %s (%s): %s", e.Kind, e.Rule, e.Message)
}

// Is matches on Kind and, when the target sets one, Rule.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != 0 && t.Kind != e.Kind {
		return false
	}
	return t.Rule == "" || t.Rule == e.Rule
}

// Sentinels for errors.Is.
var (
	ErrLex                = &Error{Kind: KindLex}
	ErrParse              = &Error{Kind: KindParse}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrUnknownCharacter   = &Error{Kind: KindLex, Rule: RuleUnknownCharacter}
	ErrUnmatchedParen     = &Error{Kind: KindParse, Rule: RuleUnmatchedParen}
	ErrDiceCount          = &Error{Kind: KindValidation, Rule: RuleDiceCount}
	ErrDiceSides          = &Error{Kind: KindValidation, Rule: RuleDiceSides}
	ErrKeepCount          = &Error{Kind: KindValidation, Rule: RuleKeepCount}
	ErrModifierConflict   = &Error{Kind: KindValidation, Rule: RuleModifierConflict}
	ErrRerollRange        = &Error{Kind: KindValidation, Rule: RuleRerollRange}
	ErrExplodeRange       = &Error{Kind: KindValidation, Rule: RuleExplodeRange}
	ErrCriticalRange      = &Error{Kind: KindValidation, Rule: RuleCriticalRange}
	ErrLimitRange         = &Error{Kind: KindValidation, Rule: RuleLimitRange}
	ErrUnboundPlaceholder = &Error{Kind: KindValidation, Rule: RuleUnboundPlaceholder}
	ErrZeroDivisor        = &Error{Kind: KindValidation, Rule: RuleZeroDivisor}
	ErrMixedDice          = &Error{Kind: KindValidation, Rule: RuleMixedDice}
	ErrInvalidPolicy      = &Error{Kind: KindValidation, Rule: RulePolicy}
)

func lexError(rule Rule, offset int, format string, args ...any) *Error {
	return &Error{Kind: KindLex, Rule: rule, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

func parseError(rule Rule, offset int, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Rule: rule, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

func validationError(rule Rule, offset int, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Rule: rule, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// unboundError reports every missing placeholder at once.
//
// Precondition: names is non-empty and sorted.
func unboundError(names []string, offset int) *Error {
	return &Error{
		Kind:    KindValidation,
		Rule:    RuleUnboundPlaceholder,
		Offset:  offset,
		Message: "no binding for placeholder(s): " + strings.Join(names, ", "),
		Names:   names,
	}
}
