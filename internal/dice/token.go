package dice

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokDie        // d, D
	tokFudgeDie   // dF
	tokPercentDie // d%
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
	tokCompare
	tokKeyword
	tokFunction
	tokPlaceholder
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number"
	case tokDie, tokFudgeDie, tokPercentDie:
		return "die marker"
	case tokPlus, tokMinus, tokStar, tokSlash:
		return "operator"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokCompare:
		return "comparison"
	case tokKeyword:
		return "keyword"
	case tokFunction:
		return "function"
	case tokPlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

// keyword classifies a bare word once, in the lexer.
type keyword int

const (
	kwOpaque keyword = iota
	kwAdvantage
	kwDisadvantage
	kwKeep
	kwHighest
	kwLowest
	kwReroll
	kwExplode
	kwSuccess
	kwThreshold
	kwCrit
	kwGlitch
)

// isMechanic reports whether k starts a modifier clause.
func (k keyword) isMechanic() bool {
	switch k {
	case kwAdvantage, kwDisadvantage, kwKeep, kwReroll, kwExplode, kwSuccess, kwThreshold, kwCrit, kwGlitch:
		return true
	}
	return false
}

var keywords = map[string]keyword{
	"advantage":    kwAdvantage,
	"disadvantage": kwDisadvantage,
	"keep":         kwKeep,
	"highest":      kwHighest,
	"lowest":       kwLowest,
	"reroll":       kwReroll,
	"explode":      kwExplode,
	"success":      kwSuccess,
	"threshold":    kwThreshold,
	"crit":         kwCrit,
	"critical":     kwCrit,
	"glitch":       kwGlitch,
	"failure":      kwGlitch,
}

var functions = map[string]bool{
	"floor": true,
	"ceil":  true,
	"round": true,
}

type token struct {
	kind   tokenKind
	lexeme string // lowercased for words
	offset int    // byte offset into the source text
	value  int    // tokNumber
	op     CompareOp
	kw     keyword
	name   string // tokPlaceholder identifier, tokFunction name
}

func (t token) String() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%q", t.lexeme)
}
