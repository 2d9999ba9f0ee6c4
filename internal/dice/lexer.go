package dice

import (
	"errors"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// notationLexer tokenizes dice notation. Rules are tried in order at each
// position; the trailing Invalid rule turns any stray character into a token
// so the error can name the character and its offset.
var notationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Placeholder", Pattern: `%[A-Za-z_][A-Za-z0-9_]*%`},
	{Name: "PercentDie", Pattern: `[dD]%`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `[A-Za-z_]+`},
	{Name: "Compare", Pattern: `<=|>=|==|<|>`},
	{Name: "Punct", Pattern: `[-+*/(),]`},
	{Name: "Invalid", Pattern: `.`},
})

var notationSymbols = notationLexer.Symbols()

// lex scans text into a flat token stream terminated by a tokEOF token.
//
// Postcondition: on success the last token has kind tokEOF and offset len(text).
func lex(text string) ([]token, error) {
	l, err := notationLexer.LexString("", text)
	if err != nil {
		return nil, scanError(err)
	}
	raw, err := lexer.ConsumeAll(l)
	if err != nil {
		return nil, scanError(err)
	}

	tokens := make([]token, 0, len(raw))
	for _, rt := range raw {
		if rt.EOF() {
			break
		}
		off := rt.Pos.Offset
		switch rt.Type {
		case notationSymbols["Whitespace"]:
			continue
		case notationSymbols["Placeholder"]:
			tokens = append(tokens, token{
				kind:   tokPlaceholder,
				lexeme: rt.Value,
				offset: off,
				name:   strings.Trim(rt.Value, "%"),
			})
		case notationSymbols["PercentDie"]:
			tokens = append(tokens, token{kind: tokPercentDie, lexeme: strings.ToLower(rt.Value), offset: off})
		case notationSymbols["Number"]:
			n, convErr := strconv.Atoi(rt.Value)
			if convErr != nil {
				return nil, lexError(RuleNumberRange, off, "number %s at offset %d is out of range", rt.Value, off)
			}
			tokens = append(tokens, token{kind: tokNumber, lexeme: rt.Value, offset: off, value: n})
		case notationSymbols["Word"]:
			tokens = append(tokens, classifyWord(strings.ToLower(rt.Value), off))
		case notationSymbols["Compare"]:
			tokens = append(tokens, token{kind: tokCompare, lexeme: rt.Value, offset: off, op: CompareOp(rt.Value)})
		case notationSymbols["Punct"]:
			tokens = append(tokens, token{kind: punctKinds[rt.Value], lexeme: rt.Value, offset: off})
		default:
			return nil, lexError(RuleUnknownCharacter, off, "unexpected character %q at offset %d", rt.Value, off)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, offset: len(text)})
	return tokens, nil
}

var punctKinds = map[string]tokenKind{
	"+": tokPlus,
	"-": tokMinus,
	"*": tokStar,
	"/": tokSlash,
	"(": tokLParen,
	")": tokRParen,
	",": tokComma,
}

// classifyWord folds a lowercased bare word into a die marker, function name,
// mechanic keyword, or opaque keyword.
func classifyWord(word string, offset int) token {
	t := token{lexeme: word, offset: offset}
	switch {
	case word == "d":
		t.kind = tokDie
	case word == "df":
		t.kind = tokFudgeDie
	case functions[word]:
		t.kind = tokFunction
		t.name = word
	default:
		t.kind = tokKeyword
		t.kw = keywords[word]
	}
	return t
}

// scanError converts a participle lexing failure into an *Error at the
// position participle reports, or -1 when it reports none.
func scanError(err error) *Error {
	offset, msg := -1, err.Error()
	var le *lexer.Error
	if errors.As(err, &le) {
		offset, msg = le.Pos.Offset, le.Msg
	}
	return lexError(RuleUnknownCharacter, offset, "%s at offset %d", msg, offset)
}
