package dice

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Roller wraps a Source, a Parser and a logger to provide logged dice rolling.
// All rolls are logged at debug level with a roll id, the expression, every
// die value, the kept indices, the total and the critical flags.
type Roller struct {
	src    Source
	parser *Parser
	logger *zap.Logger
}

// RollerOption customizes a Roller.
type RollerOption func(*Roller)

// WithParser makes RollExpr parse with p instead of the default Policy.
func WithParser(p *Parser) RollerOption {
	return func(r *Roller) { r.parser = p }
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger, opts ...RollerOption) *Roller {
	r := &Roller{src: src, parser: defaultParser, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Parser returns the Parser RollExpr uses.
func (r *Roller) Parser() *Parser { return r.parser }

// Roll evaluates expr and logs the result at debug level.
//
// Precondition: expr must come from Parse.
func (r *Roller) Roll(expr *Expression) RollResult {
	result := Evaluate(expr, r.src)
	ce := r.logger.Check(zap.DebugLevel, "dice roll")
	if ce == nil {
		return result
	}
	fields := []zap.Field{
		zap.String("roll_id", uuid.NewString()),
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Ints("kept", result.Kept),
		zap.Float64("total", result.Total),
		zap.Bool("critical_success", result.CriticalSuccess),
		zap.Bool("critical_failure", result.CriticalFailure),
	}
	if result.Successes != nil {
		fields = append(fields, zap.Int("successes", *result.Successes))
	}
	if result.Success != nil {
		fields = append(fields, zap.Bool("success", *result.Success))
	}
	ce.Write(fields...)
	return result
}

// RollExpr parses text with bindings and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or a *Error from parsing.
func (r *Roller) RollExpr(text string, bindings map[string]int) (RollResult, error) {
	e, err := r.parser.Parse(text, bindings)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}
