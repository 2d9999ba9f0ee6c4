package dice

import (
	"fmt"
	"strconv"
)

// Node is one node of a parsed dice expression.
//
// Invariant: nodes are never mutated after the Parser returns them, so one
// tree can be evaluated any number of times, concurrently.
type Node interface {
	fmt.Stringer
	node()
}

// DieKind selects the face set of a die.
type DieKind int

const (
	// Standard dice have faces 1..Sides.
	Standard DieKind = iota
	// Fudge dice have three faces mapped to -1, 0 and +1.
	Fudge
	// Percentile dice have faces 1..100.
	Percentile
)

func (k DieKind) String() string {
	switch k {
	case Fudge:
		return "fudge"
	case Percentile:
		return "percentile"
	default:
		return "standard"
	}
}

// DiceSpecification is the count, sides and kind of one dice atom.
type DiceSpecification struct {
	Count int
	Sides int
	Kind  DieKind
}

// Faces returns the lowest and highest face value of one die.
//
// Postcondition: lo < hi.
func (s DiceSpecification) Faces() (lo, hi int) {
	if s.Kind == Fudge {
		return -1, 1
	}
	return 1, s.Sides
}

// faceValues lists every face of one die in ascending order.
func (s DiceSpecification) faceValues() []int {
	lo, hi := s.Faces()
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}

func (s DiceSpecification) String() string {
	switch s.Kind {
	case Fudge:
		return fmt.Sprintf("%ddF", s.Count)
	case Percentile:
		return fmt.Sprintf("%dd%%", s.Count)
	default:
		return fmt.Sprintf("%dd%d", s.Count, s.Sides)
	}
}

// Number is an integer literal.
type Number struct {
	Value int
}

// Dice is a dice atom such as 3d6, dF or d%.
type Dice struct {
	Count  int
	Sides  int
	Kind   DieKind
	Offset int
}

// Spec returns the atom's DiceSpecification.
func (d *Dice) Spec() DiceSpecification {
	return DiceSpecification{Count: d.Count, Sides: d.Sides, Kind: d.Kind}
}

// Operator is an arithmetic operator.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
)

// BinaryOp applies Op to Left and Right.
type BinaryOp struct {
	Op     Operator
	Left   Node
	Right  Node
	Offset int
}

// FunctionCall is one of floor, ceil or round applied to Arg.
type FunctionCall struct {
	Name string
	Arg  Node
}

// Placeholder is a %name% input, bound to Value at parse time.
type Placeholder struct {
	Name   string
	Value  int
	Offset int
}

func (*Number) node()       {}
func (*Dice) node()         {}
func (*BinaryOp) node()     {}
func (*FunctionCall) node() {}
func (*Placeholder) node()  {}

func (n *Number) String() string { return strconv.Itoa(n.Value) }

func (d *Dice) String() string { return d.Spec().String() }

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %c %s)", b.Left, b.Op, b.Right)
}

func (f *FunctionCall) String() string { return fmt.Sprintf("%s(%s)", f.Name, f.Arg) }

func (p *Placeholder) String() string { return "%" + p.Name + "%" }

// walk visits n and its descendants depth-first, left to right.
func walk(n Node, visit func(Node)) {
	visit(n)
	switch t := n.(type) {
	case *BinaryOp:
		walk(t.Left, visit)
		walk(t.Right, visit)
	case *FunctionCall:
		walk(t.Arg, visit)
	}
}
