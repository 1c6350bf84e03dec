package formula

import (
	"math"
	"strconv"
	"strings"

	"github.com/vogtb/cellgraph/core"
)

// ASTNode is a parsed formula expression node. The three capabilities a
// Formula needs from its tree are all here: evaluation, canonical
// printing, and dependency extraction.
type ASTNode interface {
	Eval(view core.SheetView) core.Value
	String() string
	ReferencedCells() []core.Position
}

// NumberNode is a numeric literal.
type NumberNode struct{ Value float64 }

func (n *NumberNode) Eval(core.SheetView) core.Value { return core.NumberValue(n.Value) }
func (n *NumberNode) ReferencedCells() []core.Position { return nil }
func (n *NumberNode) String() string { return formatNumber(n.Value) }

// TextNode is a string literal.
type TextNode struct{ Value string }

func (n *TextNode) Eval(core.SheetView) core.Value { return core.TextValue(n.Value) }
func (n *TextNode) ReferencedCells() []core.Position { return nil }
func (n *TextNode) String() string { return `"` + n.Value + `"` }

// BoolNode is a boolean literal, represented as a number per spreadsheet
// convention (TRUE=1, FALSE=0) once it leaves formula-internal logic.
type BoolNode struct{ Value bool }

func (n *BoolNode) Eval(core.SheetView) core.Value {
	if n.Value {
		return core.NumberValue(1)
	}
	return core.NumberValue(0)
}
func (n *BoolNode) ReferencedCells() []core.Position { return nil }
func (n *BoolNode) String() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// CellRefNode reads another cell's value through the SheetView.
type CellRefNode struct{ Pos core.Position }

func (n *CellRefNode) Eval(view core.SheetView) core.Value { return view.ValueAt(n.Pos) }
func (n *CellRefNode) ReferencedCells() []core.Position { return []core.Position{n.Pos} }
func (n *CellRefNode) String() string { return n.Pos.String() }

// RangeNode names a rectangular span of cells. Per the engine's
// Non-goals, ranges are not a first-class dependency-graph entity:
// ReferencedCells expands the span eagerly into individual positions,
// and the aggregate builtins (see builtin.go) read it through Cells().
// Eval itself does not expand the span; it yields #VALUE!.
type RangeNode struct {
	Start core.Position
	End   core.Position
}

// Cells returns every position the range spans, row-major.
func (n *RangeNode) Cells() []core.Position {
	minRow, maxRow := minMax(n.Start.Row, n.End.Row)
	minCol, maxCol := minMax(n.Start.Col, n.End.Col)
	var out []core.Position
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			out = append(out, core.Position{Row: r, Col: c})
		}
	}
	return out
}

// Eval on a bare RangeNode (one not consumed by an aggregate function)
// has no single scalar value; per the sub-engine's error rules this is a
// #VALUE! error.
func (n *RangeNode) Eval(core.SheetView) core.Value { return core.ErrorValue(core.ErrorCodeValue) }
func (n *RangeNode) ReferencedCells() []core.Position { return n.Cells() }
func (n *RangeNode) String() string {
	return n.Start.String() + ":" + n.End.String()
}

// UnaryOpNode applies a prefix "+" or "-" to its operand.
type UnaryOpNode struct {
	Op      string
	Operand ASTNode
}

func (n *UnaryOpNode) Eval(view core.SheetView) core.Value {
	v := n.Operand.Eval(view)
	if v.IsError() {
		return v
	}
	if v.Kind != core.ValueKindNumber {
		return core.ErrorValue(core.ErrorCodeValue)
	}
	if n.Op == "-" {
		return core.NumberValue(-v.Number)
	}
	return v
}
func (n *UnaryOpNode) ReferencedCells() []core.Position { return n.Operand.ReferencedCells() }
func (n *UnaryOpNode) String() string {
	if _, ok := n.Operand.(*BinaryOpNode); ok {
		return n.Op + "(" + n.Operand.String() + ")"
	}
	return n.Op + n.Operand.String()
}

// BinaryOpNode applies an arithmetic, comparison, or concatenation
// operator to two operands.
type BinaryOpNode struct {
	Op          string
	Left, Right ASTNode
}

func (n *BinaryOpNode) ReferencedCells() []core.Position {
	return append(n.Left.ReferencedCells(), n.Right.ReferencedCells()...)
}
func (n *BinaryOpNode) String() string {
	prec := map[string]int{"=": 1, "<>": 1, "<": 1, "<=": 1, ">": 1, ">=": 1, "&": 2, "+": 3, "-": 3, "*": 4, "/": 4, "^": 5}
	l, r := n.Left.String(), n.Right.String()
	// parenthesize operands that bind looser than n.Op so the printed text
	// parses back to the same tree ("^" groups right, the rest group left)
	if lb, ok := n.Left.(*BinaryOpNode); ok && (prec[lb.Op] < prec[n.Op] || prec[lb.Op] == prec[n.Op] && n.Op == "^") {
		l = "(" + l + ")"
	}
	if rb, ok := n.Right.(*BinaryOpNode); ok && (prec[rb.Op] < prec[n.Op] || prec[rb.Op] == prec[n.Op] && n.Op != "^") {
		r = "(" + r + ")"
	}
	return l + n.Op + r
}

func (n *BinaryOpNode) Eval(view core.SheetView) core.Value {
	l := n.Left.Eval(view)
	if l.IsError() {
		return l
	}
	r := n.Right.Eval(view)
	if r.IsError() {
		return r
	}

	if n.Op == "&" {
		return core.TextValue(l.String() + r.String())
	}

	switch n.Op {
	case "=", "<>", "<", "<=", ">", ">=":
		return compare(n.Op, l, r)
	}

	if l.Kind != core.ValueKindNumber || r.Kind != core.ValueKindNumber {
		return core.ErrorValue(core.ErrorCodeValue)
	}
	switch n.Op {
	case "+":
		return core.NumberValue(l.Number + r.Number)
	case "-":
		return core.NumberValue(l.Number - r.Number)
	case "*":
		return core.NumberValue(l.Number * r.Number)
	case "/":
		if r.Number == 0 {
			return core.ErrorValue(core.ErrorCodeDiv0)
		}
		return core.NumberValue(l.Number / r.Number)
	case "^":
		return core.NumberValue(math.Pow(l.Number, r.Number))
	default:
		return core.ErrorValue(core.ErrorCodeOther)
	}
}

func compare(op string, l, r core.Value) core.Value {
	var less, equal bool
	if l.Kind == core.ValueKindNumber && r.Kind == core.ValueKindNumber {
		less = l.Number < r.Number
		equal = l.Number == r.Number
	} else {
		ls, rs := l.String(), r.String()
		less = ls < rs
		equal = ls == rs
	}
	var result bool
	switch op {
	case "=":
		result = equal
	case "<>":
		result = !equal
	case "<":
		result = less
	case "<=":
		result = less || equal
	case ">":
		result = !less && !equal
	case ">=":
		result = !less
	}
	if result {
		return core.NumberValue(1)
	}
	return core.NumberValue(0)
}

// CallNode is a builtin function invocation.
type CallNode struct {
	Name string
	Args []ASTNode
}

func (n *CallNode) Eval(view core.SheetView) core.Value {
	fn, ok := builtins[n.Name]
	if !ok {
		return core.ErrorValue(core.ErrorCodeName)
	}
	return fn(view, n.Args)
}

func (n *CallNode) ReferencedCells() []core.Position {
	var out []core.Position
	for _, arg := range n.Args {
		out = append(out, arg.ReferencedCells()...)
	}
	return out
}

func (n *CallNode) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name + "(" + strings.Join(parts, ",") + ")"
}

func minMax(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
