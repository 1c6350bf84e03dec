// Package formula implements the spreadsheet engine's formula
// sub-engine: given a formula's source text (leading "=" stripped), it
// lexes and parses an evaluable expression tree and exposes it through
// core.FormulaObject, the only contract the spreadsheet package is
// allowed to depend on.
package formula

import (
	"github.com/vogtb/cellgraph/core"
)

var _ core.FormulaObject = (*Formula)(nil)

// Formula is the concrete core.FormulaObject this package produces.
type Formula struct {
	raw  string
	ast  ASTNode
	refs []core.Position
}

// Parse lexes and parses expr (a formula's source with its leading "="
// already removed) into a Formula. Parse failures are reported as
// *core.AppError with code core.FormulaParse, matching the structural
// error taxonomy the Cell/Sheet core propagates unchanged.
func Parse(expr string) (*Formula, error) {
	lexer := NewLexer(expr)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, core.NewFormulaParseError(err.Error())
	}

	parser := NewParser(tokens)
	ast, err := parser.Parse()
	if err != nil {
		return nil, core.NewFormulaParseError(err.Error())
	}

	refs := dedupePositions(ast.ReferencedCells())
	auditReferences(expr, refs)

	return &Formula{raw: expr, ast: ast, refs: refs}, nil
}

// Evaluate computes the formula's value against view.
func (f *Formula) Evaluate(view core.SheetView) core.Value {
	return f.ast.Eval(view)
}

// Text returns the canonical printed expression, without a leading "=".
func (f *Formula) Text() string {
	return f.ast.String()
}

// ReferencedCells lists every position this formula reads from, with
// range arguments already expanded to individual positions and
// duplicates removed.
func (f *Formula) ReferencedCells() []core.Position {
	out := make([]core.Position, len(f.refs))
	copy(out, f.refs)
	return out
}

func dedupePositions(positions []core.Position) []core.Position {
	seen := make(map[core.Position]struct{}, len(positions))
	out := make([]core.Position, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
