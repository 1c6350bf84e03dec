package spreadsheet

import (
	"strings"

	"github.com/vogtb/cellgraph/core"
	"github.com/vogtb/cellgraph/formula"
)

// FormulaSign marks a cell's text as a formula when it is the leading
// byte and the text is longer than one character.
const FormulaSign = '='

// EscapeSign, as the leading byte of a Text cell, is stripped from the
// cell's value while remaining part of its text.
const EscapeSign = '\''

// CellKind tags the variant a Cell currently holds. The three kinds are
// a closed capability set dispatched with a switch, never an inheritance
// hierarchy — the same distinction the original engine draws between its
// Impl/EmptyImpl/TextImpl/FormulaImpl case analysis.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellText
	CellFormula
)

// Cell is a single addressable table entry. The Sheet exclusively owns
// every Cell; incoming/outgoing are non-owning bookkeeping links whose
// validity is bounded by the owning Sheet's lifetime.
type Cell struct {
	sheet *Sheet
	pos   core.Position

	kind    CellKind
	text    string             // raw text for the Text variant
	formula core.FormulaObject // parsed object for the Formula variant
	cache   *core.Value        // nil when uncached; only meaningful for Formula

	outgoing map[core.Position]*Cell
	incoming map[core.Position]*Cell
}

func newCell(sheet *Sheet, pos core.Position) *Cell {
	return &Cell{
		sheet:    sheet,
		pos:      pos,
		kind:     CellEmpty,
		outgoing: make(map[core.Position]*Cell),
		incoming: make(map[core.Position]*Cell),
	}
}

// Set is the central mutator: build a candidate variant, reject it if it
// would introduce a cycle, otherwise swap the variant in, rewrite edges,
// and invalidate caches transitively.
func (c *Cell) Set(text string) error {
	kind, rawText, obj, err := buildVariant(text)
	if err != nil {
		return err
	}

	var refs []core.Position
	if kind == CellFormula {
		refs = obj.ReferencedCells()
	}

	refCells := make([]*Cell, 0, len(refs))
	for _, p := range refs {
		if !p.IsValid() {
			return core.NewInvalidPositionError(p)
		}
		rc, err := c.sheet.getOrCreateCell(p)
		if err != nil {
			return err
		}
		refCells = append(refCells, rc)
	}

	if cycle := c.detectCycle(refCells); cycle != nil {
		return core.NewCircularDependencyError(cycle)
	}

	// detach previous outgoing edges
	for pos, old := range c.outgoing {
		delete(old.incoming, c.pos)
		delete(c.outgoing, pos)
	}

	// swap variant
	c.kind = kind
	c.text = rawText
	c.formula = obj
	c.cache = nil

	// rewrite outgoing edges, mirrored as incoming on the referenced cells
	for _, rc := range refCells {
		c.outgoing[rc.pos] = rc
		rc.incoming[c.pos] = c
	}

	c.invalidateIncoming()
	return nil
}

// Clear reduces the cell to the Empty variant. It does not remove the
// Cell from the Sheet: other cells' outgoing edges may still name this
// position, and the Cell must remain resident to carry the mirrored
// incoming edge (see SPEC_FULL.md's resolution of the ClearCell open
// question). The Sheet decides, after Clear returns, whether the slot
// itself can be released.
func (c *Cell) Clear() error {
	return c.Set("")
}

// GetValue dispatches to the current variant's value rule.
func (c *Cell) GetValue() core.Value {
	switch c.kind {
	case CellEmpty:
		return core.NumberValue(0)
	case CellText:
		if strings.HasPrefix(c.text, string(EscapeSign)) {
			return core.TextValue(c.text[1:])
		}
		return core.TextValue(c.text)
	case CellFormula:
		if c.cache == nil {
			v := c.formula.Evaluate(c.sheet)
			c.cache = &v
		}
		return *c.cache
	default:
		return core.Value{}
	}
}

// GetText dispatches to the current variant's text rule.
func (c *Cell) GetText() string {
	switch c.kind {
	case CellEmpty:
		return ""
	case CellText:
		return c.text
	case CellFormula:
		return string(FormulaSign) + c.formula.Text()
	default:
		return ""
	}
}

// GetReferencedCells dispatches to the current variant's referenced-cell
// set. Non-Formula variants reference nothing.
func (c *Cell) GetReferencedCells() []core.Position {
	if c.kind != CellFormula {
		return nil
	}
	out := make([]core.Position, 0, len(c.outgoing))
	for p := range c.outgoing {
		out = append(out, p)
	}
	return out
}

// detectCycle walks incoming edges from c (its ancestors — the cells
// whose evaluation would depend on c once the edit lands) looking for
// any cell named in refCells. A hit means one of the candidate's new
// references already depends on c, which would close a cycle. Returns
// the discovered path (c first) or nil if no cycle would form.
func (c *Cell) detectCycle(refCells []*Cell) []core.Position {
	refSet := make(map[core.Position]bool, len(refCells))
	for _, rc := range refCells {
		refSet[rc.pos] = true
	}

	visited := make(map[core.Position]bool)
	var path []core.Position

	var dfs func(cur *Cell) bool
	dfs = func(cur *Cell) bool {
		if visited[cur.pos] {
			return false
		}
		visited[cur.pos] = true
		path = append(path, cur.pos)
		if refSet[cur.pos] {
			return true
		}
		for _, ancestor := range cur.incoming {
			if dfs(ancestor) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if dfs(c) {
		return path
	}
	return nil
}

// invalidateIncoming clears the cached value of every Formula ancestor
// reachable from c via incoming edges, pruning at cells that already
// have no cache and at non-Formula cells (I4).
func (c *Cell) invalidateIncoming() {
	visited := make(map[core.Position]bool)

	var walk func(cur *Cell)
	walk = func(cur *Cell) {
		for pos, ancestor := range cur.incoming {
			if visited[pos] {
				continue
			}
			visited[pos] = true
			if ancestor.kind == CellFormula && ancestor.cache != nil {
				ancestor.cache = nil
				walk(ancestor)
			}
		}
	}
	walk(c)
}

// buildVariant classifies raw input text into the candidate variant
// Set(text) should swap to, parsing a formula through the formula
// sub-engine when text starts with FormulaSign.
func buildVariant(text string) (CellKind, string, core.FormulaObject, error) {
	if text == "" {
		return CellEmpty, "", nil, nil
	}
	if text[0] == FormulaSign && len(text) > 1 {
		obj, err := formula.Parse(text[1:])
		if err != nil {
			return 0, "", nil, err
		}
		return CellFormula, "", obj, nil
	}
	return CellText, text, nil, nil
}
