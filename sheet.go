// Package spreadsheet implements the cell/sheet core of a spreadsheet
// evaluation engine: a dependency graph of cells addressed by position,
// with cycle detection on edit and transitive cache invalidation.
package spreadsheet

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/vogtb/cellgraph/core"
)

var _ core.SheetView = (*Sheet)(nil)

// EngineLimits bounds the positions a Sheet will accept, making
// MAX_ROWS/MAX_COLS caller-configurable rather than fixed package
// constants.
type EngineLimits struct {
	MaxRows int
	MaxCols int
}

// DefaultEngineLimits returns the engine's built-in ceiling
// (core.MaxRows x core.MaxCols).
func DefaultEngineLimits() EngineLimits {
	return EngineLimits{MaxRows: core.MaxRows, MaxCols: core.MaxCols}
}

// Sheet owns a sparse container of cells: a map keyed by position, not
// row/column slices, so there are no rows or columns to grow. It is the
// only component that creates or destroys Cells.
type Sheet struct {
	limits EngineLimits
	cells  map[core.Position]*Cell
}

// NewSheet creates an empty Sheet bounded by limits.
func NewSheet(limits EngineLimits) *Sheet {
	return &Sheet{
		limits: limits,
		cells:  make(map[core.Position]*Cell),
	}
}

// NewDefaultSheet creates an empty Sheet with the engine's built-in
// position ceiling.
func NewDefaultSheet() *Sheet {
	return NewSheet(DefaultEngineLimits())
}

func (s *Sheet) isValid(pos core.Position) bool {
	return pos.Row >= 0 && pos.Row < s.limits.MaxRows && pos.Col >= 0 && pos.Col < s.limits.MaxCols
}

// getOrCreateCell returns the Cell at pos, materializing an Empty one if
// the slot is unpopulated. This is the single auto-materialization path
// (I5) used both by SetCell and by Cell.Set's edge rewrite.
func (s *Sheet) getOrCreateCell(pos core.Position) (*Cell, error) {
	if !s.isValid(pos) {
		return nil, core.NewInvalidPositionError(pos)
	}
	if c, ok := s.cells[pos]; ok {
		return c, nil
	}
	c := newCell(s, pos)
	s.cells[pos] = c
	return c, nil
}

// SetCell validates pos, materializes a Cell there if needed, and
// delegates to the Cell's Set. Errors from Set propagate unchanged; a
// freshly materialized (still Empty) Cell is left in place on failure.
func (s *Sheet) SetCell(pos core.Position, text string) error {
	if !s.isValid(pos) {
		return core.NewInvalidPositionError(pos)
	}
	cell, err := s.getOrCreateCell(pos)
	if err != nil {
		return err
	}
	return cell.Set(text)
}

// GetCell returns the Cell at pos, or (nil, false) if pos is invalid or
// beyond the materialized extent.
func (s *Sheet) GetCell(pos core.Position) (*Cell, bool) {
	if !s.isValid(pos) {
		return nil, false
	}
	c, ok := s.cells[pos]
	return c, ok
}

// GetConcreteCell returns the concrete *Cell at pos; identical to GetCell
// at this layer since the engine has no separate abstract read-only Cell
// handle type. Cell's edge rewrite goes through getOrCreateCell and the
// formula evaluator reads through ValueAt, so neither calls this.
func (s *Sheet) GetConcreteCell(pos core.Position) (*Cell, bool) {
	return s.GetCell(pos)
}

// ClearCell clears the cell at pos (reducing it to Empty) and, if it now
// carries no incoming edges, releases the slot entirely. A cell that
// other cells still reference remains resident as Empty so their
// outgoing edges keep pointing at a live Cell rather than a stale
// reference (see SPEC_FULL.md's resolution of the ClearCell open
// question). Clearing a cell that does not exist is a no-op.
func (s *Sheet) ClearCell(pos core.Position) error {
	if !s.isValid(pos) {
		return core.NewInvalidPositionError(pos)
	}
	c, ok := s.cells[pos]
	if !ok {
		return nil
	}
	if err := c.Clear(); err != nil {
		return err
	}
	if len(c.incoming) == 0 {
		delete(s.cells, pos)
	}
	return nil
}

// ValueAt implements core.SheetView for the formula sub-engine: a
// non-existent cell reads as Empty (Number(0.0)), and a Text value that
// parses as a finite number (e.g. "2", "-1.5") reads as that Number.
func (s *Sheet) ValueAt(pos core.Position) core.Value {
	c, ok := s.cells[pos]
	if !ok {
		return core.NumberValue(0)
	}
	v := c.GetValue()
	if v.Kind == core.ValueKindText {
		if n, err := strconv.ParseFloat(v.Text, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
			return core.NumberValue(n)
		}
	}
	return v
}

// GetPrintableSize returns the minimal rectangle containing every cell
// whose text is non-empty; (0,0) if none.
func (s *Sheet) GetPrintableSize() core.Size {
	maxRow, maxCol := -1, -1
	for pos, c := range s.cells {
		if c.GetText() == "" {
			continue
		}
		if pos.Row > maxRow {
			maxRow = pos.Row
		}
		if pos.Col > maxCol {
			maxCol = pos.Col
		}
	}
	if maxRow < 0 {
		return core.Size{}
	}
	return core.Size{Rows: maxRow + 1, Cols: maxCol + 1}
}

// PrintValues streams the printable rectangle's computed values,
// tab-separated and newline-terminated. Missing cells render empty.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.print(w, func(c *Cell) string {
		if c == nil {
			return ""
		}
		return c.GetValue().String()
	})
}

// PrintTexts streams the printable rectangle's raw texts, tab-separated
// and newline-terminated. Formulas print with their leading "=";
// escape-sign prefixes are preserved.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.print(w, func(c *Cell) string {
		if c == nil {
			return ""
		}
		return c.GetText()
	})
}

func (s *Sheet) print(w io.Writer, render func(*Cell) string) error {
	size := s.GetPrintableSize()
	bw := bufio.NewWriter(w)
	for row := 0; row < size.Rows; row++ {
		for col := 0; col < size.Cols; col++ {
			if col > 0 {
				if _, err := bw.WriteString("\t"); err != nil {
					return err
				}
			}
			cell := s.cells[core.Position{Row: row, Col: col}]
			if _, err := bw.WriteString(render(cell)); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Close drains every cell's edges before releasing the container,
// satisfying the Cell destructor precondition (empty edge sets) the way
// the original engine's Sheet destructor sequences Clear() across every
// populated cell before tearing down its storage. Any Cell handle a
// caller retains past Close observes a fully-detached cell rather than
// one pointing into a half-torn-down graph.
func (s *Sheet) Close() error {
	for _, c := range s.cells {
		if err := c.Clear(); err != nil {
			return err
		}
	}
	s.cells = make(map[core.Position]*Cell)
	return nil
}
