package spreadsheet

import (
	"testing"

	"github.com/vogtb/cellgraph/core"
)

func TestEmptyCellDefaults(t *testing.T) {
	s := NewDefaultSheet()
	c, err := s.getOrCreateCell(pos(0, 0))
	if err != nil {
		t.Fatalf("getOrCreateCell failed: %v", err)
	}
	if c.kind != CellEmpty {
		t.Errorf("fresh cell kind = %v, want CellEmpty", c.kind)
	}
	if got := c.GetValue(); got != core.NumberValue(0) {
		t.Errorf("Empty.GetValue() = %v, want Number(0)", got)
	}
	if got := c.GetText(); got != "" {
		t.Errorf("Empty.GetText() = %q, want \"\"", got)
	}
	if refs := c.GetReferencedCells(); refs != nil {
		t.Errorf("Empty.GetReferencedCells() = %v, want nil", refs)
	}
}

func TestTextCellStripsEscapeSignFromValueOnly(t *testing.T) {
	s := NewDefaultSheet()
	p := pos(0, 0)
	if err := s.SetCell(p, "'hello"); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	c, _ := s.GetCell(p)
	if got := c.GetText(); got != "'hello" {
		t.Errorf("GetText() = %q, want \"'hello\"", got)
	}
	if got := c.GetValue(); got != core.TextValue("hello") {
		t.Errorf("GetValue() = %v, want Text(hello)", got)
	}
}

func TestPlainTextCellWithoutEscapeSign(t *testing.T) {
	s := NewDefaultSheet()
	p := pos(0, 0)
	if err := s.SetCell(p, "plain"); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	c, _ := s.GetCell(p)
	if got := c.GetValue(); got != core.TextValue("plain") {
		t.Errorf("GetValue() = %v, want Text(plain)", got)
	}
	if c.kind != CellText {
		t.Errorf("kind = %v, want CellText", c.kind)
	}
}

func TestBareEqualsSignIsTextNotFormula(t *testing.T) {
	// buildVariant only promotes to Formula when the text is longer than
	// the lone FormulaSign byte; a bare "=" has nothing to parse.
	s := NewDefaultSheet()
	p := pos(0, 0)
	if err := s.SetCell(p, "="); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	c, _ := s.GetCell(p)
	if c.kind != CellText {
		t.Errorf("kind = %v, want CellText for bare \"=\"", c.kind)
	}
}

func TestFormulaCellTextRoundTrip(t *testing.T) {
	s := NewDefaultSheet()
	p := pos(0, 0)
	if err := s.SetCell(p, "=1+2*3"); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	c, _ := s.GetCell(p)
	if got, want := c.GetText(), "=1+2*3"; got != want {
		t.Errorf("GetText() = %q, want %q", got, want)
	}
	if got := c.GetValue(); got != core.NumberValue(7) {
		t.Errorf("GetValue() = %v, want Number(7)", got)
	}
}

func TestInvalidFormulaSyntaxIsRejected(t *testing.T) {
	s := NewDefaultSheet()
	if err := s.SetCell(pos(0, 0), "=1+"); err == nil {
		t.Error("SetCell with malformed formula succeeded, want parse error")
	}
}

func TestFormulaCacheInvalidatedOnDependencyChange(t *testing.T) {
	s := NewDefaultSheet()
	a1, b1 := pos(0, 0), pos(0, 1)
	if err := s.SetCell(a1, "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCell(b1, "=A1+1"); err != nil {
		t.Fatal(err)
	}
	b1Cell, _ := s.GetCell(b1)
	if got := b1Cell.GetValue(); got != core.NumberValue(2) {
		t.Fatalf("initial GetValue() = %v, want Number(2)", got)
	}
	if b1Cell.cache == nil {
		t.Fatal("expected cache to be populated after first GetValue()")
	}
	if err := s.SetCell(a1, "10"); err != nil {
		t.Fatal(err)
	}
	if b1Cell.cache != nil {
		t.Error("cache should be nil after dependency changed, invalidation did not propagate")
	}
	if got := b1Cell.GetValue(); got != core.NumberValue(11) {
		t.Errorf("recomputed GetValue() = %v, want Number(11)", got)
	}
}

func TestChangingFormulaToTextDetachesOutgoingEdges(t *testing.T) {
	s := NewDefaultSheet()
	a1, b1 := pos(0, 0), pos(0, 1)
	if err := s.SetCell(a1, "5"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCell(b1, "=A1+1"); err != nil {
		t.Fatal(err)
	}
	a1Cell, _ := s.GetCell(a1)
	if len(a1Cell.incoming) != 1 {
		t.Fatalf("A1.incoming = %v, want 1 entry", a1Cell.incoming)
	}
	if err := s.SetCell(b1, "no longer a formula"); err != nil {
		t.Fatal(err)
	}
	if len(a1Cell.incoming) != 0 {
		t.Errorf("A1.incoming after B1 became text = %v, want empty", a1Cell.incoming)
	}
	b1Cell, _ := s.GetCell(b1)
	if refs := b1Cell.GetReferencedCells(); refs != nil {
		t.Errorf("B1.GetReferencedCells() after becoming text = %v, want nil", refs)
	}
}

func TestClearingFormulaCellDetachesEdges(t *testing.T) {
	s := NewDefaultSheet()
	a1, b1 := pos(0, 0), pos(0, 1)
	if err := s.SetCell(a1, "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCell(b1, "=A1"); err != nil {
		t.Fatal(err)
	}
	a1Cell, _ := s.GetCell(a1)
	if err := s.ClearCell(b1); err != nil {
		t.Fatal(err)
	}
	if len(a1Cell.incoming) != 0 {
		t.Errorf("A1.incoming after B1 cleared = %v, want empty", a1Cell.incoming)
	}
}

func TestDiamondDependencyRecomputesOnce(t *testing.T) {
	// A1 feeds both B1 and C1, which both feed D1 — a diamond shape, not
	// a cycle. Exercises that invalidateIncoming's visited-set prevents
	// D1 from being walked twice without masking the update.
	s := NewDefaultSheet()
	a1, b1, c1, d1 := pos(0, 0), pos(0, 1), pos(0, 2), pos(0, 3)
	for _, step := range []struct {
		p    core.Position
		text string
	}{
		{a1, "2"},
		{b1, "=A1*10"},
		{c1, "=A1*100"},
		{d1, "=B1+C1"},
	} {
		if err := s.SetCell(step.p, step.text); err != nil {
			t.Fatalf("SetCell(%v, %q) failed: %v", step.p, step.text, err)
		}
	}
	d1Cell, _ := s.GetCell(d1)
	if got := d1Cell.GetValue(); got != core.NumberValue(220) {
		t.Fatalf("GetValue() = %v, want Number(220)", got)
	}
	if err := s.SetCell(a1, "3"); err != nil {
		t.Fatal(err)
	}
	if got := d1Cell.GetValue(); got != core.NumberValue(330) {
		t.Errorf("GetValue() after A1 update = %v, want Number(330)", got)
	}
}

func TestLongerCycleIsRejected(t *testing.T) {
	s := NewDefaultSheet()
	a1, b1, c1, d1 := pos(0, 0), pos(0, 1), pos(0, 2), pos(0, 3)
	if err := s.SetCell(a1, "=B1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCell(b1, "=C1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCell(c1, "=D1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCell(d1, "=A1"); err == nil {
		t.Error("4-cell cycle was accepted, want CircularDependencyError")
	}
}

func TestCycleErrorCarriesPath(t *testing.T) {
	s := NewDefaultSheet()
	a1, b1 := pos(0, 0), pos(0, 1)
	if err := s.SetCell(a1, "=B1"); err != nil {
		t.Fatal(err)
	}
	err := s.SetCell(b1, "=A1")
	if err == nil {
		t.Fatal("expected CircularDependencyError")
	}
	appErr, ok := err.(*core.AppError)
	if !ok {
		t.Fatalf("error type = %T, want *core.AppError", err)
	}
	if appErr.Code != core.CircularDependency {
		t.Errorf("AppError.Code = %v, want CircularDependency", appErr.Code)
	}
	if len(appErr.Cycle) == 0 {
		t.Error("AppError.Cycle is empty, want a non-empty path")
	}
}

func TestRejectedEditLeavesPriorVariantIntact(t *testing.T) {
	s := NewDefaultSheet()
	a1, b1 := pos(0, 0), pos(0, 1)
	if err := s.SetCell(a1, "=B1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCell(b1, "=A1"); err == nil {
		t.Fatal("expected cycle rejection")
	}
	a1Cell, _ := s.GetCell(a1)
	if got := a1Cell.GetText(); got != "=B1" {
		t.Errorf("A1.GetText() after rejected edit elsewhere = %q, want \"=B1\"", got)
	}
}
