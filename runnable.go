package spreadsheet

import (
	"fmt"

	"github.com/vogtb/cellgraph/core"
)

// RunnableSheet provides a chainable interface over Sheet, short-
// circuiting every further call once an error has occurred so a caller
// can build up a sequence of edits and inspect the first failure at the
// end, rather than threading an error return through every line.
type RunnableSheet struct {
	sheet   *Sheet
	err     error
	printLn func(string)
}

// NewRunnableSheet creates a RunnableSheet over a fresh default-bounded
// Sheet. printLn is used by CheckError for logging.
func NewRunnableSheet(printLn func(string)) *RunnableSheet {
	return &RunnableSheet{
		sheet:   NewDefaultSheet(),
		printLn: printLn,
	}
}

// Set sets a cell's text by position (chainable).
func (r *RunnableSheet) Set(pos core.Position, text string) *RunnableSheet {
	if r.err != nil {
		return r
	}
	r.err = r.sheet.SetCell(pos, text)
	return r
}

// SetAddress sets a cell's text by "A1"-style address (chainable).
func (r *RunnableSheet) SetAddress(address string, text string) *RunnableSheet {
	if r.err != nil {
		return r
	}
	pos, err := core.ParsePosition(address)
	if err != nil {
		r.err = err
		return r
	}
	r.err = r.sheet.SetCell(pos, text)
	return r
}

// Get retrieves a cell's value by position (chainable).
func (r *RunnableSheet) Get(pos core.Position) (*RunnableSheet, core.Value) {
	if r.err != nil {
		return r, core.Value{}
	}
	c, ok := r.sheet.GetCell(pos)
	if !ok {
		return r, core.NumberValue(0)
	}
	return r, c.GetValue()
}

// Clear clears a cell by position (chainable).
func (r *RunnableSheet) Clear(pos core.Position) *RunnableSheet {
	if r.err != nil {
		return r
	}
	r.err = r.sheet.ClearCell(pos)
	return r
}

// SetBatch sets multiple cells at once (chainable).
func (r *RunnableSheet) SetBatch(cells map[core.Position]string) *RunnableSheet {
	if r.err != nil {
		return r
	}
	for pos, text := range cells {
		if r.err = r.sheet.SetCell(pos, text); r.err != nil {
			return r
		}
	}
	return r
}

// Run returns the underlying Sheet and any accumulated error; typically
// the last call in a chain.
func (r *RunnableSheet) Run() (*Sheet, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.sheet, nil
}

// RunOrPanic returns the underlying Sheet and panics on accumulated
// error; useful for examples and tests that want to fail fast.
func (r *RunnableSheet) RunOrPanic() *Sheet {
	sheet, err := r.Run()
	if err != nil {
		panic(err)
	}
	return sheet
}

// Error returns the current accumulated error, if any.
func (r *RunnableSheet) Error() error {
	return r.err
}

// CheckError logs the current error state via printLn (chainable).
func (r *RunnableSheet) CheckError() *RunnableSheet {
	if r.err != nil {
		r.printLn(fmt.Sprintf("ERROR: %v", r.err))
	} else {
		r.printLn("No errors")
	}
	return r
}

// Sheet returns the underlying Sheet, bypassing error tracking.
func (r *RunnableSheet) Sheet() *Sheet {
	return r.sheet
}

// Reset clears the accumulated error state (chainable).
func (r *RunnableSheet) Reset() *RunnableSheet {
	r.err = nil
	return r
}

// Then runs fn only if no error has occurred yet (chainable).
func (r *RunnableSheet) Then(fn func(*RunnableSheet) *RunnableSheet) *RunnableSheet {
	if r.err != nil {
		return r
	}
	return fn(r)
}

// OnError lets a chain recover from or translate the accumulated error
// (chainable).
func (r *RunnableSheet) OnError(fn func(error) error) *RunnableSheet {
	if r.err != nil {
		r.err = fn(r.err)
	}
	return r
}

// Must panics if an error has occurred (chainable); for chains where a
// failure is a programmer error, not a recoverable condition.
func (r *RunnableSheet) Must() *RunnableSheet {
	if r.err != nil {
		panic(r.err)
	}
	return r
}
