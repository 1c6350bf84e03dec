package formula

import (
	"log/slog"
	"strings"

	"github.com/xuri/efp"

	"github.com/vogtb/cellgraph/core"
)

// efpReferencedCells independently tokenizes raw (the same source the
// hand-written lexer/parser consumed) with xuri/efp — the tokenizer
// excelize itself uses internally — and extracts every operand token
// efp classifies as a cell or range reference. It is not the source of
// truth for dependency wiring (the AST walk is); it is a cross-check,
// logged on disagreement. Malformed input that the AST parser already
// rejected never reaches here.
func efpReferencedCells(raw string) []core.Position {
	parser := efp.ExcelParser()
	tokens := parser.Parse(raw)
	if tokens == nil {
		return nil
	}

	var positions []core.Position
	for _, tok := range tokens {
		if tok.TType != efp.TokenTypeOperand || tok.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref := tok.TValue
		if idx := strings.Index(ref, "!"); idx != -1 {
			ref = ref[idx+1:]
		}
		if strings.Contains(ref, ":") {
			parts := strings.SplitN(ref, ":", 2)
			start, errA := ParseCellAddress(parts[0])
			end, errB := ParseCellAddress(parts[1])
			if errA != nil || errB != nil {
				continue
			}
			rng := &RangeNode{Start: start, End: end}
			positions = append(positions, rng.Cells()...)
			continue
		}
		pos, err := ParseCellAddress(ref)
		if err != nil {
			continue
		}
		positions = append(positions, pos)
	}
	return positions
}

// auditReferences logs a warning when the AST-derived reference set and
// the efp-derived reference set disagree, per scenario 9 in SPEC_FULL.md
// §8: disagreement is diagnostic information, never a parse failure.
func auditReferences(raw string, astRefs []core.Position) {
	efpRefs := dedupePositions(efpReferencedCells(raw))
	if !sameSet(astRefs, efpRefs) {
		slog.Warn("formula reference cross-check disagreement",
			"formula", raw,
			"ast_refs", astRefs,
			"efp_refs", efpRefs,
		)
	}
}

func sameSet(a, b []core.Position) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[core.Position]int, len(a))
	for _, p := range a {
		counts[p]++
	}
	for _, p := range b {
		counts[p]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
