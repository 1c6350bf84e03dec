package formula

import (
	"math"
	"strings"

	"github.com/vogtb/cellgraph/core"
)

// builtinFunc evaluates a function call's arguments against view.
type builtinFunc func(view core.SheetView, args []ASTNode) core.Value

// builtins is the closed set of recognized function names, matching the
// teacher's own builtin.go function table (trimmed to the subset this
// engine's Value model and Non-goals support: no date/time or RNG
// volatility, since those need a clock/random collaborator out of scope
// here).
var builtins = map[string]builtinFunc{
	"SUM":         sumFn,
	"AVERAGE":     averageFn,
	"COUNT":       countFn,
	"MAX":         maxFn,
	"MIN":         minFn,
	"IF":          ifFn,
	"AND":         andFn,
	"OR":          orFn,
	"NOT":         notFn,
	"CONCATENATE": concatenateFn,
	"LEN":         lenFn,
	"UPPER":       upperFn,
	"LOWER":       lowerFn,
	"TRIM":        trimFn,
	"ABS":         absFn,
	"ROUND":       roundFn,
	"MOD":         modFn,
}

// expandNumbers flattens each argument into its constituent numeric values:
// a RangeNode expands to every cell it spans, a scalar argument
// evaluates directly. Non-numeric, non-error values are skipped (AVERAGE
// and friends ignore text the way the teacher's builtin.go does for its
// "A" variants' non-A counterparts).
func expandNumbers(view core.SheetView, args []ASTNode) ([]float64, core.Value) {
	var nums []float64
	for _, arg := range args {
		if rng, ok := arg.(*RangeNode); ok {
			for _, pos := range rng.Cells() {
				v := view.ValueAt(pos)
				if v.IsError() {
					return nil, v
				}
				if v.Kind == core.ValueKindNumber {
					nums = append(nums, v.Number)
				}
			}
			continue
		}
		v := arg.Eval(view)
		if v.IsError() {
			return nil, v
		}
		if v.Kind == core.ValueKindNumber {
			nums = append(nums, v.Number)
		}
	}
	return nums, core.Value{}
}

func sumFn(view core.SheetView, args []ASTNode) core.Value {
	nums, errVal := expandNumbers(view, args)
	if errVal.IsError() {
		return errVal
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return core.NumberValue(total)
}

func averageFn(view core.SheetView, args []ASTNode) core.Value {
	nums, errVal := expandNumbers(view, args)
	if errVal.IsError() {
		return errVal
	}
	if len(nums) == 0 {
		return core.ErrorValue(core.ErrorCodeDiv0)
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return core.NumberValue(total / float64(len(nums)))
}

func countFn(view core.SheetView, args []ASTNode) core.Value {
	nums, errVal := expandNumbers(view, args)
	if errVal.IsError() {
		return errVal
	}
	return core.NumberValue(float64(len(nums)))
}

func maxFn(view core.SheetView, args []ASTNode) core.Value {
	nums, errVal := expandNumbers(view, args)
	if errVal.IsError() {
		return errVal
	}
	if len(nums) == 0 {
		return core.NumberValue(0)
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return core.NumberValue(m)
}

func minFn(view core.SheetView, args []ASTNode) core.Value {
	nums, errVal := expandNumbers(view, args)
	if errVal.IsError() {
		return errVal
	}
	if len(nums) == 0 {
		return core.NumberValue(0)
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return core.NumberValue(m)
}

func ifFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) < 2 || len(args) > 3 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	cond := args[0].Eval(view)
	if cond.IsError() {
		return cond
	}
	truthy := cond.Kind == core.ValueKindNumber && cond.Number != 0
	if truthy {
		return args[1].Eval(view)
	}
	if len(args) == 3 {
		return args[2].Eval(view)
	}
	return core.NumberValue(0)
}

func andFn(view core.SheetView, args []ASTNode) core.Value {
	for _, arg := range args {
		v := arg.Eval(view)
		if v.IsError() {
			return v
		}
		if v.Kind != core.ValueKindNumber || v.Number == 0 {
			return core.NumberValue(0)
		}
	}
	return core.NumberValue(1)
}

func orFn(view core.SheetView, args []ASTNode) core.Value {
	for _, arg := range args {
		v := arg.Eval(view)
		if v.IsError() {
			return v
		}
		if v.Kind == core.ValueKindNumber && v.Number != 0 {
			return core.NumberValue(1)
		}
	}
	return core.NumberValue(0)
}

func notFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 1 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	v := args[0].Eval(view)
	if v.IsError() {
		return v
	}
	if v.Kind != core.ValueKindNumber {
		return core.ErrorValue(core.ErrorCodeValue)
	}
	if v.Number == 0 {
		return core.NumberValue(1)
	}
	return core.NumberValue(0)
}

func concatenateFn(view core.SheetView, args []ASTNode) core.Value {
	var b strings.Builder
	for _, arg := range args {
		v := arg.Eval(view)
		if v.IsError() {
			return v
		}
		b.WriteString(v.String())
	}
	return core.TextValue(b.String())
}

func lenFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 1 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	v := args[0].Eval(view)
	if v.IsError() {
		return v
	}
	return core.NumberValue(float64(len([]rune(v.String()))))
}

func upperFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 1 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	v := args[0].Eval(view)
	if v.IsError() {
		return v
	}
	return core.TextValue(strings.ToUpper(v.String()))
}

func lowerFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 1 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	v := args[0].Eval(view)
	if v.IsError() {
		return v
	}
	return core.TextValue(strings.ToLower(v.String()))
}

func trimFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 1 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	v := args[0].Eval(view)
	if v.IsError() {
		return v
	}
	return core.TextValue(strings.TrimSpace(v.String()))
}

func absFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 1 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	v := args[0].Eval(view)
	if v.IsError() {
		return v
	}
	if v.Kind != core.ValueKindNumber {
		return core.ErrorValue(core.ErrorCodeValue)
	}
	return core.NumberValue(math.Abs(v.Number))
}

func roundFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 2 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	v := args[0].Eval(view)
	if v.IsError() {
		return v
	}
	d := args[1].Eval(view)
	if d.IsError() {
		return d
	}
	if v.Kind != core.ValueKindNumber || d.Kind != core.ValueKindNumber {
		return core.ErrorValue(core.ErrorCodeValue)
	}
	scale := math.Pow(10, d.Number)
	return core.NumberValue(math.Round(v.Number*scale) / scale)
}

func modFn(view core.SheetView, args []ASTNode) core.Value {
	if len(args) != 2 {
		return core.ErrorValue(core.ErrorCodeNA)
	}
	a := args[0].Eval(view)
	if a.IsError() {
		return a
	}
	b := args[1].Eval(view)
	if b.IsError() {
		return b
	}
	if a.Kind != core.ValueKindNumber || b.Kind != core.ValueKindNumber {
		return core.ErrorValue(core.ErrorCodeValue)
	}
	if b.Number == 0 {
		return core.ErrorValue(core.ErrorCodeDiv0)
	}
	return core.NumberValue(math.Mod(a.Number, b.Number))
}
