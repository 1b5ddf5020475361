// Package formula compiles and evaluates the plague probability formula.
// Formulas are plain arithmetic expressions over a fixed set of named
// variables, precompiled once and evaluated per species group during a scan.
package formula

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Variables is the set of names a formula may reference. A formula that
// references anything outside this set fails to compile.
type Variables struct {
	BaseChance    float64 `expr:"baseChance"`
	SpeciesFactor float64 `expr:"speciesFactor"`
	Count         float64 `expr:"count"`
	Limit         float64 `expr:"limit"`
	WeatherFactor float64 `expr:"weatherFactor"`
	BiomeFactor   float64 `expr:"biomeFactor"`
	Players       float64 `expr:"players"`
}

// Formula is a compiled probability expression. Safe for concurrent Eval.
type Formula struct {
	src  string
	prog *vm.Program
}

// Compile parses and type-checks a formula string. The compiled program is
// reused across evaluations; callers should compile once at config load.
func Compile(src string) (*Formula, error) {
	prog, err := expr.Compile(src, expr.Env(Variables{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compile formula %q: %w", src, err)
	}
	return &Formula{src: src, prog: prog}, nil
}

// Source returns the formula string the program was compiled from.
func (f *Formula) Source() string {
	return f.src
}

// Eval runs the compiled expression against vars and returns the raw result.
// Results used as probabilities must be passed through Clamp by the caller.
func (f *Formula) Eval(vars Variables) (float64, error) {
	out, err := expr.Run(f.prog, vars)
	if err != nil {
		return 0, fmt.Errorf("evaluate formula %q: %w", f.src, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("evaluate formula %q: non-numeric result %T", f.src, out)
	}
	return v, nil
}

// Clamp bounds a raw formula result to [0, 1] for use as a probability.
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
