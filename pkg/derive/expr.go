package derive

import (
	"fmt"

	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expr derives a value by evaluating an expression over the record's contents, for
// example "x * 2" or "first + ' ' + last". Keys never written evaluate to nil.
//
// The expression is compiled once. It is re-evaluated on every write to the record;
// watchers fire only when the result changes. An evaluation error (including one on the
// first evaluation, e.g. "x * 2" before x is written) keeps the previous result, nil at
// first, and is available from Value.Err.
func Expr(rec *reactive.Record, code string) (*Value, error) {
	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", code, err)
	}

	v := &Value{
		compute: func() (any, error) {
			return run(program, rec.Snapshot())
		},
	}

	dispose, err := rec.WatchAll(func(string, any) { v.recompute() })
	if err != nil {
		dispose()
		return nil, fmt.Errorf("failed to watch record %s: %w", rec.ID(), err)
	}
	v.release = append(v.release, dispose)
	v.ready = true
	v.recompute()
	return v, nil
}

func run(program *vm.Program, env map[string]any) (any, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression: %w", err)
	}
	return out, nil
}
