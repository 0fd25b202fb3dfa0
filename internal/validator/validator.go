package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/ivy/internal/dto"
	"github.com/expr-lang/expr"
)

// ValidateScenario checks that every derivation, tree reference and step names a
// declared observable, that step operations are known and expressions compile.
// All problems are reported at once.
func ValidateScenario(sc *dto.Scenario) error {
	var errors []string
	report := func(format string, args ...any) {
		errors = append(errors, fmt.Sprintf(format, args...))
	}

	for i, d := range sc.Derived {
		if _, ok := sc.Records[d.Record]; !ok {
			report("derived[%d]: unknown record '%s'", i, d.Record)
		}
		if d.Key == "" {
			report("derived[%d]: missing key", i)
		}
		if _, err := expr.Compile(d.Expr, expr.AllowUndefinedVariables()); err != nil {
			report("derived[%d]: invalid expression '%s': %v", i, d.Expr, err)
		}
	}

	if t := sc.Tree; t != nil {
		if t.Tag == "" {
			report("tree: missing tag")
		}
		if _, ok := sc.Records[t.Attrs]; t.Attrs != "" && !ok {
			report("tree: unknown attrs record '%s'", t.Attrs)
		}
		for _, id := range t.Children {
			if _, ok := sc.Sequences[id]; !ok {
				report("tree: unknown children sequence '%s'", id)
			}
		}
	}

	for i, st := range sc.Steps {
		switch st.Op {
		case dto.OpWrite:
			if _, ok := sc.Records[st.Record]; !ok {
				report("steps[%d]: unknown record '%s'", i, st.Record)
			}
			if st.Key == "" {
				report("steps[%d]: missing key", i)
			}
		case dto.OpSet, dto.OpInsert, dto.OpAppend, dto.OpRemove:
			if _, ok := sc.Sequences[st.Sequence]; !ok {
				report("steps[%d]: unknown sequence '%s'", i, st.Sequence)
			}
		default:
			report("steps[%d]: unknown op '%s'", i, st.Op)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}
