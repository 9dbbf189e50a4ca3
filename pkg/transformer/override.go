package transformer

import (
	"strings"

	"github.com/user/tabmap/pkg/evaluator"
	"github.com/user/tabmap/pkg/mapping"
)

type compiledRule struct {
	ref  string
	pred mapping.Predicate
	set  *string
}

// override is the compiled cross-column step of one target column.
type override struct {
	index     int
	target    string
	code      bool
	program   *evaluator.Program
	compile   error
	rules     []compiledRule
	elseValue string
}

func newOverride(index int, col mapping.ColumnMapping) override {
	o := override{index: index, target: col.Target, elseValue: col.AdvancedElse}
	if code := strings.TrimSpace(col.AdvancedCode); code != "" {
		o.code = true
		o.program, o.compile = evaluator.Compile(code)
		return o
	}
	o.rules = make([]compiledRule, 0, len(col.AdvancedRules))
	for _, r := range col.AdvancedRules {
		o.rules = append(o.rules, compiledRule{ref: r.Ref, pred: r.Predicate(), set: r.Set})
	}
	return o
}

// rowContext is the post-coercion snapshot a row's overrides read from.
type rowContext struct {
	columns map[string]any
	source  map[string]any
	refs    map[string]string
}

func (rc *rowContext) ref(name string) string {
	if rc.refs == nil {
		rc.refs = make(map[string]string, len(rc.columns))
		for k, v := range rc.columns {
			rc.refs[k] = evaluator.ToDisplayString(v)
		}
	}
	return rc.refs[name]
}

// apply returns the overridden value. The error is set when an expression
// could not be compiled or evaluated; the current value is kept then.
func (o *override) apply(current any, rc *rowContext) (any, error) {
	if o.code {
		if o.compile != nil {
			return current, o.compile
		}
		out, err := o.program.Eval(evaluator.Scope{Value: current, Columns: rc.columns, Source: rc.source})
		if err != nil {
			return current, err
		}
		return out, nil
	}

	for _, r := range o.rules {
		var ref string
		if r.ref != "" {
			ref = rc.ref(r.ref)
		}
		if r.pred.Matches(ref) {
			if r.set == nil {
				return current, nil
			}
			return *r.set, nil
		}
	}
	if o.elseValue != "" {
		return o.elseValue, nil
	}
	return current, nil
}
