package transformer

import (
	"strings"

	"github.com/user/tabmap/pkg/evaluator"
	"github.com/user/tabmap/pkg/mapping"
)

// ReplaceValues applies a find/replace mapping. An exact key match replaces
// the whole value; otherwise every non-empty key found in the value is
// replaced in order, each step working on the previous result. The result is
// a string unless the mapping is empty.
func ReplaceValues(v any, repl mapping.Replacements) any {
	if len(repl) == 0 {
		return v
	}
	s := evaluator.ToDisplayString(v)
	if out, ok := repl.Get(s); ok {
		return out
	}
	for _, p := range repl {
		if p.Find == "" {
			continue
		}
		if strings.Contains(s, p.Find) {
			s = strings.ReplaceAll(s, p.Find, p.Replace)
		}
	}
	return s
}
