// Package evaluator holds the value helpers shared by the pipeline and the
// sandboxed expression language used for per-column overrides.
//
// Expressions are compiled with expr-lang/expr against a fixed environment:
// the current value (value), computed target columns ([Name] or col("Name"))
// and raw source columns (source("Name")). Only the functions registered here
// are callable; expr's own builtins are disabled.
package evaluator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	maxExprLength = 4096
	maxDepth      = 64
)

// Scope is the row context an expression is evaluated against.
type Scope struct {
	Value   any
	Columns map[string]any
	Source  map[string]any
}

// env is the only surface an expression can see.
type env struct {
	Value  any                       `expr:"value"`
	Null   any                       `expr:"null"`
	Col    func(string) (any, error) `expr:"col"`
	Source func(string) (any, error) `expr:"source"`
}

// Program is a compiled expression. It is immutable and safe for concurrent use.
type Program struct {
	src     string
	program *vm.Program
}

// Compile parses expr. [Name] is shorthand for col("Name").
func Compile(src string) (*Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("empty expression")
	}
	if len(src) > maxExprLength {
		return nil, fmt.Errorf("expression longer than %d bytes", maxExprLength)
	}
	rewritten, err := rewriteColumnRefs(src)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	program, err := expr.Compile(rewritten, compileOptions...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Program{src: src, program: program}, nil
}

func (p *Program) String() string { return p.src }

// Eval evaluates the program. Runtime failures are returned as errors.
func (p *Program) Eval(scope Scope) (any, error) {
	out, err := vm.Run(p.program, env{
		Value:  scope.Value,
		Col:    lookup(scope.Columns, "column"),
		Source: lookup(scope.Source, "source column"),
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", p.src, err)
	}
	return normalize(out)
}

// Evaluate compiles and evaluates src in one step.
func Evaluate(src string, scope Scope) (any, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Eval(scope)
}

func lookup(m map[string]any, kind string) func(string) (any, error) {
	return func(name string) (any, error) {
		v, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("unknown %s %q", kind, name)
		}
		return v, nil
	}
}

// normalize maps expr results onto cell values: integers become int64 and
// non-finite floats are rejected.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float32:
		return normalize(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, errors.New("result is not a finite number")
		}
	}
	return v, nil
}

// rewriteColumnRefs turns [Name] into col("Name"). Brackets that index a value,
// hold a list or hold a number are left to expr.
func rewriteColumnRefs(src string) (string, error) {
	var sb strings.Builder
	depth := 0
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\'', '"', '`':
			end := closingQuote(runes, i)
			if end < 0 {
				return "", errors.New("unterminated string literal")
			}
			sb.WriteString(string(runes[i : end+1]))
			i = end
			continue
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				return "", fmt.Errorf("expression nested deeper than %d", maxDepth)
			}
		case ')', ']', '}':
			depth--
		}
		if r == '[' && !indexes(sb.String()) {
			if name, end, ok := columnRef(runes, i); ok {
				sb.WriteString("col(" + strconv.Quote(name) + ")")
				i = end
				depth--
				continue
			}
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

var keywords = map[string]bool{
	"not": true, "and": true, "or": true, "in": true, "contains": true,
	"startsWith": true, "endsWith": true, "matches": true,
}

// indexes reports whether a '[' following out indexes the preceding operand.
func indexes(out string) bool {
	out = strings.TrimRight(out, " \t\r\n")
	if out == "" {
		return false
	}
	last := out[len(out)-1]
	if last == ')' || last == ']' {
		return true
	}
	word := out[strings.LastIndexFunc(out, func(r rune) bool { return !isIdentRune(r) })+1:]
	return word != "" && !keywords[word]
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func closingQuote(runes []rune, start int) int {
	q := runes[start]
	for j := start + 1; j < len(runes); j++ {
		if runes[j] == '\\' && q != '`' {
			j++
			continue
		}
		if runes[j] == q {
			return j
		}
	}
	return -1
}

func columnRef(runes []rune, start int) (string, int, bool) {
	for j := start + 1; j < len(runes); j++ {
		switch runes[j] {
		case ']':
			name := strings.TrimSpace(string(runes[start+1 : j]))
			if name == "" {
				return "", 0, false
			}
			if _, err := strconv.ParseFloat(name, 64); err == nil {
				return "", 0, false
			}
			return name, j, true
		case '[', ',', '\'', '"', '`':
			return "", 0, false
		}
	}
	return "", 0, false
}
