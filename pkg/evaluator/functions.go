package evaluator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/tidwall/gjson"
)

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	fn      func(args []any) (any, error)
}

func (f function) call(name string) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) < f.minArgs || (f.maxArgs >= 0 && len(params) > f.maxArgs) {
			return nil, fmt.Errorf("%s: wrong number of arguments (%d)", name, len(params))
		}
		return f.fn(params)
	}
}

var functions = map[string]function{
	"lower": {1, 1, func(a []any) (any, error) {
		return strings.ToLower(ToDisplayString(a[0])), nil
	}},
	"upper": {1, 1, func(a []any) (any, error) {
		return strings.ToUpper(ToDisplayString(a[0])), nil
	}},
	"trim": {1, 1, func(a []any) (any, error) {
		return strings.TrimSpace(ToDisplayString(a[0])), nil
	}},
	"tostring": {1, 1, func(a []any) (any, error) {
		return ToDisplayString(a[0]), nil
	}},
	"len": {1, 1, func(a []any) (any, error) {
		return int64(len([]rune(ToDisplayString(a[0])))), nil
	}},
	"isblank": {1, 1, func(a []any) (any, error) {
		return IsBlank(a[0]), nil
	}},
	"replace": {3, 3, func(a []any) (any, error) {
		return strings.ReplaceAll(ToDisplayString(a[0]), ToDisplayString(a[1]), ToDisplayString(a[2])), nil
	}},
	"concat": {0, -1, func(a []any) (any, error) {
		var sb strings.Builder
		for _, arg := range a {
			sb.WriteString(ToDisplayString(arg))
		}
		return sb.String(), nil
	}},
	"substring": {2, 3, substring},
	"jsonget":   {2, 2, jsonGet},
	"coalesce": {1, -1, func(a []any) (any, error) {
		for _, arg := range a {
			if !IsBlank(arg) {
				return arg, nil
			}
		}
		return nil, nil
	}},
	"startswith": {2, 2, func(a []any) (any, error) {
		return strings.HasPrefix(ToDisplayString(a[0]), ToDisplayString(a[1])), nil
	}},
	"endswith": {2, 2, func(a []any) (any, error) {
		return strings.HasSuffix(ToDisplayString(a[0]), ToDisplayString(a[1])), nil
	}},
	"round": {1, 2, func(a []any) (any, error) {
		v, ok := ToFloat64(a[0])
		if !ok {
			return nil, fmt.Errorf("round: %q is not a number", ToDisplayString(a[0]))
		}
		precision := 0.0
		if len(a) > 1 {
			precision, _ = ToFloat64(a[1])
		}
		ratio := math.Pow(10, precision)
		return math.Round(v*ratio) / ratio, nil
	}},
	"toint": {1, 1, func(a []any) (any, error) {
		v, ok := ToFloat64(a[0])
		if !ok {
			var err error
			if v, err = ParseFloat(ToDisplayString(a[0]), true); err != nil {
				return nil, fmt.Errorf("toint: %w", err)
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("toint: not a finite number")
		}
		return int64(v), nil
	}},
	"tofloat": {1, 1, func(a []any) (any, error) {
		if v, ok := ToFloat64(a[0]); ok {
			return v, nil
		}
		v, err := ParseFloat(ToDisplayString(a[0]), true)
		if err != nil {
			return nil, fmt.Errorf("tofloat: %w", err)
		}
		return v, nil
	}},
}

var compileOptions = func() []expr.Option {
	opts := []expr.Option{expr.Env(env{}), expr.DisableAllBuiltins()}
	for name, f := range functions {
		opts = append(opts, expr.Function(name, f.call(name)))
	}
	return opts
}()

func substring(a []any) (any, error) {
	s := []rune(ToDisplayString(a[0]))
	start, _ := ToFloat64(a[1])
	end := float64(len(s))
	if len(a) > 2 {
		end, _ = ToFloat64(a[2])
	}
	from, to := int(start), int(end)
	if from < 0 {
		from = 0
	}
	if from > len(s) {
		from = len(s)
	}
	if to > len(s) {
		to = len(s)
	}
	if from > to {
		return "", nil
	}
	return string(s[from:to]), nil
}

// jsonGet reads a gjson path from a cell holding a JSON document.
func jsonGet(a []any) (any, error) {
	doc := ToDisplayString(a[0])
	if !gjson.Valid(doc) {
		return nil, errors.New("jsonget: value is not valid JSON")
	}
	res := gjson.Get(doc, ToDisplayString(a[1]))
	if !res.Exists() {
		return nil, nil
	}
	if res.Type == gjson.JSON {
		return res.Raw, nil
	}
	return res.Value(), nil
}
