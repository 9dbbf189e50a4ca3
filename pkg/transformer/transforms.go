package transformer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/user/tabmap/pkg/evaluator"
	"github.com/user/tabmap/pkg/mapping"
)

func init() {
	Register(mapping.TransformTrim, stringFunc(strings.TrimSpace))
	Register(mapping.TransformUpper, stringFunc(strings.ToUpper))
	Register(mapping.TransformLower, stringFunc(strings.ToLower))
	Register(mapping.TransformTitle, stringFunc(func(s string) string {
		// Casers keep state and must not be shared.
		return cases.Title(language.Und).String(s)
	}))
	Register(mapping.TransformToString, stringFunc(func(s string) string { return s }))
	Register(mapping.TransformToInt, toInt)
	Register(mapping.TransformToFloat, toFloat)
	Register(mapping.TransformDateToISO, dateToISO)
	Register(mapping.TransformDigitsOnly, stringFunc(digitsOnly))
}

func stringFunc(fn func(string) string) Func {
	return func(v any) (any, error) {
		return fn(evaluator.ToDisplayString(v)), nil
	}
}

var errNotFinite = errors.New("not a finite number")

// truncate converts f to an integer rounding toward zero.
func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, fmt.Errorf("%v out of integer range", f)
	}
	return int64(t), nil
}

func boolNumber(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toInt(v any) (any, error) {
	if evaluator.IsBlank(v) {
		return nil, nil
	}
	if b, ok := v.(bool); ok {
		return boolNumber(b), nil
	}
	f, err := evaluator.ParseFloat(evaluator.ToDisplayString(v), false)
	if err != nil {
		return nil, err
	}
	return truncate(f)
}

func toFloat(v any) (any, error) {
	if evaluator.IsBlank(v) {
		return nil, nil
	}
	if b, ok := v.(bool); ok {
		return float64(boolNumber(b)), nil
	}
	return evaluator.ParseFloat(evaluator.ToDisplayString(v), true)
}

func dateToISO(v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02"), nil
	}
	return v, nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// ApplyTransforms runs transforms left to right. Unknown names are ignored
// and a failing transform leaves the value as it was.
func ApplyTransforms(v any, transforms []mapping.Transform) any {
	return applyTransforms(v, transforms, nil)
}

func applyTransforms(v any, transforms []mapping.Transform, onErr func(mapping.Transform, error)) any {
	for _, name := range transforms {
		fn, ok := Get(name)
		if !ok {
			continue
		}
		out, err := fn(v)
		if err != nil {
			if onErr != nil {
				onErr(name, err)
			}
			continue
		}
		v = out
	}
	return v
}
