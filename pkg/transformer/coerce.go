package transformer

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/tabmap/pkg/evaluator"
	"github.com/user/tabmap/pkg/mapping"
	"github.com/user/tabmap/pkg/xldate"
)

// DateLayouts are tried in order when a text value is coerced to a date.
var DateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"1/2/06",
	"2/1/2006",
	"1-2-2006",
	"20060102",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var (
	trueWords  = map[string]struct{}{"y": {}, "yes": {}, "true": {}, "1": {}, "t": {}}
	falseWords = map[string]struct{}{"n": {}, "no": {}, "false": {}, "0": {}, "f": {}, "": {}}
)

// CoerceValue converts v to dataType. It never fails: values that cannot be
// converted are returned unchanged.
func CoerceValue(v any, dataType mapping.DataType) any {
	out, err := coerceValue(v, dataType)
	if err != nil {
		return v
	}
	return out
}

func coerceValue(v any, dataType mapping.DataType) (any, error) {
	switch mapping.ParseDataType(string(dataType)) {
	case mapping.TypeText:
		return evaluator.ToDisplayString(v), nil
	case mapping.TypeInteger:
		if evaluator.IsBlank(v) {
			return nil, nil
		}
		if b, ok := v.(bool); ok {
			return boolNumber(b), nil
		}
		f, err := evaluator.ParseFloat(evaluator.ToDisplayString(v), true)
		if err != nil {
			return nil, err
		}
		return truncate(f)
	case mapping.TypeFloat:
		if evaluator.IsBlank(v) {
			return nil, nil
		}
		if b, ok := v.(bool); ok {
			return float64(boolNumber(b)), nil
		}
		return evaluator.ParseFloat(evaluator.ToDisplayString(v), true)
	case mapping.TypeBoolean:
		s := strings.ToLower(strings.TrimSpace(evaluator.ToDisplayString(v)))
		if _, ok := trueWords[s]; ok {
			return true, nil
		}
		if _, ok := falseWords[s]; ok {
			return false, nil
		}
		return evaluator.Truthy(v), nil
	case mapping.TypeDate:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		if strings.TrimSpace(evaluator.ToDisplayString(v)) == "" {
			return nil, nil
		}
		t, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return v, nil
}

// ParseDate interprets v as a date: a time.Time as is, a text value in one of
// DateLayouts, or a spreadsheet serial day number.
func ParseDate(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(evaluator.ToDisplayString(v))
	if s == "" {
		return time.Time{}, fmt.Errorf("blank date")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	serial, err := evaluator.ParseFloat(s, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return xldate.FromSerial(serial)
}
