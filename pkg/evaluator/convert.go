package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DisplayTimeLayout is the layout used when a time value is stringified.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// IsBlank reports whether v is absent or a string that is empty once trimmed.
// Zero numbers and false are not blank.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ToDisplayString returns the canonical text of v. It never panics.
func ToDisplayString(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = ""
		}
	}()

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", t)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return formatFloat(t)
	case time.Time:
		return t.Format(DisplayTimeLayout)
	case []byte:
		return string(t)
	}
	return fmt.Sprintf("%v", v)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseFloat parses the trimmed text as a float. When stripCommas is set,
// thousands separators are removed first.
func ParseFloat(s string, stripCommas bool) (float64, error) {
	s = strings.TrimSpace(s)
	if stripCommas {
		s = strings.ReplaceAll(s, ",", "")
	}
	return strconv.ParseFloat(s, 64)
}

// ToFloat64 converts numeric values and numeric strings.
func ToFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := ParseFloat(v, false)
		return f, err == nil
	}
	return 0, false
}

// Truthy is the generic truthiness test: nil, false, zero numbers and empty
// strings are false, everything else is true.
func Truthy(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case time.Time:
		return true
	}
	if f, ok := ToFloat64(val); ok {
		return f != 0
	}
	return true
}
