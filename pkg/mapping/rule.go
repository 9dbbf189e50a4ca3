package mapping

import (
	"fmt"
	"strings"
)

// Operator is the comparison a Rule applies to its referenced value.
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpContains
	OpIn
	OpNotIn
)

var operatorNames = [...]string{
	OpEquals:    "equals",
	OpNotEquals: "not_equals",
	OpContains:  "contains",
	OpIn:        "in",
	OpNotIn:     "not_in",
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o]
}

// ParseOperator parses an operator name case-insensitively. An empty name
// means equals.
func ParseOperator(s string) (Operator, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return OpEquals, nil
	}
	for op, n := range operatorNames {
		if n == name {
			return Operator(op), nil
		}
	}
	return OpEquals, fmt.Errorf("unknown rule operator %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(operatorNames) {
		return nil, fmt.Errorf("invalid rule operator %d", int(o))
	}
	return []byte(operatorNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// Rule sets a column to Set when the value of target column Ref satisfies
// Op against Match. A nil Set keeps the current value.
type Rule struct {
	Ref   string   `json:"ref" yaml:"ref"`
	Op    Operator `json:"op" yaml:"op"`
	Match string   `json:"match" yaml:"match"`
	Set   *string  `json:"set,omitempty" yaml:"set,omitempty"`
}

// NewRule returns a rule that sets the column to set when it matches.
func NewRule(ref string, op Operator, match, set string) Rule {
	return Rule{Ref: ref, Op: op, Match: match, Set: &set}
}

// Predicate returns the typed condition of the rule.
func (r Rule) Predicate() Predicate {
	switch r.Op {
	case OpNotEquals:
		return NotEquals{Value: r.Match}
	case OpContains:
		return Contains{Substr: r.Match}
	case OpIn:
		return In{Tokens: splitTokens(r.Match)}
	case OpNotIn:
		return NotIn{Tokens: splitTokens(r.Match)}
	default:
		return Equals{Value: r.Match}
	}
}

func splitTokens(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Predicate is a condition over the display string of a referenced column.
// The set of implementations is closed.
type Predicate interface {
	Matches(ref string) bool
	isPredicate()
}

// Equals matches a referenced value identical to Value.
type Equals struct{ Value string }

func (p Equals) Matches(ref string) bool { return ref == p.Value }

// NotEquals matches any referenced value other than Value.
type NotEquals struct{ Value string }

func (p NotEquals) Matches(ref string) bool { return ref != p.Value }

// Contains matches referenced values containing Substr. Matching is case
// sensitive.
type Contains struct{ Substr string }

func (p Contains) Matches(ref string) bool { return strings.Contains(ref, p.Substr) }

// In matches a referenced value equal to one of Tokens.
type In struct{ Tokens []string }

func (p In) Matches(ref string) bool { return containsToken(p.Tokens, ref) }

// NotIn matches a referenced value equal to none of Tokens.
type NotIn struct{ Tokens []string }

func (p NotIn) Matches(ref string) bool { return !containsToken(p.Tokens, ref) }

func (Equals) isPredicate()    {}
func (NotEquals) isPredicate() {}
func (Contains) isPredicate()  {}
func (In) isPredicate()        {}
func (NotIn) isPredicate()     {}

func containsToken(tokens []string, s string) bool {
	for _, t := range tokens {
		if t == s {
			return true
		}
	}
	return false
}
