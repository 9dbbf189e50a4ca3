package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Replacement is one find/replace pair.
type Replacement struct {
	Find    string
	Replace string
}

// Replacements is an ordered find/replace mapping. It is encoded as a JSON or
// YAML object whose key order is kept.
type Replacements []Replacement

// Get returns the replacement for an exact key.
func (r Replacements) Get(find string) (string, bool) {
	for _, p := range r {
		if p.Find == find {
			return p.Replace, true
		}
	}
	return "", false
}

// Set adds or updates a pair, keeping the position of an existing key.
func (r *Replacements) Set(find, replace string) {
	for i := range *r {
		if (*r)[i].Find == find {
			(*r)[i].Replace = replace
			return
		}
	}
	*r = append(*r, Replacement{Find: find, Replace: replace})
}

// Delete removes a key.
func (r *Replacements) Delete(find string) {
	out := (*r)[:0]
	for _, p := range *r {
		if p.Find != find {
			out = append(out, p)
		}
	}
	*r = out
}

// MarshalJSON implements json.Marshaler.
func (r Replacements) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Find)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Replace)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Replacements) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("find/replace must be an object")
	}
	out := Replacements{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("find/replace key %v is not a string", tok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("find/replace value for %q: %w", key, err)
		}
		out.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Replacements) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Find},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Replace},
		)
	}
	return node, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Replacements) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*r = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: find/replace must be a mapping", value.Line)
	}
	out := Replacements{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		var key, val string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		if err := value.Content[i+1].Decode(&val); err != nil {
			return err
		}
		out.Set(key, val)
	}
	*r = out
	return nil
}
