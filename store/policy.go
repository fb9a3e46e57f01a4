package store

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// Policy decides whether and how a top-level state key is persisted.
//
// A disabled policy never persists its key, and any value stored under it
// by an earlier configuration is purged when a store starts. An enabled
// policy persists the whole value, or, for object values, only the fields
// named in Include, or everything except the fields named in Exclude.
// Field names are dotted paths ("ui.scroll").
type Policy struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Persist returns a policy that persists the whole value.
func Persist() Policy {
	return Policy{Enabled: true}
}

// Skip returns a policy that never persists the key.
func Skip() Policy {
	return Policy{}
}

// Include returns a policy that persists only the given fields.
func Include(fields ...string) Policy {
	return Policy{Enabled: true, Include: fields}
}

// Exclude returns a policy that persists everything but the given fields.
func Exclude(fields ...string) Policy {
	return Policy{Enabled: true, Exclude: fields}
}

// Policies maps top-level state keys to their persistence policy.
// A nil Policies disables persistence altogether.
type Policies map[string]Policy

// Keys returns the configured keys in sorted order.
func (p Policies) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// policyFields is the object form of a policy in configuration files.
// "_ignore" is accepted as an alias of "exclude".
type policyFields struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
	Ignore  []string `yaml:"_ignore" json:"_ignore"`
}

func (f policyFields) policy() Policy {
	return Policy{
		Enabled: true,
		Include: f.Include,
		Exclude: append(f.Exclude, f.Ignore...),
	}
}

// UnmarshalYAML accepts a boolean or an object with include/exclude lists.
func (p *Policy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return fmt.Errorf("store: policy must be a boolean or an object: %w", err)
		}
		*p = Policy{Enabled: enabled}
		return nil
	}
	var fields policyFields
	if err := node.Decode(&fields); err != nil {
		return fmt.Errorf("store: invalid policy: %w", err)
	}
	*p = fields.policy()
	return nil
}

// UnmarshalJSON accepts a boolean or an object with include/exclude lists.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*p = Policy{Enabled: enabled}
		return nil
	}
	var fields policyFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("store: invalid policy: %w", err)
	}
	*p = fields.policy()
	return nil
}

// LoadPolicies decodes a YAML (or JSON) document mapping state keys to
// policies:
//
//	session: true
//	cache: false
//	prefs:
//	  exclude: [draft, ui.scroll]
func LoadPolicies(r io.Reader) (Policies, error) {
	var p Policies
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if err == io.EOF {
			return Policies{}, nil
		}
		return nil, fmt.Errorf("store: decode policies: %w", err)
	}
	if p == nil {
		p = Policies{}
	}
	return p, nil
}

// project applies the include/exclude lists to a serialized value.
// Non-object values are returned unchanged.
func (p Policy) project(raw []byte) ([]byte, error) {
	if !gjson.ParseBytes(raw).IsObject() {
		return raw, nil
	}

	if len(p.Include) > 0 {
		out := []byte("{}")
		for _, field := range p.Include {
			path := escapePath(field)
			res := gjson.GetBytes(raw, path)
			if !res.Exists() {
				continue
			}
			var err error
			out, err = sjson.SetRawBytes(out, path, []byte(res.Raw))
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	for _, field := range p.Exclude {
		path := escapePath(field)
		if !gjson.GetBytes(raw, path).Exists() {
			continue
		}
		var err error
		raw, err = sjson.DeleteBytes(raw, path)
		if err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// escapePath turns a dotted field name into a gjson/sjson path that matches
// each segment literally. Only '.' separates segments.
func escapePath(field string) string {
	segments := strings.Split(field, ".")
	for i, seg := range segments {
		segments[i] = gjson.Escape(seg)
	}
	path := strings.Join(segments, ".")
	if strings.HasPrefix(path, ":") {
		path = `\` + path
	}
	return path
}
