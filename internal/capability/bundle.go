// Package capability describes the remote actions the model may select and
// dispatches them against the job-board API.
package capability

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed capabilities.yaml
var defaultBundle []byte

// Definition describes one capability as exposed to the model.
type Definition struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// Required returns the names of required arguments.
func (d Definition) Required() []string {
	raw, ok := d.Parameters["required"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Bundle is the read-only set of capability definitions.
type Bundle struct {
	defs   []Definition
	byName map[string]Definition
}

type bundleFile struct {
	Capabilities []Definition `yaml:"capabilities"`
}

// LoadBundle parses the bundle compiled into the binary.
func LoadBundle() (*Bundle, error) {
	return ParseBundle(defaultBundle)
}

// ParseBundle parses a YAML capability description.
func ParseBundle(data []byte) (*Bundle, error) {
	var f bundleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse capability bundle: %w", err)
	}
	if len(f.Capabilities) == 0 {
		return nil, fmt.Errorf("capability bundle is empty")
	}

	b := &Bundle{byName: make(map[string]Definition, len(f.Capabilities))}
	for _, d := range f.Capabilities {
		if d.Name == "" {
			return nil, fmt.Errorf("capability without a name")
		}
		if _, dup := b.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate capability %q", d.Name)
		}
		if d.Parameters == nil {
			d.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		b.defs = append(b.defs, d)
		b.byName[d.Name] = d
	}
	return b, nil
}

// Lookup returns the definition named name.
func (b *Bundle) Lookup(name string) (Definition, bool) {
	d, ok := b.byName[name]
	return d, ok
}

// Names returns capability names in declaration order.
func (b *Bundle) Names() []string {
	out := make([]string, len(b.defs))
	for i, d := range b.defs {
		out[i] = d.Name
	}
	return out
}

// Tools renders every definition as a function-calling tool schema.
func (b *Bundle) Tools() []map[string]any {
	tools := make([]map[string]any, 0, len(b.defs))
	for _, d := range b.defs {
		tools = append(tools, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.Parameters,
			},
		})
	}
	return tools
}
