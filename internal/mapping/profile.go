// =============================================================================
// SAF-T PT Generator - Mapping Profiles
// =============================================================================
//
// A mapping profile describes how the columns of one tabular source become
// one kind of SAF-T entity:
//
//   profile_name: customers-erp
//   target_model: Customer
//   mappings:                      # source column -> dotted target path
//     "Cod Cliente": CustomerID
//     "Morada":      BillingAddress.AddressDetail
//   defaults:                      # target path -> fallback / constant
//     BillingAddress.Country: PT
//   transformations:               # per source column, applied in order
//     - column: "Cod Cliente"
//       actions:
//         - type: prepend_string
//           value: "C"
//
// Mapping order is preserved from the document. The original JSON format
// ({profile_name, target_model, mappings}) loads unchanged.
//
// =============================================================================

package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// ErrUnknownTargetModel is returned when a profile targets no known kind.
var ErrUnknownTargetModel = errors.New("unknown target model")

// =============================================================================
// PROFILE STRUCTURES
// =============================================================================

// Profile is a declarative column-to-field mapping for one target kind.
type Profile struct {
	ProfileName     string            `yaml:"profile_name" json:"profile_name"`
	TargetModel     string            `yaml:"target_model" json:"target_model"`
	Mappings        Mappings          `yaml:"mappings" json:"mappings"`
	Defaults        map[string]string `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Transformations []Transformation  `yaml:"transformations,omitempty" json:"transformations,omitempty"`
}

// Mapping binds one source column to one dotted target path.
type Mapping struct {
	Column string `yaml:"column" json:"column"`
	Target string `yaml:"target" json:"target"`
}

// Mappings keeps document order. It decodes from either an object
// ({column: target, ...}) or a list of {column, target} items.
type Mappings []Mapping

// Transformation is the ordered list of actions applied to one column.
type Transformation struct {
	Column  string   `yaml:"column" json:"column"`
	Actions []Action `yaml:"actions" json:"actions"`
}

// Action is a single transformation step. Value, Find and LookupTable are
// interpreted per Type (see ApplyAction).
type Action struct {
	Type        string            `yaml:"type" json:"type"`
	Value       string            `yaml:"value,omitempty" json:"value,omitempty"`
	Find        string            `yaml:"find,omitempty" json:"find,omitempty"`
	LookupTable map[string]string `yaml:"lookup_table,omitempty" json:"lookup_table,omitempty"`
}

// Kind resolves the target model to a saft.Kind.
func (p *Profile) Kind() (saft.Kind, error) {
	kind, err := saft.ParseKind(p.TargetModel)
	if err != nil {
		return saft.KindUnknown, fmt.Errorf("%w: %q in profile %q", ErrUnknownTargetModel, p.TargetModel, p.ProfileName)
	}
	return kind, nil
}

// Validate checks the profile for configuration errors: an unknown target
// model, empty mappings, and transformation actions that can never succeed.
func (p *Profile) Validate() error {
	var problems []string

	if _, err := p.Kind(); err != nil {
		return err
	}
	if len(p.Mappings) == 0 && len(p.Defaults) == 0 {
		problems = append(problems, "no mappings defined")
	}
	for i, m := range p.Mappings {
		if strings.TrimSpace(m.Column) == "" || strings.TrimSpace(m.Target) == "" {
			problems = append(problems, fmt.Sprintf("mapping %d: column and target are required", i+1))
		}
	}
	for _, t := range p.Transformations {
		for _, a := range t.Actions {
			if !knownActions[a.Type] {
				problems = append(problems, fmt.Sprintf("column %q: unknown transformation type %q", t.Column, a.Type))
				continue
			}
			if a.Type == "regex_replace" {
				if _, err := regexp.Compile(a.Find); err != nil {
					problems = append(problems, fmt.Sprintf("column %q: invalid regex %q: %v", t.Column, a.Find, err))
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid profile %q: %s", p.ProfileName, strings.Join(problems, "; "))
	}
	return nil
}

// Targets returns the mapped target paths in order.
func (m Mappings) Targets() []string {
	out := make([]string, len(m))
	for i, mapping := range m {
		out[i] = mapping.Target
	}
	return out
}

// =============================================================================
// DECODING
// =============================================================================

// UnmarshalYAML keeps the key order of a mapping node.
func (m *Mappings) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(Mappings, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var column, target string
			if err := node.Content[i].Decode(&column); err != nil {
				return fmt.Errorf("failed to decode mapping column at line %d: %w", node.Content[i].Line, err)
			}
			if err := node.Content[i+1].Decode(&target); err != nil {
				return fmt.Errorf("failed to decode mapping target at line %d: %w", node.Content[i+1].Line, err)
			}
			out = append(out, Mapping{Column: column, Target: target})
		}
		*m = out
		return nil
	case yaml.SequenceNode:
		var list []Mapping
		if err := node.Decode(&list); err != nil {
			return err
		}
		*m = list
		return nil
	default:
		return fmt.Errorf("mappings at line %d must be a mapping or a list", node.Line)
	}
}

// UnmarshalJSON keeps the key order of a JSON object.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var list []Mapping
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*m = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return errors.New("mappings must be a JSON object or array")
	}
	var out Mappings
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		column, _ := tok.(string)
		var target string
		if err := dec.Decode(&target); err != nil {
			return fmt.Errorf("failed to decode target of column %q: %w", column, err)
		}
		out = append(out, Mapping{Column: column, Target: target})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalJSON writes the object form in order.
func (m Mappings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, mapping := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(mapping.Column)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(mapping.Target)
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

// MarshalYAML writes the mapping form in order.
func (m Mappings) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, mapping := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: mapping.Column},
			&yaml.Node{Kind: yaml.ScalarNode, Value: mapping.Target},
		)
	}
	return node, nil
}

// =============================================================================
// LOADING
// =============================================================================

// ParseProfile decodes a profile. JSON is detected by a leading '{'.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse JSON profile: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
	}
	return &p, nil
}

// LoadProfile reads and validates a profile file (.json, .yaml or .yml).
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
