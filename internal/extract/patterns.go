// Package extract implements the pattern-based structured extractor for
// Luxembourg statutory annual accounts. Every amount it produces carries a
// literal source citation; a field with no match stays absent rather than
// defaulting to zero.
package extract

import (
	_ "embed"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatternsYAML []byte

// FieldSpec declares the ordered caption patterns for one extraction field.
// Parent marks an affiliate a) sub-line that may only match within Window
// lines after its parent caption.
type FieldSpec struct {
	Key       string   `yaml:"key"`
	Statement string   `yaml:"statement"`
	Parent    string   `yaml:"parent,omitempty"`
	Window    int      `yaml:"window,omitempty"`
	Patterns  []string `yaml:"patterns"`
}

// Library is the immutable, pre-compiled bilingual pattern table. Construct
// once and share freely; nothing mutates it after LoadLibrary returns, so
// parallel extraction runs cannot interfere with each other.
type Library struct {
	specs    []FieldSpec
	compiled map[string][]*regexp.Regexp
}

type libraryFile struct {
	Fields []FieldSpec `yaml:"fields"`
}

// DefaultLibrary loads the embedded pattern table.
func DefaultLibrary() (*Library, error) {
	return LoadLibrary(defaultPatternsYAML)
}

// LoadLibrary parses and compiles a pattern table from YAML. All patterns
// are compiled case-insensitive.
func LoadLibrary(raw []byte) (*Library, error) {
	var f libraryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "extract: parse pattern library")
	}
	if len(f.Fields) == 0 {
		return nil, eris.New("extract: pattern library has no fields")
	}

	lib := &Library{
		specs:    f.Fields,
		compiled: make(map[string][]*regexp.Regexp, len(f.Fields)),
	}

	keys := make(map[string]bool, len(f.Fields))
	for _, spec := range f.Fields {
		if spec.Key == "" {
			return nil, eris.New("extract: pattern spec missing key")
		}
		if keys[spec.Key] {
			return nil, eris.Errorf("extract: duplicate pattern key %q", spec.Key)
		}
		keys[spec.Key] = true

		if len(spec.Patterns) == 0 {
			return nil, eris.Errorf("extract: field %q has no patterns", spec.Key)
		}
		res := make([]*regexp.Regexp, 0, len(spec.Patterns))
		for _, p := range spec.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, eris.Wrapf(err, "extract: compile pattern for %q", spec.Key)
			}
			res = append(res, re)
		}
		lib.compiled[spec.Key] = res
	}

	// Sub-lines must reference a declared parent.
	for _, spec := range f.Fields {
		if spec.Parent != "" && !keys[spec.Parent] {
			return nil, eris.Errorf("extract: field %q references unknown parent %q", spec.Key, spec.Parent)
		}
	}

	return lib, nil
}

// Specs returns the field specs in declaration order.
func (l *Library) Specs() []FieldSpec {
	return l.specs
}

// PatternsFor returns the compiled patterns for a field key.
func (l *Library) PatternsFor(key string) []*regexp.Regexp {
	return l.compiled[key]
}
