// Package registry holds the fixed reference tables the advisor loads at
// startup.
package registry

import (
	_ "embed"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// Exemplar is one worked extraction: a farmer query and the record it should
// produce.
type Exemplar struct {
	Input  string               `yaml:"input"`
	Output model.ExtractedQuery `yaml:"output"`
}

//go:embed exemplars.yaml
var exemplarsYAML []byte

var (
	exemplarsOnce sync.Once
	exemplars     []Exemplar
)

// Exemplars returns the built-in few-shot table. The embedded file is parsed
// once; callers get a fresh copy of the slice.
func Exemplars() []Exemplar {
	exemplarsOnce.Do(func() {
		var err error
		exemplars, err = ParseExemplars(exemplarsYAML)
		if err != nil {
			panic(eris.Wrap(err, "registry: embedded exemplars"))
		}
	})
	out := make([]Exemplar, len(exemplars))
	copy(out, exemplars)
	return out
}

// ParseExemplars decodes a YAML exemplar table. Every entry needs an input
// and a crop.
func ParseExemplars(data []byte) ([]Exemplar, error) {
	var out []Exemplar
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal exemplars")
	}
	for i, ex := range out {
		if ex.Input == "" || ex.Output.Crop == "" {
			return nil, eris.Errorf("registry: exemplar %d missing input or crop", i)
		}
		if !ex.Output.Urgency.Valid() || !ex.Output.Category.Valid() {
			return nil, eris.Errorf("registry: exemplar %d has invalid urgency or category", i)
		}
	}
	return out, nil
}

// LoadExemplarsFromFile reads a YAML exemplar table from path, replacing the
// built-in table for a single service.
func LoadExemplarsFromFile(path string) ([]Exemplar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read exemplars file")
	}
	return ParseExemplars(data)
}
