// Package modelfile parses a reaction network from a YAML document into a
// kinetics.Network plus its grid configuration: variable substitution
// before unmarshal, ParseOverrides/ApplyOverrides for CLI --set flags
// layered on top.
package modelfile

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jihwankim/pssakit/pkg/kinetics"
)

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Parser turns a model YAML document into a kinetics.Network, substituting
// ${VAR}/$VAR references against its own Variables map and then the process
// environment before unmarshalling.
type Parser struct {
	Variables map[string]string
}

// New returns a Parser with an empty variable set.
func New() *Parser {
	return &Parser{Variables: make(map[string]string)}
}

// SetVariable registers a single substitution variable.
func (p *Parser) SetVariable(name, value string) {
	if p.Variables == nil {
		p.Variables = make(map[string]string)
	}
	p.Variables[name] = value
}

// SetVariables merges vars into the parser's variable set.
func (p *Parser) SetVariables(vars map[string]string) {
	for k, v := range vars {
		p.SetVariable(k, v)
	}
}

// ParseFile reads path and parses it as a model document.
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return p.Parse(data)
}

// Parse substitutes variables into data and unmarshals the result into a
// Document, then validates the required fields are present.
func (p *Parser) Parse(data []byte) (*Document, error) {
	substituted := p.substituteVariables(string(data))

	var doc Document
	if err := yaml.Unmarshal([]byte(substituted), &doc); err != nil {
		return nil, fmt.Errorf("parse model yaml: %w", err)
	}
	if err := validateRequiredFields(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (p *Parser) substituteVariables(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := variablePattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if v, ok := p.Variables[name]; ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// Document is the on-disk shape of a model file: species, reactions, and
// the spatial grid they react within.
type Document struct {
	Name      string            `yaml:"name"`
	Grid      GridDoc           `yaml:"grid"`
	Species   []SpeciesDoc      `yaml:"species"`
	Reactions []ReactionDoc     `yaml:"reactions"`
	Metadata  map[string]string `yaml:"metadata"`
}

// GridDoc is the YAML shape of kinetics.GridConfig.
type GridDoc struct {
	Dims     []int  `yaml:"dims"`
	Boundary string `yaml:"boundary"`
}

// SpeciesDoc is the YAML shape of kinetics.Species.
type SpeciesDoc struct {
	Name      string  `yaml:"name"`
	Initial   int64   `yaml:"initial"`
	Diffusion float64 `yaml:"diffusion"`
}

// SpeciesRefDoc is the YAML shape of kinetics.SpeciesRef, referencing a
// species by name rather than by index.
type SpeciesRefDoc struct {
	Species       string `yaml:"species"`
	Stoichiometry int64  `yaml:"stoichiometry"`
	Reservoir     bool   `yaml:"reservoir"`
	Constant      bool   `yaml:"constant"`
}

// ReactionDoc is the YAML shape of kinetics.Reaction.
type ReactionDoc struct {
	Name      string          `yaml:"name"`
	Rate      float64         `yaml:"rate"`
	Diffusive bool            `yaml:"diffusive"`
	Species   string          `yaml:"species"` // diffusing species name, valid only when Diffusive
	Reactants []SpeciesRefDoc `yaml:"reactants"`
	Products  []SpeciesRefDoc `yaml:"products"`
	Delay     string          `yaml:"delay"`
	Consuming bool            `yaml:"consuming"`
}

// ToNetwork resolves a Document's species-name references into a
// kinetics.Network indexed by declaration order, and its grid into a
// kinetics.GridConfig.
func (d *Document) ToNetwork() (*kinetics.Network, kinetics.GridConfig, error) {
	index := make(map[string]int, len(d.Species))
	species := make([]kinetics.Species, len(d.Species))
	for i, s := range d.Species {
		if _, dup := index[s.Name]; dup {
			return nil, kinetics.GridConfig{}, fmt.Errorf("duplicate species name %q", s.Name)
		}
		index[s.Name] = i
		species[i] = kinetics.Species{Name: s.Name, Index: i, Initial: s.Initial, Diffusion: s.Diffusion}
	}

	reactions := make([]kinetics.Reaction, len(d.Reactions))
	for i, rd := range d.Reactions {
		r := kinetics.Reaction{
			Name:      rd.Name,
			Rate:      rd.Rate,
			Diffusive: rd.Diffusive,
			Consuming: rd.Consuming,
		}
		if rd.Diffusive {
			idx, ok := index[rd.Species]
			if !ok {
				return nil, kinetics.GridConfig{}, fmt.Errorf("reaction %q: unknown diffusing species %q", rd.Name, rd.Species)
			}
			r.Species = idx
		}
		if rd.Delay != "" {
			dur, err := time.ParseDuration(rd.Delay)
			if err != nil {
				return nil, kinetics.GridConfig{}, fmt.Errorf("reaction %q: bad delay %q: %w", rd.Name, rd.Delay, err)
			}
			r.Delay = dur
		}
		var err error
		if r.Reactants, err = resolveRefs(rd.Name, "reactant", rd.Reactants, index); err != nil {
			return nil, kinetics.GridConfig{}, err
		}
		if r.Products, err = resolveRefs(rd.Name, "product", rd.Products, index); err != nil {
			return nil, kinetics.GridConfig{}, err
		}
		reactions[i] = r
	}

	grid, err := resolveGrid(d.Grid)
	if err != nil {
		return nil, kinetics.GridConfig{}, err
	}

	return &kinetics.Network{Species: species, Reactions: reactions}, grid, nil
}

func resolveRefs(reaction, role string, refs []SpeciesRefDoc, index map[string]int) ([]kinetics.SpeciesRef, error) {
	out := make([]kinetics.SpeciesRef, len(refs))
	for i, ref := range refs {
		idx, ok := index[ref.Species]
		if !ok {
			return nil, fmt.Errorf("reaction %q: unknown %s species %q", reaction, role, ref.Species)
		}
		stoich := ref.Stoichiometry
		if stoich == 0 {
			stoich = 1
		}
		out[i] = kinetics.SpeciesRef{Index: idx, Stoichiometry: stoich, Reservoir: ref.Reservoir, Constant: ref.Constant}
	}
	return out, nil
}

func resolveGrid(g GridDoc) (kinetics.GridConfig, error) {
	dims := g.Dims
	if len(dims) == 0 {
		dims = []int{1}
	}
	boundary, err := kinetics.ParseBoundary(strings.ToLower(g.Boundary))
	if err != nil {
		return kinetics.GridConfig{}, err
	}
	return kinetics.GridConfig{Dims: dims, Boundary: boundary}, nil
}

func validateRequiredFields(d *Document) error {
	if len(d.Species) == 0 {
		return fmt.Errorf("model: at least one species is required")
	}
	if len(d.Reactions) == 0 {
		return fmt.Errorf("model: at least one reaction is required")
	}
	for i, s := range d.Species {
		if s.Name == "" {
			return fmt.Errorf("species[%d]: name is required", i)
		}
	}
	for i, r := range d.Reactions {
		if r.Name == "" {
			return fmt.Errorf("reactions[%d]: name is required", i)
		}
		if r.Diffusive && r.Species == "" {
			return fmt.Errorf("reaction %q: diffusive reactions require species", r.Name)
		}
		if !r.Diffusive && len(r.Reactants) == 0 && len(r.Products) == 0 {
			return fmt.Errorf("reaction %q: at least one reactant or product is required", r.Name)
		}
	}
	return nil
}

// ParseOverrides parses "key=value"-style --set flags into a map suitable
// for ApplyOverrides.
func ParseOverrides(overrides []string) (map[string]string, error) {
	out := make(map[string]string, len(overrides))
	for _, o := range overrides {
		parts := strings.SplitN(o, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid override %q, expected key=value", o)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}

// ApplyOverrides mutates doc in place per a "--set species.A.initial=50" /
// "--set reactions.birth.rate=2.5" style override map. Unknown dotted paths
// are reported as errors rather than silently ignored.
func ApplyOverrides(doc *Document, overrides map[string]string) error {
	for key, value := range overrides {
		parts := strings.SplitN(key, ".", 3)
		if len(parts) < 3 {
			return fmt.Errorf("override %q: expected <section>.<name>.<field>", key)
		}
		section, name, field := parts[0], parts[1], parts[2]

		switch section {
		case "species":
			s := findSpecies(doc, name)
			if s == nil {
				return fmt.Errorf("override %q: unknown species %q", key, name)
			}
			if err := applySpeciesField(s, field, value); err != nil {
				return fmt.Errorf("override %q: %w", key, err)
			}
		case "reactions":
			r := findReaction(doc, name)
			if r == nil {
				return fmt.Errorf("override %q: unknown reaction %q", key, name)
			}
			if err := applyReactionField(r, field, value); err != nil {
				return fmt.Errorf("override %q: %w", key, err)
			}
		default:
			return fmt.Errorf("override %q: unknown section %q", key, section)
		}
	}
	return nil
}

func findSpecies(doc *Document, name string) *SpeciesDoc {
	for i := range doc.Species {
		if doc.Species[i].Name == name {
			return &doc.Species[i]
		}
	}
	return nil
}

func findReaction(doc *Document, name string) *ReactionDoc {
	for i := range doc.Reactions {
		if doc.Reactions[i].Name == name {
			return &doc.Reactions[i]
		}
	}
	return nil
}

func applySpeciesField(s *SpeciesDoc, field, value string) error {
	switch field {
	case "initial":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("bad initial %q: %w", value, err)
		}
		s.Initial = v
	case "diffusion":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("bad diffusion %q: %w", value, err)
		}
		s.Diffusion = v
	default:
		return fmt.Errorf("unknown species field %q", field)
	}
	return nil
}

func applyReactionField(r *ReactionDoc, field, value string) error {
	switch field {
	case "rate":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("bad rate %q: %w", value, err)
		}
		r.Rate = v
	case "delay":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("bad delay %q: %w", value, err)
		}
		r.Delay = value
	case "consuming":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("bad consuming %q: %w", value, err)
		}
		r.Consuming = v
	default:
		return fmt.Errorf("unknown reaction field %q", field)
	}
	return nil
}
