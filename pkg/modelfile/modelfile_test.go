package modelfile_test

import (
	"testing"

	"github.com/jihwankim/pssakit/pkg/modelfile"
)

const birthDeathYAML = `
name: birth-death
grid:
  dims: [${GRID_SIZE}]
  boundary: periodic
species:
  - name: A
    initial: ${INITIAL_A}
reactions:
  - name: birth
    rate: 1.0
    reactants:
      - species: A
        stoichiometry: 1
        reservoir: true
    products:
      - species: A
        stoichiometry: 1
  - name: death
    rate: 0.1
    reactants:
      - species: A
        stoichiometry: 1
    products: []
`

func TestParseSubstitutesVariablesAndBuildsNetwork(t *testing.T) {
	p := modelfile.New()
	p.SetVariables(map[string]string{"GRID_SIZE": "4", "INITIAL_A": "50"})

	doc, err := p.Parse([]byte(birthDeathYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	net, grid, err := doc.ToNetwork()
	if err != nil {
		t.Fatalf("ToNetwork: %v", err)
	}
	if len(net.Species) != 1 || net.Species[0].Initial != 50 {
		t.Fatalf("expected species A with initial 50, got %+v", net.Species)
	}
	if len(grid.Dims) != 1 || grid.Dims[0] != 4 {
		t.Fatalf("expected grid dims [4], got %v", grid.Dims)
	}
	if len(net.Reactions) != 2 {
		t.Fatalf("expected 2 reactions, got %d", len(net.Reactions))
	}
	if net.Reactions[0].Reactants[0].Reservoir != true {
		t.Fatal("expected birth reaction's reactant to be flagged reservoir")
	}
}

func TestParseRejectsUnknownSpeciesReference(t *testing.T) {
	p := modelfile.New()
	doc, err := p.Parse([]byte(`
species:
  - name: A
    initial: 1
reactions:
  - name: bad
    rate: 1.0
    reactants:
      - species: B
        stoichiometry: 1
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, _, err := doc.ToNetwork(); err == nil {
		t.Fatal("expected ToNetwork to reject unknown species reference")
	}
}

func TestParseRejectsEmptyModel(t *testing.T) {
	p := modelfile.New()
	if _, err := p.Parse([]byte(`name: empty`)); err == nil {
		t.Fatal("expected error for a model with no species or reactions")
	}
}

func TestApplyOverridesSetsSpeciesAndReactionFields(t *testing.T) {
	p := modelfile.New()
	doc, err := p.Parse([]byte(`
species:
  - name: A
    initial: 10
reactions:
  - name: death
    rate: 0.1
    reactants:
      - species: A
        stoichiometry: 1
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	overrides, err := modelfile.ParseOverrides([]string{"species.A.initial=500", "reactions.death.rate=2.5"})
	if err != nil {
		t.Fatalf("ParseOverrides: %v", err)
	}
	if err := modelfile.ApplyOverrides(doc, overrides); err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}

	if doc.Species[0].Initial != 500 {
		t.Fatalf("expected initial 500, got %d", doc.Species[0].Initial)
	}
	if doc.Reactions[0].Rate != 2.5 {
		t.Fatalf("expected rate 2.5, got %v", doc.Reactions[0].Rate)
	}
}

func TestApplyOverridesRejectsUnknownTarget(t *testing.T) {
	doc, err := modelfile.New().Parse([]byte(`
species:
  - name: A
    initial: 1
reactions:
  - name: death
    rate: 0.1
    reactants:
      - species: A
        stoichiometry: 1
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	overrides, _ := modelfile.ParseOverrides([]string{"species.B.initial=1"})
	if err := modelfile.ApplyOverrides(doc, overrides); err == nil {
		t.Fatal("expected error overriding an unknown species")
	}
}

func TestParseOverridesRejectsMalformedFlag(t *testing.T) {
	if _, err := modelfile.ParseOverrides([]string{"not-a-kv-pair"}); err == nil {
		t.Fatal("expected error for malformed override")
	}
}
