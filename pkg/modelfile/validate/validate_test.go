package validate_test

import (
	"testing"

	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/modelfile"
	"github.com/jihwankim/pssakit/pkg/modelfile/validate"
)

func parse(t *testing.T, src string) *modelfile.Document {
	t.Helper()
	doc, err := modelfile.New().Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

const validYAML = `
species:
  - name: A
    initial: 10
reactions:
  - name: death
    rate: 0.1
    reactants:
      - species: A
        stoichiometry: 1
`

func TestValidatePassesOnWellFormedModel(t *testing.T) {
	doc := parse(t, validYAML)
	v := validate.New()
	grid := kinetics.GridConfig{Dims: []int{2}}

	if err := v.Validate(doc, grid, kinetics.MethodPSSACR, 0.1, 10); err != nil {
		t.Fatalf("Validate: %v\n%s", err, v.GetReport())
	}
	if v.HasErrors() {
		t.Fatalf("unexpected errors: %v", v.Errors)
	}
}

func TestValidateRejectsNegativeInitialPopulation(t *testing.T) {
	doc := parse(t, validYAML)
	doc.Species[0].Initial = -5
	v := validate.New()

	err := v.Validate(doc, kinetics.GridConfig{Dims: []int{1}}, kinetics.MethodDM, 0.1, 10)
	if err == nil {
		t.Fatal("expected validation error for negative initial population")
	}
	if !v.HasErrors() {
		t.Fatal("expected Errors to be populated")
	}
}

func TestValidateWarnsOnZeroRate(t *testing.T) {
	doc := parse(t, validYAML)
	doc.Reactions[0].Rate = 0
	v := validate.New()

	if err := v.Validate(doc, kinetics.GridConfig{Dims: []int{1}}, kinetics.MethodDM, 0.1, 10); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !v.HasWarnings() {
		t.Fatal("expected a warning for a zero-rate reaction")
	}
}

func TestValidateWarnsOnLargeGridWithPDM(t *testing.T) {
	doc := parse(t, validYAML)
	v := validate.New()
	grid := kinetics.GridConfig{Dims: []int{100, 30}} // 3000 subvolumes

	if err := v.Validate(doc, grid, kinetics.MethodPDM, 0.1, 10); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	found := false
	for _, w := range v.Warnings {
		if w != "" {
			found = true
		}
	}
	if !found || !v.HasWarnings() {
		t.Fatal("expected a performance warning for 3000 subvolumes under pdm")
	}
}

func TestValidateWarnsOnUnevenTimeStep(t *testing.T) {
	doc := parse(t, validYAML)
	v := validate.New()

	if err := v.Validate(doc, kinetics.GridConfig{Dims: []int{1}}, kinetics.MethodPSSACR, 0.3, 10); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !v.HasWarnings() {
		t.Fatal("expected a warning when time_step does not evenly divide time_end")
	}
}

func TestGetReportFormatsErrorsAndWarnings(t *testing.T) {
	v := validate.New()
	v.Errors = append(v.Errors, "boom")
	v.Warnings = append(v.Warnings, "careful")

	report := v.GetReport()
	if report == "" {
		t.Fatal("expected non-empty report")
	}
}
