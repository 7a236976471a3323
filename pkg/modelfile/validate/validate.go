// Package validate checks a parsed model document and simulation config for
// errors and sanity-warnings before a batch is run: accumulate
// Errors/Warnings, GetReport() renders both.
package validate

import (
	"fmt"
	"strings"

	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/modelfile"
)

// Validator accumulates fatal errors and non-fatal warnings found while
// checking a model document against a simulation method and grid.
type Validator struct {
	Errors   []string
	Warnings []string
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{Errors: make([]string, 0), Warnings: make([]string, 0)}
}

// Validate checks doc for structural problems, and — given the grid and
// method it will run under — for sanity issues that would make a run slow
// or nonsensical. It resets Errors/Warnings on every call.
func (v *Validator) Validate(doc *modelfile.Document, grid kinetics.GridConfig, method kinetics.Method, timeStep, timeEnd float64) error {
	v.Errors = v.Errors[:0]
	v.Warnings = v.Warnings[:0]

	v.validateSpecies(doc)
	v.validateReactions(doc)
	v.validateGrid(grid)
	v.checkPerformanceWarnings(grid, method)
	v.checkTimingWarnings(timeStep, timeEnd)

	if len(v.Errors) > 0 {
		return fmt.Errorf("model validation failed with %d error(s)", len(v.Errors))
	}
	return nil
}

// HasWarnings reports whether any non-fatal issue was found.
func (v *Validator) HasWarnings() bool { return len(v.Warnings) > 0 }

// HasErrors reports whether any fatal issue was found.
func (v *Validator) HasErrors() bool { return len(v.Errors) > 0 }

// GetReport renders Errors and Warnings as a human-readable report.
func (v *Validator) GetReport() string {
	var sb strings.Builder

	if len(v.Errors) > 0 {
		sb.WriteString("ERRORS:\n")
		for _, e := range v.Errors {
			sb.WriteString(fmt.Sprintf("  - %s\n", e))
		}
	}
	if len(v.Warnings) > 0 {
		sb.WriteString("\nWARNINGS:\n")
		for _, w := range v.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", w))
		}
	}
	if len(v.Errors) == 0 && len(v.Warnings) == 0 {
		sb.WriteString("Validation passed with no issues.\n")
	}
	return sb.String()
}

func (v *Validator) validateSpecies(doc *modelfile.Document) {
	if len(doc.Species) == 0 {
		v.Errors = append(v.Errors, "model has no species")
	}
	for i, s := range doc.Species {
		if s.Name == "" {
			v.Errors = append(v.Errors, fmt.Sprintf("species[%d]: name is required", i))
		}
		if s.Initial < 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("species[%d] (%s): initial population cannot be negative", i, s.Name))
		}
		if s.Diffusion < 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("species[%d] (%s): diffusion coefficient cannot be negative", i, s.Name))
		}
	}
}

func (v *Validator) validateReactions(doc *modelfile.Document) {
	if len(doc.Reactions) == 0 {
		v.Errors = append(v.Errors, "model has no reactions")
	}
	for i, r := range doc.Reactions {
		if r.Name == "" {
			v.Errors = append(v.Errors, fmt.Sprintf("reactions[%d]: name is required", i))
		}
		if r.Rate < 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("reaction %q: rate cannot be negative", r.Name))
		}
		if r.Rate == 0 {
			v.Warnings = append(v.Warnings, fmt.Sprintf("reaction %q: rate is zero, it will never fire", r.Name))
		}
		if !r.Diffusive && len(r.Reactants) > 2 {
			v.Errors = append(v.Errors, fmt.Sprintf("reaction %q: more than 2 reactant species is unsupported by PDM/PSSA-CR", r.Name))
		}
		if len(r.Reactants) == 2 && r.Reactants[0].Species == r.Reactants[1].Species {
			v.Warnings = append(v.Warnings, fmt.Sprintf("reaction %q: both reactants are the same species, consider a homodimerization stoichiometry instead", r.Name))
		}
	}
}

func (v *Validator) validateGrid(grid kinetics.GridConfig) {
	if grid.DimsCount() == 0 {
		v.Errors = append(v.Errors, "grid has no dimensions")
		return
	}
	for i, d := range grid.Dims {
		if d < 1 {
			v.Errors = append(v.Errors, fmt.Sprintf("grid.dims[%d]: must be >= 1, got %d", i, d))
		}
	}
}

// checkPerformanceWarnings flags configurations that are valid but likely
// to run slowly on a large grid.
func (v *Validator) checkPerformanceWarnings(grid kinetics.GridConfig, method kinetics.Method) {
	subvolumes := grid.SubvolumeCount()
	if subvolumes > 2000 && method == kinetics.MethodPDM {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%d subvolumes with the partial-propensity method (pdm) may be slow; consider pssacr", subvolumes))
	}
	if subvolumes > 1 && method == kinetics.MethodDM {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%d subvolumes with the direct method (dm) recomputes every propensity on every event; consider pdm or pssacr", subvolumes))
	}
}

// checkTimingWarnings flags a time step that doesn't evenly divide the
// horizon, which makes the final sample point land off the regular grid.
func (v *Validator) checkTimingWarnings(timeStep, timeEnd float64) {
	if timeStep <= 0 || timeEnd <= 0 {
		return
	}
	ratio := timeEnd / timeStep
	nearestInt := float64(int64(ratio + 0.5))
	if diff := ratio - nearestInt; diff > 1e-6 || diff < -1e-6 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("time_step (%g) does not evenly divide time_end (%g); the last sample point will be irregular", timeStep, timeEnd))
	}
}
