// Package grouping builds and rebuilds the propensity caches that
// pkg/sampling reads and pkg/update maintains: the dense per-reaction
// propensity array for Direct Method, or the partial-propensity Π/U3
// topology and its Composition-Rejection samplers for PDM and PSSA-CR.
package grouping

import (
	"fmt"

	"github.com/jihwankim/pssakit/pkg/combinatorics"
	"github.com/jihwankim/pssakit/pkg/crsampler"
	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/matrix"
)

// Preinitialize runs once per model: it validates the network against the
// constraints dm.Method imposes, copies it and the grid into dm, and (for
// PDM/PSSA-CR) builds the population-independent Π/U3 topology and the
// PSSA-CR minValue floors. Called once before the first trial.
func Preinitialize(dm *kinetics.DataModel, net *kinetics.Network, grid kinetics.GridConfig) error {
	if grid.DimsCount() == 0 {
		return kinetics.NewError(kinetics.ErrBadConfig, "grid must have at least one dimension")
	}
	for _, d := range grid.Dims {
		if d < 1 {
			return kinetics.NewError(kinetics.ErrBadConfig, "grid dimensions must be at least 1")
		}
	}

	if dm.Method != kinetics.MethodDM {
		if err := validateForPartialPropensity(net); err != nil {
			return err
		}
	}

	dm.Species = append([]kinetics.Species(nil), net.Species...)
	dm.Reactions = append([]kinetics.Reaction(nil), net.Reactions...)
	dm.Grid = grid
	dm.Delayed = kinetics.NewDelayedQueue()

	if dm.Method != kinetics.MethodDM {
		buildTopology(dm)
		if dm.Method == kinetics.MethodPSSACR {
			buildMinValues(dm)
		}
	}

	dm.MarkLoaded()
	return nil
}

// validateForPartialPropensity rejects reactions PDM/PSSA-CR cannot
// express: more than two reactant species, or a bimolecular reaction where
// both reactants have stoichiometry greater than one (the partial
// propensity factorization needs at least one reactant at stoichiometry
// one to serve as the row's own population multiplier).
func validateForPartialPropensity(net *kinetics.Network) error {
	for i := range net.Reactions {
		r := &net.Reactions[i]
		if r.Diffusive {
			continue
		}
		if len(r.Reactants) > 2 {
			return kinetics.NewError(kinetics.ErrUnsupported,
				fmt.Sprintf("reaction %q: partial-propensity methods support at most 2 reactant species, got %d", r.Name, len(r.Reactants)))
		}
		if len(r.Reactants) == 2 && r.Reactants[0].Stoichiometry > 1 && r.Reactants[1].Stoichiometry > 1 {
			return kinetics.NewError(kinetics.ErrUnsupported,
				fmt.Sprintf("reaction %q: bimolecular reactions need at least one reactant at stoichiometry 1", r.Name))
		}
	}
	return nil
}

// buildTopology fills dm.RowTopology and dm.U3 from dm.Reactions. Shared by
// PDM and PSSA-CR, since PSSA-CR's grouping is PDM's grouping plus the CR
// samplers layered on top.
//
// Reactions are inspected in declaration order but a Π cell's row has no
// relation to its reaction's position in the network, so cells are
// collected first and only appended to the (append-only, row-ascending)
// Jagged matrices afterwards, grouped by row.
func buildTopology(dm *kinetics.DataModel) {
	rows := dm.RowCount()
	cells := make([]kinetics.PropensityIndex, 0, len(dm.Reactions))

	for ri := range dm.Reactions {
		r := &dm.Reactions[ri]

		if r.Diffusive {
			cells = append(cells, kinetics.PropensityIndex{
				ReactionIndex: ri,
				Row:           r.Species + 1,
				Rate:          r.Rate * 2 * float64(dm.Grid.DimsCount()),
				FactorSpecies: -1,
			})
			continue
		}

		switch len(r.Reactants) {
		case 1:
			sr := r.Reactants[0]
			switch {
			case sr.Reservoir:
				cells = append(cells, kinetics.PropensityIndex{
					ReactionIndex: ri,
					Row:           0,
					Rate:          r.Rate,
					FactorSpecies: -1,
				})
			case sr.Stoichiometry <= 1:
				cells = append(cells, kinetics.PropensityIndex{
					ReactionIndex: ri,
					Row:           sr.Index + 1,
					Rate:          r.Rate,
					FactorSpecies: -1,
				})
			default:
				cells = append(cells, kinetics.PropensityIndex{
					ReactionIndex: ri,
					Row:           sr.Index + 1,
					Rate:          r.Rate,
					FactorSpecies: sr.Index,
					FactorStoich:  sr.Stoichiometry,
					SelfFactor:    true,
				})
			}

		case 2:
			sr1, sr2 := r.Reactants[0], r.Reactants[1]
			if sr2.Stoichiometry != 1 {
				sr1, sr2 = sr2, sr1
			}
			cells = append(cells, kinetics.PropensityIndex{
				ReactionIndex: ri,
				Row:           sr2.Index + 1,
				Rate:          r.Rate,
				FactorSpecies: sr1.Index,
				FactorStoich:  sr1.Stoichiometry,
				SelfFactor:    sr1.Index == sr2.Index,
			})
		}
	}

	// Assign each cell's Col — its position within its own RowTopology row —
	// before building either Jagged matrix, so U3's copy of a cell carries
	// the same Col that addresses it in RowTopology/PartialProp.
	byRow := make(map[int][]kinetics.PropensityIndex)
	for _, c := range cells {
		byRow[c.Row] = append(byRow[c.Row], c)
	}
	resolved := make([]kinetics.PropensityIndex, 0, len(cells))
	for row := 0; row < rows; row++ {
		for col, c := range byRow[row] {
			c.Col = col
			resolved = append(resolved, c)
		}
	}

	dm.RowTopology = matrix.NewJagged[kinetics.PropensityIndex](rows, len(resolved)/max(rows, 1)+1)
	for _, c := range resolved {
		dm.RowTopology.Append(c.Row, c)
	}

	byFactorRow := make(map[int][]kinetics.PropensityIndex)
	for _, c := range resolved {
		if c.FactorSpecies >= 0 {
			byFactorRow[c.FactorSpecies+1] = append(byFactorRow[c.FactorSpecies+1], c)
		}
	}
	dm.U3 = matrix.NewJagged[kinetics.PropensityIndex](rows, len(resolved)/max(rows, 1)+1)
	for row := 0; row < rows; row++ {
		for _, c := range byFactorRow[row] {
			dm.U3.Append(row, c)
		}
	}
}

// cellValue returns Π[cell.Row][cell.Col]'s value given the current
// population vector — shared by Initialize (first fill) and pkg/update
// (incremental recompute).
func cellValue(cell kinetics.PropensityIndex, population []int64) float64 {
	if cell.FactorSpecies < 0 {
		return cell.Rate
	}
	n := population[cell.FactorSpecies]
	if cell.SelfFactor {
		return cell.Rate * combinatorics.HomoPartial(n, cell.FactorStoich)
	}
	return cell.Rate * combinatorics.Hetero(n, cell.FactorStoich)
}

// buildMinValues computes dm.MinPi and dm.MinSigma: the smallest Π value
// each species row can take, and the smallest positive contribution any
// species makes to σ, both evaluated at the stoichiometry-floor population
// (n == m, the minimum population at which the reaction can fire). These
// depend only on rates and stoichiometries, so Preinitialize computes them
// once rather than per trial.
func buildMinValues(dm *kinetics.DataModel) {
	species := len(dm.Species)
	dm.MinPi = make([]float64, species)

	minSigma := 0.0
	sigmaSet := false

	for si := 0; si < species; si++ {
		row := si + 1
		cols := dm.RowTopology.Cols(row)
		if cols == 0 {
			dm.MinPi[si] = 0
			continue
		}
		minPi := 0.0
		minPiSet := false
		for col := 0; col < cols; col++ {
			cell := dm.RowTopology.At(row, col)
			temp := cell.Rate
			if cell.FactorSpecies >= 0 {
				if cell.SelfFactor {
					temp *= combinatorics.HomoPartial(cell.FactorStoich, cell.FactorStoich)
				} else {
					temp *= combinatorics.Hetero(cell.FactorStoich, cell.FactorStoich)
				}
			}
			if !minPiSet || temp < minPi {
				minPi = temp
				minPiSet = true
			}
			if temp > 0 {
				sigmaCandidate := temp
				if cell.SelfFactor && cell.FactorStoich > 0 {
					sigmaCandidate *= float64(cell.FactorStoich)
				}
				if !sigmaSet || sigmaCandidate < minSigma {
					minSigma = sigmaCandidate
					sigmaSet = true
				}
			}
		}
		dm.MinPi[si] = minPi
	}

	if !sigmaSet {
		minSigma = 0
	}
	dm.MinSigma = minSigma
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Initialize resets dm's per-trial state and installs a fresh initial
// population, then fills the method-specific caches: the dense DM
// propensity array, or the PDM/PSSA-CR Π/λ/σ values and (for PSSA-CR) the
// per-subvolume CR samplers. Called once at the start of every trial.
func Initialize(dm *kinetics.DataModel, strategy kinetics.InitialPopulationStrategy, userFn kinetics.PopulationFunc) error {
	if !dm.Loaded() {
		return kinetics.NewError(kinetics.ErrInternalInvariant, "Preinitialize must run before Initialize")
	}

	subvolumes := dm.Grid.SubvolumeCount()
	dm.Subvolumes = make([]kinetics.Subvolume, subvolumes)
	dm.Delayed = kinetics.NewDelayedQueue()
	dm.TotalPropensity = 0

	population := installPopulation(dm, strategy, userFn, subvolumes)

	for sv := 0; sv < subvolumes; sv++ {
		dm.Subvolumes[sv].Population = population[sv]
	}

	switch dm.Method {
	case kinetics.MethodDM:
		initializeDM(dm)
	case kinetics.MethodPDM:
		initializePDM(dm)
	case kinetics.MethodPSSACR:
		initializePDM(dm)
		initializePSSACR(dm)
	default:
		return kinetics.NewError(kinetics.ErrBadConfig, "unknown method")
	}

	return nil
}

// installPopulation builds the [subvolume][species] population matrix per
// strategy. UserDefined delegates to userFn; the others distribute each
// species' Initial count across subvolumes. Concentrate places the whole
// count in the grid's geometric centre subvolume, not subvolume 0 — on a
// periodic grid the two coincide by symmetry, but on an absorbing or
// reflective grid only the true centre matches the expected depletion
// profile.
func installPopulation(dm *kinetics.DataModel, strategy kinetics.InitialPopulationStrategy, userFn kinetics.PopulationFunc, subvolumes int) [][]int64 {
	population := make([][]int64, subvolumes)
	for sv := range population {
		population[sv] = dm.NewPopulation()
	}

	if strategy == kinetics.IPUserDefined && userFn != nil {
		userFn(dm, population)
		return population
	}

	center := dm.Grid.CenterIndex()
	for si, sp := range dm.Species {
		switch strategy {
		case kinetics.IPConcentrate:
			population[center][si] = sp.Initial
		case kinetics.IPMultiply:
			for sv := range population {
				population[sv][si] = sp.Initial
			}
		default: // IPDistribute, IPDefault
			base := sp.Initial / int64(subvolumes)
			rem := sp.Initial % int64(subvolumes)
			for sv := range population {
				population[sv][si] = base
				if int64(sv) < rem {
					population[sv][si]++
				}
			}
		}
	}
	return population
}

// PostInitialize builds dm.CRVolume, the sampler that picks which
// subvolume an event occurs in, weighted by each subvolume's current
// TotalPropensity. Only consulted when the model has more than one
// subvolume; called once per trial, after Initialize.
func PostInitialize(dm *kinetics.DataModel) error {
	if len(dm.Subvolumes) <= 1 {
		dm.CRVolume = nil
		return nil
	}
	dm.CRVolume = crsampler.New(len(dm.Subvolumes))
	for sv := range dm.Subvolumes {
		dm.CRVolume.UpdateValue(sv, dm.Subvolumes[sv].TotalPropensity)
	}
	return nil
}
