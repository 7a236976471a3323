package grouping

import (
	"github.com/jihwankim/pssakit/pkg/combinatorics"
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

// initializeDM fills every subvolume's dense PropDM array: one entry per
// reaction, the full (not partial) propensity, recomputed from scratch
// against the installed initial population.
func initializeDM(dm *kinetics.DataModel) {
	for sv := range dm.Subvolumes {
		s := &dm.Subvolumes[sv]
		s.PropDM = make([]float64, len(dm.Reactions))
		s.TotalPropensity = 0
		for ri := range dm.Reactions {
			p := reactionPropensityDM(&dm.Reactions[ri], s.Population, dm.Grid.DimsCount())
			s.PropDM[ri] = p
			s.TotalPropensity += p
		}
		dm.TotalPropensity += s.TotalPropensity
	}
}

// reactionPropensityDM computes one reaction's full propensity for the
// Direct Method: rate times the product, over every non-reservoir
// reactant, of the heteroreaction combination count at that reactant's
// current population and stoichiometry.
func reactionPropensityDM(r *kinetics.Reaction, population []int64, dims int) float64 {
	if r.Diffusive {
		return r.Rate * float64(population[r.Species]) * 2 * float64(dims)
	}

	p := r.Rate
	for _, sr := range r.Reactants {
		if sr.Reservoir {
			continue
		}
		p *= combinatorics.Hetero(population[sr.Index], sr.Stoichiometry)
	}
	return p
}
