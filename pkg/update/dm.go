package update

import (
	"github.com/jihwankim/pssakit/pkg/combinatorics"
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

// recomputeDM rebuilds sv's entire dense propensity array from scratch.
// The Direct Method keeps no per-species dependency graph, so every event
// recomputes the whole array — the standard Gillespie-style update, not an
// approximation of it.
func recomputeDM(dm *kinetics.DataModel, sv *kinetics.Subvolume) {
	var total float64
	for ri := range dm.Reactions {
		r := &dm.Reactions[ri]
		var p float64
		if r.Diffusive {
			p = r.Rate * float64(sv.Population[r.Species]) * 2 * float64(dm.Grid.DimsCount())
		} else {
			p = r.Rate
			for _, ref := range r.Reactants {
				if ref.Reservoir {
					continue
				}
				p *= combinatorics.Hetero(sv.Population[ref.Index], ref.Stoichiometry)
			}
		}
		sv.PropDM[ri] = p
		total += p
	}
	sv.TotalPropensity = total
}
