package kinetics

import (
	"github.com/jihwankim/pssakit/pkg/crsampler"
	"github.com/jihwankim/pssakit/pkg/matrix"
)

// DataModel owns everything grouping builds, update mutates, and sampling
// reads: the network copy, grid topology, subvolumes, and the shared PDM
// dependency topology. It owns Subvolumes as one contiguous slice; callers
// navigate by integer index rather than holding subvolume pointers, so
// Update takes (*DataModel, index) instead of (*Subvolume).
type DataModel struct {
	Method Method

	Species   []Species
	Reactions []Reaction
	Grid      GridConfig

	Subvolumes      []Subvolume
	TotalPropensity float64

	Delayed *DelayedQueue

	// CRVolume samples a subvolume weighted by its TotalPropensity; only
	// populated (and only consulted) when len(Subvolumes) > 1.
	CRVolume *crsampler.Sampler

	// Shared PDM/PSSA-CR topology, built once by grouping.Preinitialize and
	// identical across every subvolume (population values differ, cell
	// *positions* do not).
	//
	// RowTopology[row] lists, in column order, the Π cells that land in
	// that row — parallel to every Subvolume's PartialProp row.
	RowTopology *matrix.Jagged[PropensityIndex]

	// U3[species+1] lists the cells that must be recomputed when that
	// species' population changes. U3[0] is unused (the reservoir
	// species' population never changes).
	U3 *matrix.Jagged[PropensityIndex]

	// MinPi[species] is the smallest Π value that species' row can ever
	// take (PSSA-CR only), computed once in Preinitialize since it
	// depends only on rates and stoichiometries, not population.
	MinPi []float64
	// MinSigma is the PSSA-CR floor used to seed every subvolume's σ
	// sampler minValue.
	MinSigma float64

	loaded bool
}

// Loaded reports whether Preinitialize has successfully populated this
// model.
func (dm *DataModel) Loaded() bool { return dm.loaded }

// MarkLoaded records that Preinitialize has finished successfully. Called
// by pkg/grouping once validation and the one-time network copy complete.
func (dm *DataModel) MarkLoaded() { dm.loaded = true }

// RowCount returns the number of Π rows (species + 1 for the reservoir
// row), valid once grouping has run.
func (dm *DataModel) RowCount() int { return len(dm.Species) + 1 }

// NewPopulation allocates a zeroed population vector sized to the
// model's species count.
func (dm *DataModel) NewPopulation() []int64 {
	return make([]int64, len(dm.Species))
}
