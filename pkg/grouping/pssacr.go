package grouping

import (
	"github.com/jihwankim/pssakit/pkg/crsampler"
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

// initializePSSACR layers the Composition-Rejection samplers on top of the
// Π/λ/σ values initializePDM already filled: one sampler per Π row
// (CRRows), preloaded with dm.MinPi's floor for species rows, plus one
// sampler over every row's σ (CRRowGroup), preloaded with dm.MinSigma.
//
// The reservoir row (row 0) has no minPi entry in the original algorithm,
// since reservoir-only reactions carry no population-dependent factor to
// floor; it is folded into CRRowGroup alongside the species rows here
// (using the shared MinSigma floor) so the sampler's total still equals
// the subvolume's TotalPropensity exactly, rather than being tracked by a
// separate mechanism.
func initializePSSACR(dm *kinetics.DataModel) {
	rows := dm.RowCount()

	for sv := range dm.Subvolumes {
		s := &dm.Subvolumes[sv]

		s.CRRows = make([]*crsampler.Sampler, rows)
		for row := 0; row < rows; row++ {
			cols := dm.RowTopology.Cols(row)
			sampler := crsampler.New(cols)
			if row >= 1 {
				sampler.SetMinValue(dm.MinPi[row-1])
			}
			for col := 0; col < cols; col++ {
				sampler.UpdateValue(col, s.PartialProp.At(row, col))
			}
			s.CRRows[row] = sampler
		}

		s.CRRowGroup = crsampler.New(rows)
		s.CRRowGroup.SetMinValue(dm.MinSigma)
		for row := 0; row < rows; row++ {
			s.CRRowGroup.UpdateValue(row, s.RowGroup[row])
		}
	}
}
