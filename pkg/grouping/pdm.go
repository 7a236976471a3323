package grouping

import (
	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/matrix"
)

// initializePDM fills every subvolume's partial-propensity cache (Π, λ, σ)
// from dm.RowTopology (built once by Preinitialize) and the subvolume's
// installed population. Also the first half of PSSA-CR's Initialize, since
// PSSA-CR reuses PDM's Π/λ/σ values and layers CR samplers on top.
func initializePDM(dm *kinetics.DataModel) {
	rows := dm.RowCount()

	for sv := range dm.Subvolumes {
		s := &dm.Subvolumes[sv]
		s.PartialProp = matrix.NewJagged[float64](rows, len(dm.Reactions)/max(rows, 1)+1)
		s.RowSum = make([]float64, rows)
		s.RowGroup = make([]float64, rows)

		for row := 0; row < rows; row++ {
			cols := dm.RowTopology.Cols(row)
			var lambda float64
			for col := 0; col < cols; col++ {
				cell := dm.RowTopology.At(row, col)
				v := cellValue(cell, s.Population)
				s.PartialProp.Append(row, v)
				lambda += v
			}
			s.RowSum[row] = lambda
			if row == 0 {
				s.RowGroup[row] = lambda
			} else {
				s.RowGroup[row] = float64(s.Population[row-1]) * lambda
			}
		}

		s.TotalPropensity = 0
		for _, sigma := range s.RowGroup {
			s.TotalPropensity += sigma
		}
		dm.TotalPropensity += s.TotalPropensity
	}
}
