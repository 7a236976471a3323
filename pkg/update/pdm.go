package update

import (
	"github.com/jihwankim/pssakit/pkg/combinatorics"
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

// recomputePDM repairs every Π cell that depends on species' population
// (dm.U3[species+1]), then the λ/σ of whichever rows those cells live in,
// finishing with species' own row's σ if nothing in U3 already touched it:
// a species with no self-dependent reaction still needs its σ refreshed
// whenever its own population, the row's multiplier, changes.
func recomputePDM(dm *kinetics.DataModel, sv *kinetics.Subvolume, species int) {
	row := species + 1
	population := sv.Population[species]
	updateSelf := true
	var total float64

	cells := dm.U3.Row(row)
	for _, cell := range cells {
		oldProp := sv.PartialProp.At(cell.Row, cell.Col)
		var newProp float64
		if cell.Row != row {
			newProp = cell.Rate * combinatorics.Hetero(population, cell.FactorStoich)
		} else {
			updateSelf = false
			newProp = cell.Rate * combinatorics.HomoPartial(population, cell.FactorStoich)
		}

		sv.PartialProp.Set(cell.Row, cell.Col, newProp)
		sv.RowSum[cell.Row] += newProp - oldProp

		newSigma := float64(sv.Population[cell.Row-1]) * sv.RowSum[cell.Row]
		total += newSigma - sv.RowGroup[cell.Row]
		sv.RowGroup[cell.Row] = newSigma

		applyCRRowUpdate(sv, cell.Row, cell.Col, newProp, newSigma)
	}

	if updateSelf {
		newSigma := float64(population) * sv.RowSum[row]
		total += newSigma - sv.RowGroup[row]
		sv.RowGroup[row] = newSigma
		applyCRRowGroupUpdate(sv, row, newSigma)
	}

	sv.TotalPropensity += total
}

// applyCRRowUpdate and applyCRRowGroupUpdate are no-ops for PDM (no CR
// samplers); PSSA-CR's recompute path shares this function by also
// pushing the new values into sv.CRRows/CRRowGroup.
func applyCRRowUpdate(sv *kinetics.Subvolume, row, col int, newProp, newSigma float64) {
	if sv.CRRows == nil {
		return
	}
	sv.CRRows[row].UpdateValue(col, newProp)
	sv.CRRowGroup.UpdateValue(row, newSigma)
}

func applyCRRowGroupUpdate(sv *kinetics.Subvolume, row int, newSigma float64) {
	if sv.CRRowGroup == nil {
		return
	}
	sv.CRRowGroup.UpdateValue(row, newSigma)
}
