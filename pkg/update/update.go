// Package update applies a sampled or replayed kinetics.Event to a
// DataModel: mutating populations and then repairing whichever propensity
// cache the model's Method keeps, touching only the cells that changed.
package update

import (
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

// Update absorbs ev into dm, dispatched by ev.Kind — one function per event
// kind, each ending in the shared updateSpeciesStructures entry point.
func Update(dm *kinetics.DataModel, ev kinetics.Event) error {
	if ev.Subvolume < 0 || ev.Subvolume >= len(dm.Subvolumes) {
		return kinetics.NewError(kinetics.ErrInternalInvariant, "event subvolume out of range")
	}

	switch ev.Kind {
	case kinetics.EventReaction:
		return applyReaction(dm, ev)
	case kinetics.EventDiffusion:
		return applyDiffusion(dm, ev)
	case kinetics.EventDelayedFire:
		return applyDelayedFire(dm, ev)
	default:
		return kinetics.NewError(kinetics.ErrInternalInvariant, "unknown event kind")
	}
}

func applyReaction(dm *kinetics.DataModel, ev kinetics.Event) error {
	if ev.Reaction < 0 || ev.Reaction >= len(dm.Reactions) {
		return kinetics.NewError(kinetics.ErrInternalInvariant, "event reaction index out of range")
	}
	r := &dm.Reactions[ev.Reaction]
	sv := &dm.Subvolumes[ev.Subvolume]

	if r.Delay > 0 {
		fireTime := ev.Time + r.Delay
		if r.Consuming {
			changed := mutateRefs(sv, r.Reactants, -1)
			dm.Delayed.Push(kinetics.DelayedEvent{
				FireTime: fireTime, Subvolume: ev.Subvolume, Reaction: ev.Reaction, Consuming: true,
			})
			updateSpeciesStructures(dm, ev.Subvolume, changed)
		} else {
			dm.Delayed.Push(kinetics.DelayedEvent{
				FireTime: fireTime, Subvolume: ev.Subvolume, Reaction: ev.Reaction, Consuming: false,
			})
		}
		return nil
	}

	changed := mutateRefs(sv, r.Reactants, -1)
	changed = append(changed, mutateRefs(sv, r.Products, 1)...)
	updateSpeciesStructures(dm, ev.Subvolume, changed)
	return nil
}

// applyDelayedFire replays a previously-scheduled delayed reaction:
// products only for the consuming case (reactants were already depleted
// when the reaction was scheduled), both reactants and products together
// for the non-consuming case (neither happened until now).
func applyDelayedFire(dm *kinetics.DataModel, ev kinetics.Event) error {
	if ev.Reaction < 0 || ev.Reaction >= len(dm.Reactions) {
		return kinetics.NewError(kinetics.ErrInternalInvariant, "event reaction index out of range")
	}
	r := &dm.Reactions[ev.Reaction]
	sv := &dm.Subvolumes[ev.Subvolume]

	var changed []int
	if !ev.ProductsOnly {
		changed = append(changed, mutateRefs(sv, r.Reactants, -1)...)
	}
	changed = append(changed, mutateRefs(sv, r.Products, 1)...)
	updateSpeciesStructures(dm, ev.Subvolume, changed)
	return nil
}

func applyDiffusion(dm *kinetics.DataModel, ev kinetics.Event) error {
	if ev.Reaction < 0 || ev.Reaction >= len(dm.Reactions) {
		return kinetics.NewError(kinetics.ErrInternalInvariant, "event reaction index out of range")
	}
	if ev.Destination < 0 || ev.Destination >= len(dm.Subvolumes) {
		return kinetics.NewError(kinetics.ErrInternalInvariant, "event destination subvolume out of range")
	}
	r := &dm.Reactions[ev.Reaction]
	if !r.Diffusive {
		return kinetics.NewError(kinetics.ErrInternalInvariant, "diffusion event references a non-diffusive reaction")
	}

	species := r.Species
	dm.Subvolumes[ev.Subvolume].Population[species]--
	dm.Subvolumes[ev.Destination].Population[species]++

	updateSpeciesStructures(dm, ev.Subvolume, []int{species})
	updateSpeciesStructures(dm, ev.Destination, []int{species})
	return nil
}

// mutateRefs applies sign*Stoichiometry to every non-reservoir,
// non-constant species reference in refs, returning the species index of
// each reference it changed (one entry per reference, so an index can
// repeat).
func mutateRefs(sv *kinetics.Subvolume, refs []kinetics.SpeciesRef, sign int64) []int {
	changed := make([]int, 0, len(refs))
	for _, ref := range refs {
		if ref.Reservoir || ref.Constant {
			continue
		}
		sv.Population[ref.Index] += sign * ref.Stoichiometry
		changed = append(changed, ref.Index)
	}
	return changed
}

// updateSpeciesStructures repairs the propensity cache of subvolume sv for
// every species index in changed, then reconciles the subvolume's and
// model's running totals and (when present) dm.CRVolume.
func updateSpeciesStructures(dm *kinetics.DataModel, svIndex int, changed []int) {
	sv := &dm.Subvolumes[svIndex]
	before := sv.TotalPropensity

	switch dm.Method {
	case kinetics.MethodDM:
		recomputeDM(dm, sv)
	case kinetics.MethodPDM, kinetics.MethodPSSACR:
		// recomputePDM also drives sv.CRRows/CRRowGroup when PSSA-CR has
		// populated them, so both methods share one recompute path.
		for _, idx := range changed {
			recomputePDM(dm, sv, idx)
		}
	}

	dm.TotalPropensity += sv.TotalPropensity - before
	if dm.CRVolume != nil {
		dm.CRVolume.UpdateValue(svIndex, sv.TotalPropensity)
	}
}
