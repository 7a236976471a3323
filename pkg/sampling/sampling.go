// Package sampling draws the next event a simulation trial must absorb:
// the waiting time to it, which subvolume it happens in, which reaction
// fires, and — for diffusion — which neighbouring subvolume receives the
// molecule, all from one seeded *rand.Rand.
package sampling

import (
	"math"
	"math/rand"
	"time"

	"github.com/jihwankim/pssakit/pkg/kinetics"
)

// Draw samples one event from dm's current state using rng, and returns
// the waiting time to it. It does not change populations or propensities —
// update.Update does that once the caller has advanced its clock by the
// returned duration — but it does pop a due delayed event off dm.Delayed.
//
// When the delayed queue's head already fires at or before the sampled
// time, Draw instead returns that delayed event with a waiting time equal
// to the time remaining until its fire time, bypassing propensity
// sampling for this step (spec's delayed-reaction short-circuit).
func Draw(dm *kinetics.DataModel, now time.Duration, rng *rand.Rand) (kinetics.Event, time.Duration, error) {
	if dm.TotalPropensity <= 0 {
		if ev, fireTime, ok := dueDelayedEvent(dm, now, time.Duration(math.MaxInt64)); ok {
			return ev, fireTime - now, nil
		}
		return kinetics.Event{}, 0, kinetics.NewError(kinetics.ErrInternalInvariant, "no reaction has positive propensity and no delayed event is pending")
	}

	tau := time.Duration(rng.ExpFloat64() / dm.TotalPropensity * float64(time.Second))
	candidate := now + tau

	if ev, fireTime, ok := dueDelayedEvent(dm, now, candidate); ok {
		return ev, fireTime - now, nil
	}

	sv := selectSubvolume(dm, rng.Float64())

	var ev kinetics.Event
	switch dm.Method {
	case kinetics.MethodDM:
		ev = drawDM(dm, sv, rng.Float64())
	case kinetics.MethodPDM, kinetics.MethodPSSACR:
		ev = drawPartialPropensity(dm, sv, rng.Float64(), rng.Float64())
	default:
		return kinetics.Event{}, 0, kinetics.NewError(kinetics.ErrBadConfig, "unknown method")
	}
	ev.Time = candidate

	if dm.Reactions[ev.Reaction].Diffusive {
		ev.Kind = kinetics.EventDiffusion
		dest, ok := pickDiffusionDestination(dm, sv, dm.Reactions[ev.Reaction].Species, rng.Float64())
		if !ok {
			// Absorbing boundary with no valid neighbour: the destination
			// is the source itself, so Update takes the molecule out of sv
			// and puts it back; the population is unchanged and the
			// molecule is not removed from the system.
			ev.Destination = sv
		} else {
			ev.Destination = dest
		}
	}

	return ev, tau, nil
}

// dueDelayedEvent reports whether dm's earliest pending delayed event
// fires at or before candidate, popping and converting it to an Event if
// so.
func dueDelayedEvent(dm *kinetics.DataModel, now, candidate time.Duration) (kinetics.Event, time.Duration, bool) {
	head, ok := dm.Delayed.Peek()
	if !ok || head.FireTime > candidate {
		return kinetics.Event{}, 0, false
	}
	dm.Delayed.Pop()
	return kinetics.Event{
		Kind:         kinetics.EventDelayedFire,
		Time:         head.FireTime,
		Subvolume:    head.Subvolume,
		Reaction:     head.Reaction,
		ProductsOnly: head.Consuming,
	}, head.FireTime, true
}

// selectSubvolume draws a subvolume index weighted by TotalPropensity,
// falling back to the sole subvolume when there is only one.
func selectSubvolume(dm *kinetics.DataModel, u float64) int {
	if len(dm.Subvolumes) <= 1 || dm.CRVolume == nil {
		return 0
	}
	if sv, ok := dm.CRVolume.Sample(u); ok {
		return sv
	}
	return 0
}

// drawDM performs a linear CDF search over the subvolume's dense
// propensity array.
func drawDM(dm *kinetics.DataModel, sv int, u float64) kinetics.Event {
	s := &dm.Subvolumes[sv]
	target := u * s.TotalPropensity
	var acc float64
	ri := len(s.PropDM) - 1
	for i, p := range s.PropDM {
		acc += p
		if acc >= target {
			ri = i
			break
		}
	}
	return kinetics.Event{Kind: kinetics.EventReaction, Subvolume: sv, Reaction: ri}
}

// drawPartialPropensity performs the two-level draw shared by PDM (linear
// CDF search at both levels) and PSSA-CR (O(1) CR sampler at both levels):
// a row weighted by σ, then a column inside that row weighted by Π.
func drawPartialPropensity(dm *kinetics.DataModel, sv int, uRow, uCol float64) kinetics.Event {
	s := &dm.Subvolumes[sv]

	var row int
	if dm.Method == kinetics.MethodPSSACR {
		row, _ = s.CRRowGroup.Sample(uRow)
	} else {
		row = cdfSearch(s.RowGroup, uRow)
	}

	var col int
	if dm.Method == kinetics.MethodPSSACR {
		col, _ = s.CRRows[row].Sample(uCol)
	} else {
		col = cdfSearch(s.PartialProp.Row(row), uCol)
	}

	cell := dm.RowTopology.At(row, col)
	return kinetics.Event{Kind: kinetics.EventReaction, Subvolume: sv, Reaction: cell.ReactionIndex}
}

// cdfSearch returns the first index whose partial sum is >= u*total(weights).
func cdfSearch(weights []float64, u float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	target := u * total
	var acc float64
	for i, w := range weights {
		acc += w
		if acc >= target {
			return i
		}
	}
	return len(weights) - 1
}

// pickDiffusionDestination chooses a neighbouring subvolume uniformly from
// species' diffusive neighbours along the lattice, honouring the grid's
// boundary condition. ok is false only when an absorbing boundary leaves
// src with no valid neighbour along the picked axis/direction.
func pickDiffusionDestination(dm *kinetics.DataModel, src, species int, u float64) (int, bool) {
	dims := dm.Grid.Dims
	if len(dims) == 0 {
		return src, false
	}

	// Each axis contributes two directions (-1, +1); pick one uniformly
	// among 2*len(dims) choices.
	choices := 2 * len(dims)
	pick := int(u * float64(choices))
	if pick >= choices {
		pick = choices - 1
	}
	axis := pick / 2
	dir := 1
	if pick%2 == 0 {
		dir = -1
	}

	coords := indexToCoords(src, dims)
	coords[axis] += dir

	if coords[axis] < 0 || coords[axis] >= dims[axis] {
		switch dm.Grid.Boundary {
		case kinetics.BoundaryPeriodic:
			coords[axis] = ((coords[axis] % dims[axis]) + dims[axis]) % dims[axis]
		case kinetics.BoundaryReflective:
			if coords[axis] < 0 {
				coords[axis] = 0
			} else {
				coords[axis] = dims[axis] - 1
			}
		default: // BoundaryAbsorbing
			return src, false
		}
	}

	return coordsToIndex(coords, dims), true
}

func indexToCoords(idx int, dims []int) []int {
	coords := make([]int, len(dims))
	for i := range dims {
		coords[i] = idx % dims[i]
		idx /= dims[i]
	}
	return coords
}

func coordsToIndex(coords, dims []int) int {
	idx := 0
	mul := 1
	for i := range dims {
		idx += coords[i] * mul
		mul *= dims[i]
	}
	return idx
}
