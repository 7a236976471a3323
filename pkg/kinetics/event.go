package kinetics

import "time"

// EventKind tags which variant of Event is populated.
type EventKind int

const (
	EventReaction EventKind = iota
	EventDiffusion
	EventDelayedFire
)

// Event is a tagged union describing one sampled or replayed occurrence for
// Update to absorb. Exactly one of the reaction/diffusion shapes applies,
// selected by Kind.
type Event struct {
	Kind EventKind
	Time time.Duration // simulation time at which this event occurs

	Subvolume int // source subvolume for both reaction and diffusion events
	Reaction  int // reaction index

	// Diffusion-only.
	Destination int

	// DelayedFire-only: true when replaying the consuming half (products
	// only) of a previously-fired consuming delayed reaction. false means
	// replay both reactants and products (non-consuming case).
	ProductsOnly bool
}
