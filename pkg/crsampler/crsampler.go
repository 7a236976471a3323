// Package crsampler implements Composition-Rejection sampling: a two-level
// categorical sampler over logarithmic-range weight bins, with rejection
// sampling inside the chosen bin. It lets PSSA-CR draw a weighted item in
// O(1) amortized time and update a single item's weight in O(1), instead of
// rescanning every item on each draw like a flat cumulative-sum sampler.
package crsampler

import "math"

// bin groups items whose weight falls in the same logarithmic range.
type bin struct {
	total   float64
	members []int
}

// Sampler is a Composition-Rejection sampler over a fixed set of item slots.
// Configure it once via New + Observe/UpdateValue calls during grouping, then
// Sample repeatedly during the simulation's hot loop.
type Sampler struct {
	bins         []bin
	memberBin    []int     // item -> bin index, -1 if never assigned
	memberWeight []float64 // item -> current weight
	memberSlot   []int     // item -> index within bins[memberBin[item]].members
	minValue     float64
	minValueSet  bool
	total        float64
}

// New returns a Sampler with slots for [0, expected) items and no bins yet.
func New(expected int) *Sampler {
	if expected < 0 {
		expected = 0
	}
	s := &Sampler{
		memberBin:    make([]int, expected),
		memberWeight: make([]float64, expected),
		memberSlot:   make([]int, expected),
	}
	for i := range s.memberBin {
		s.memberBin[i] = -1
	}
	return s
}

// Observe fixes minValue from the first strictly positive weight seen, if it
// has not already been fixed (by SetMinValue or an earlier positive weight).
// UpdateValue calls it for every positive weight it stores.
func (s *Sampler) Observe(w float64) {
	if w > 0 && !s.minValueSet {
		s.minValue = w
		s.minValueSet = true
	}
}

// MinValue returns the fixed saturation floor, or 0 if never set.
func (s *Sampler) MinValue() float64 { return s.minValue }

// SetMinValue preloads minValue rather than letting it be discovered from
// the first positive weight Observe/UpdateValue sees — used when grouping
// has already computed the theoretical floor (PSSA-CR's minPi/minSigma)
// ahead of any call to UpdateValue.
func (s *Sampler) SetMinValue(v float64) {
	s.minValue = v
	s.minValueSet = true
}

// binIndex computes the logarithmic bin for weight w given floor minValue.
// w <= 0 always maps to bin 0 (empty/inactive). Strictly positive weights
// below minValue saturate into bin 1 rather than underflowing to a negative
// or zero index — see DESIGN.md's Open Question resolution.
func binIndex(w, minValue float64) int {
	if w <= 0 {
		return 0
	}
	if minValue <= 0 {
		return int(math.Floor(math.Abs(math.Log2(w)))) + 1
	}
	if w < minValue {
		return 1
	}
	return int(math.Floor(math.Log2(w/minValue))) + 1
}

func (s *Sampler) ensureItem(item int) {
	for len(s.memberBin) <= item {
		s.memberBin = append(s.memberBin, -1)
		s.memberWeight = append(s.memberWeight, 0)
		s.memberSlot = append(s.memberSlot, 0)
	}
}

func (s *Sampler) ensureBin(k int) {
	for len(s.bins) <= k {
		s.bins = append(s.bins, bin{})
	}
}

// UpdateValue sets item's weight, removing it from its previous bin (if any)
// and reinserting it into the bin its new weight belongs to. Passing a
// weight of 0 effectively deactivates the item.
func (s *Sampler) UpdateValue(item int, weight float64) {
	s.ensureItem(item)

	old := s.memberWeight[item]
	s.total += weight - old
	s.memberWeight[item] = weight

	oldBin := s.memberBin[item]
	if oldBin >= 0 {
		s.removeFromBin(oldBin, item)
	}

	if weight <= 0 {
		s.memberBin[item] = -1
		return
	}

	s.Observe(weight)
	k := binIndex(weight, s.minValue)
	s.ensureBin(k)
	s.bins[k].total += weight
	s.bins[k].members = append(s.bins[k].members, item)
	s.memberBin[item] = k
	s.memberSlot[item] = len(s.bins[k].members) - 1
}

// removeFromBin deletes item from bins[k] via swap-with-last, keeping the
// operation O(1).
func (s *Sampler) removeFromBin(k, item int) {
	b := &s.bins[k]
	b.total -= s.memberWeight[item]
	slot := s.memberSlot[item]
	last := len(b.members) - 1
	moved := b.members[last]
	b.members[slot] = moved
	b.members = b.members[:last]
	if moved != item {
		s.memberSlot[moved] = slot
	}
}

// Total returns the sum of all active item weights.
func (s *Sampler) Total() float64 { return s.total }

// Sample draws an item proportional to its weight using u, a uniform random
// value expected in [0, 1). Returns ok=false if no item has positive weight.
func (s *Sampler) Sample(u float64) (item int, ok bool) {
	if s.total <= 0 {
		return 0, false
	}

	target := u * s.total
	var acc float64
	chosenBin := -1
	for k := range s.bins {
		if len(s.bins[k].members) == 0 {
			continue
		}
		if acc+s.bins[k].total > target {
			chosenBin = k
			break
		}
		acc += s.bins[k].total
	}
	if chosenBin < 0 {
		// Floating-point rounding pushed target past the true sum; fall back
		// to the last non-empty bin.
		for k := len(s.bins) - 1; k >= 0; k-- {
			if len(s.bins[k].members) > 0 {
				chosenBin = k
				break
			}
		}
	}
	if chosenBin < 0 {
		return 0, false
	}

	b := s.bins[chosenBin]
	// Rejection sampling within the bin: bin k holds weights in
	// [minValue*2^(k-1), minValue*2^k), so minValue*2^k bounds the rejection
	// envelope. local is a fresh uniform value over the chosen bin's own
	// sub-range of [0, s.total). Its integer part (scaled by the member
	// count) picks the candidate and its fractional part decides
	// acceptance, so the two are independent — using the same value for
	// both would bias member 0 of a shared bin toward over-selection.
	envelope := s.binEnvelope(chosenBin)
	local := (target - acc) / b.total
	if local < 0 {
		local = 0
	} else if local >= 1 {
		local = math.Nextafter(1, 0)
	}
	for {
		scaled := local * float64(len(b.members))
		idx := int(scaled)
		if idx >= len(b.members) {
			idx = len(b.members) - 1
		}
		cand := b.members[idx]
		accept := scaled - float64(idx)
		if accept*envelope <= s.memberWeight[cand] {
			return cand, true
		}
		// Re-roll deterministically from the fractional remainder so a
		// single caller-supplied u still terminates.
		local = math.Mod(local*2.0+0.137, 1.0)
	}
}

func (s *Sampler) binEnvelope(k int) float64 {
	if s.minValue <= 0 {
		max := 0.0
		for _, item := range s.bins[k].members {
			if w := s.memberWeight[item]; w > max {
				max = w
			}
		}
		return max
	}
	return s.minValue * math.Pow(2, float64(k))
}

// Reset clears all bins and weights while keeping the fixed minValue.
func (s *Sampler) Reset() {
	s.bins = s.bins[:0]
	s.total = 0
	for i := range s.memberBin {
		s.memberBin[i] = -1
		s.memberWeight[i] = 0
	}
}
