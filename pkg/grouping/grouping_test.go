package grouping_test

import (
	"testing"

	"github.com/jihwankim/pssakit/pkg/grouping"
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

func birthDeathNetwork() *kinetics.Network {
	return &kinetics.Network{
		Species: []kinetics.Species{
			{Name: "A", Index: 0, Initial: 100},
		},
		Reactions: []kinetics.Reaction{
			{
				Name:      "birth",
				Rate:      1.0,
				Reactants: []kinetics.SpeciesRef{{Index: 0, Stoichiometry: 1, Reservoir: true}},
				Products:  []kinetics.SpeciesRef{{Index: 0, Stoichiometry: 1}},
			},
			{
				Name:      "death",
				Rate:      0.1,
				Reactants: []kinetics.SpeciesRef{{Index: 0, Stoichiometry: 1}},
				Products:  []kinetics.SpeciesRef{},
			},
		},
	}
}

func TestPreinitializeAndInitializeDM(t *testing.T) {
	dm := &kinetics.DataModel{Method: kinetics.MethodDM}
	grid := kinetics.GridConfig{Dims: []int{2}}
	if err := grouping.Preinitialize(dm, birthDeathNetwork(), grid); err != nil {
		t.Fatalf("Preinitialize: %v", err)
	}
	if !dm.Loaded() {
		t.Fatal("expected Loaded() true")
	}

	if err := grouping.Initialize(dm, kinetics.IPDistribute, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(dm.Subvolumes) != 2 {
		t.Fatalf("expected 2 subvolumes, got %d", len(dm.Subvolumes))
	}
	total := int64(0)
	for _, sv := range dm.Subvolumes {
		total += sv.Population[0]
	}
	if total != 100 {
		t.Fatalf("expected total population 100, got %d", total)
	}
	if dm.TotalPropensity <= 0 {
		t.Fatal("expected positive total propensity")
	}
}

func TestPreinitializeAndInitializePDM(t *testing.T) {
	dm := &kinetics.DataModel{Method: kinetics.MethodPDM}
	grid := kinetics.GridConfig{Dims: []int{1}}
	if err := grouping.Preinitialize(dm, birthDeathNetwork(), grid); err != nil {
		t.Fatalf("Preinitialize: %v", err)
	}
	if err := grouping.Initialize(dm, kinetics.IPDistribute, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	sv := dm.Subvolumes[0]
	if sv.RowSum[0] == 0 {
		t.Fatal("expected reservoir row to carry the birth reaction's propensity")
	}
	if sv.RowGroup[1] == 0 {
		t.Fatal("expected species row's sigma to reflect death reaction")
	}
}

func TestPreinitializeAndInitializePSSACR(t *testing.T) {
	dm := &kinetics.DataModel{Method: kinetics.MethodPSSACR}
	grid := kinetics.GridConfig{Dims: []int{1}}
	if err := grouping.Preinitialize(dm, birthDeathNetwork(), grid); err != nil {
		t.Fatalf("Preinitialize: %v", err)
	}
	if dm.MinSigma <= 0 {
		t.Fatal("expected positive MinSigma")
	}
	if err := grouping.Initialize(dm, kinetics.IPDistribute, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := grouping.PostInitialize(dm); err != nil {
		t.Fatalf("PostInitialize: %v", err)
	}
	// Single subvolume: CRVolume is not consulted.
	if dm.CRVolume != nil {
		t.Fatal("expected nil CRVolume for a single-subvolume model")
	}

	sv := dm.Subvolumes[0]
	if sv.CRRowGroup.Total() != sv.TotalPropensity {
		t.Fatalf("CRRowGroup total %v != subvolume TotalPropensity %v", sv.CRRowGroup.Total(), sv.TotalPropensity)
	}
}

// TestInitializeConcentrateUsesGridCenter checks that IPConcentrate places
// the initial population in the grid's geometric centre subvolume rather
// than subvolume 0 — the two only coincide by symmetry on a periodic grid,
// and diverge on an absorbing or reflective one.
func TestInitializeConcentrateUsesGridCenter(t *testing.T) {
	net := &kinetics.Network{
		Species: []kinetics.Species{{Name: "A", Index: 0, Initial: 100}},
	}
	dm := &kinetics.DataModel{Method: kinetics.MethodDM}
	grid := kinetics.GridConfig{Dims: []int{5}, Boundary: kinetics.BoundaryAbsorbing}
	if err := grouping.Preinitialize(dm, net, grid); err != nil {
		t.Fatalf("Preinitialize: %v", err)
	}
	if err := grouping.Initialize(dm, kinetics.IPConcentrate, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	want := grid.CenterIndex()
	if want != 2 {
		t.Fatalf("expected CenterIndex() == 2 for dims [5], got %d", want)
	}
	for sv, s := range dm.Subvolumes {
		if sv == want {
			if s.Population[0] != 100 {
				t.Fatalf("centre subvolume %d: expected population 100, got %d", sv, s.Population[0])
			}
		} else if s.Population[0] != 0 {
			t.Fatalf("non-centre subvolume %d: expected population 0, got %d", sv, s.Population[0])
		}
	}
}

// TestPreinitializeTopologyIndependentOfDeclarationOrder declares a reaction
// targeting a higher-indexed row before one targeting a lower-indexed row.
// RowTopology.Append only accepts non-decreasing rows, so buildTopology must
// sort cells by row itself rather than appending them in reaction order.
func TestPreinitializeTopologyIndependentOfDeclarationOrder(t *testing.T) {
	net := &kinetics.Network{
		Species: []kinetics.Species{
			{Name: "A", Index: 0, Initial: 10},
			{Name: "B", Index: 1, Initial: 10},
			{Name: "C", Index: 2, Initial: 10},
		},
		Reactions: []kinetics.Reaction{
			{
				Name:      "decayC",
				Rate:      1.0,
				Reactants: []kinetics.SpeciesRef{{Index: 2, Stoichiometry: 1}},
				Products:  []kinetics.SpeciesRef{},
			},
			{
				Name:      "decayA",
				Rate:      2.0,
				Reactants: []kinetics.SpeciesRef{{Index: 0, Stoichiometry: 1}},
				Products:  []kinetics.SpeciesRef{},
			},
		},
	}

	dm := &kinetics.DataModel{Method: kinetics.MethodPDM}
	if err := grouping.Preinitialize(dm, net, kinetics.GridConfig{Dims: []int{1}}); err != nil {
		t.Fatalf("Preinitialize: %v", err)
	}

	rowA := dm.RowTopology.At(1, 0) // species A's row
	if rowA.ReactionIndex != 1 {
		t.Fatalf("row 1: expected reaction index 1 (decayA), got %d", rowA.ReactionIndex)
	}
	rowC := dm.RowTopology.At(3, 0) // species C's row
	if rowC.ReactionIndex != 0 {
		t.Fatalf("row 3: expected reaction index 0 (decayC), got %d", rowC.ReactionIndex)
	}

	// Row 2 (species B) takes part in no reaction and must be empty.
	if dm.RowTopology.Cols(2) != 0 {
		t.Fatalf("row 2: expected no cells, got %d", dm.RowTopology.Cols(2))
	}
}

func TestPreinitializeRejectsUnsupportedReactionForPDM(t *testing.T) {
	net := &kinetics.Network{
		Species: []kinetics.Species{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		Reactions: []kinetics.Reaction{
			{
				Name: "tri",
				Rate: 1.0,
				Reactants: []kinetics.SpeciesRef{
					{Index: 0, Stoichiometry: 1},
					{Index: 1, Stoichiometry: 1},
					{Index: 2, Stoichiometry: 1},
				},
			},
		},
	}
	dm := &kinetics.DataModel{Method: kinetics.MethodPDM}
	err := grouping.Preinitialize(dm, net, kinetics.GridConfig{Dims: []int{1}})
	if err == nil {
		t.Fatal("expected error for a 3-reactant reaction under PDM")
	}
}
