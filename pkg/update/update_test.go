package update_test

import (
	"testing"
	"time"

	"github.com/jihwankim/pssakit/pkg/grouping"
	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/update"
)

func birthDeathNetwork() *kinetics.Network {
	return &kinetics.Network{
		Species: []kinetics.Species{{Name: "A", Index: 0, Initial: 50}},
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

func newModel(t *testing.T, method kinetics.Method) *kinetics.DataModel {
	t.Helper()
	dm := &kinetics.DataModel{Method: method}
	if err := grouping.Preinitialize(dm, birthDeathNetwork(), kinetics.GridConfig{Dims: []int{1}}); err != nil {
		t.Fatalf("Preinitialize: %v", err)
	}
	if err := grouping.Initialize(dm, kinetics.IPDistribute, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := grouping.PostInitialize(dm); err != nil {
		t.Fatalf("PostInitialize: %v", err)
	}
	return dm
}

func TestUpdateDMDeathReaction(t *testing.T) {
	dm := newModel(t, kinetics.MethodDM)
	before := dm.Subvolumes[0].Population[0]

	if err := update.Update(dm, kinetics.Event{Kind: kinetics.EventReaction, Subvolume: 0, Reaction: 1}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := dm.Subvolumes[0].Population[0]; got != before-1 {
		t.Fatalf("expected population %d, got %d", before-1, got)
	}
}

func TestUpdatePDMBirthEventIncrementsPopulationAndSigma(t *testing.T) {
	dm := newModel(t, kinetics.MethodPDM)
	before := dm.Subvolumes[0].Population[0]

	if err := update.Update(dm, kinetics.Event{Kind: kinetics.EventReaction, Subvolume: 0, Reaction: 0}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := dm.Subvolumes[0].Population[0]; got != before+1 {
		t.Fatalf("expected population %d, got %d", before+1, got)
	}
	if dm.Subvolumes[0].RowGroup[1] <= 0 {
		t.Fatal("expected positive sigma for species row after birth event")
	}
}

func TestUpdatePSSACRKeepsCRTotalsInSync(t *testing.T) {
	dm := newModel(t, kinetics.MethodPSSACR)
	sv := &dm.Subvolumes[0]

	if err := update.Update(dm, kinetics.Event{Kind: kinetics.EventReaction, Subvolume: 0, Reaction: 1}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if sv.CRRowGroup.Total() != sv.TotalPropensity {
		t.Fatalf("CRRowGroup total %v diverged from TotalPropensity %v", sv.CRRowGroup.Total(), sv.TotalPropensity)
	}
}

func TestUpdateDelayedConsumingReaction(t *testing.T) {
	net := birthDeathNetwork()
	net.Reactions[1].Delay = 2 * time.Second
	net.Reactions[1].Consuming = true

	dm := &kinetics.DataModel{Method: kinetics.MethodDM}
	if err := grouping.Preinitialize(dm, net, kinetics.GridConfig{Dims: []int{1}}); err != nil {
		t.Fatalf("Preinitialize: %v", err)
	}
	if err := grouping.Initialize(dm, kinetics.IPDistribute, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	before := dm.Subvolumes[0].Population[0]
	if err := update.Update(dm, kinetics.Event{Kind: kinetics.EventReaction, Time: time.Second, Subvolume: 0, Reaction: 1}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := dm.Subvolumes[0].Population[0]; got != before-1 {
		t.Fatalf("consuming delayed reaction should decrement reactant immediately: got %d want %d", got, before-1)
	}
	if dm.Delayed.Len() != 1 {
		t.Fatalf("expected 1 pending delayed event, got %d", dm.Delayed.Len())
	}

	ev, ok := dm.Delayed.Pop()
	if !ok {
		t.Fatal("expected a pending delayed event")
	}
	if ev.FireTime != 3*time.Second {
		t.Fatalf("expected fire time 3s, got %v", ev.FireTime)
	}

	if err := update.Update(dm, kinetics.Event{
		Kind: kinetics.EventDelayedFire, Time: ev.FireTime, Subvolume: ev.Subvolume, Reaction: ev.Reaction, ProductsOnly: ev.Consuming,
	}); err != nil {
		t.Fatalf("Update delayed fire: %v", err)
	}
	// death reaction has no products, so population is unchanged by the fire.
	if got := dm.Subvolumes[0].Population[0]; got != before-1 {
		t.Fatalf("expected population unchanged by products-only fire: got %d want %d", got, before-1)
	}
}
