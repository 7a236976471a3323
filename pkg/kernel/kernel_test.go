package kernel_test

import (
	"context"
	"testing"
	"time"

	"github.com/jihwankim/pssakit/pkg/kernel"
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

func birthDeathNetwork() *kinetics.Network {
	return &kinetics.Network{
		Species: []kinetics.Species{{Name: "A", Index: 0, Initial: 10}},
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

func TestRunTrialsProducesResultsForEveryTrial(t *testing.T) {
	r := &kernel.Runner{
		Network:   birthDeathNetwork(),
		Grid:      kinetics.GridConfig{Dims: []int{1}},
		ModelName: "birth-death",
		Cfg: kernel.Config{
			TimeStart:         0,
			TimeStep:          100 * time.Millisecond,
			TimeEnd:           1 * time.Second,
			SamplesTotal:      10,
			Method:            kinetics.MethodDM,
			InitialPopulation: kinetics.IPDistribute,
			Trials:            3,
			Seed:              7,
		},
	}

	batch, err := r.RunTrials(context.Background())
	if err != nil {
		t.Fatalf("RunTrials: %v", err)
	}
	if batch.Trials != 3 {
		t.Fatalf("expected 3 trials, got %d", batch.Trials)
	}
	if len(batch.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(batch.Results))
	}
	if batch.Passed != 3 {
		t.Fatalf("expected all 3 trials to pass, got %d passed, %d failed", batch.Passed, batch.Failed)
	}
	if len(batch.TimePoints) == 0 {
		t.Fatal("expected at least one recorded time point")
	}
}

func TestRunTrialsConcurrentMatchesSequentialTrialCount(t *testing.T) {
	cfg := kernel.Config{
		TimeStart:         0,
		TimeStep:          200 * time.Millisecond,
		TimeEnd:           1 * time.Second,
		SamplesTotal:      5,
		Method:            kinetics.MethodPSSACR,
		InitialPopulation: kinetics.IPDistribute,
		Trials:            4,
		Seed:              11,
	}
	r := &kernel.Runner{Network: birthDeathNetwork(), Grid: kinetics.GridConfig{Dims: []int{1}}, Cfg: cfg}

	batch, err := r.RunTrialsConcurrent(context.Background(), 2)
	if err != nil {
		t.Fatalf("RunTrialsConcurrent: %v", err)
	}
	if batch.Passed+batch.Failed != 4 {
		t.Fatalf("expected 4 total trial outcomes, got %d", batch.Passed+batch.Failed)
	}
}

func TestRunTrialsRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &kernel.Runner{
		Network: birthDeathNetwork(),
		Grid:    kinetics.GridConfig{Dims: []int{1}},
		Cfg: kernel.Config{
			TimeStep:          100 * time.Millisecond,
			TimeEnd:           1 * time.Second,
			Method:            kinetics.MethodDM,
			InitialPopulation: kinetics.IPDistribute,
			Trials:            5,
		},
	}

	batch, err := r.RunTrials(ctx)
	if err != nil {
		t.Fatalf("RunTrials: %v", err)
	}
	if batch.Passed+batch.Failed != 0 {
		t.Fatalf("expected no trials to run under a pre-cancelled context, got %d", batch.Passed+batch.Failed)
	}
}
