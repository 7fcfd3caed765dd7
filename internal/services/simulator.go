package services

import (
	"math/rand/v2"

	"waterguard/internal/models"
)

// RandomSource yields values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// SeedState is where every simulated stream starts.
var SeedState = models.SimulationState{
	PH:           7.0,
	Turbidity:    2.5,
	TDS:          320,
	Temperature:  27,
	Conductivity: 550,
}

// LiveBands bound the walk once streaming has started.
var LiveBands = models.SimulationBands{
	PH:           models.FieldBand{Min: 6.0, Max: 9.2, Step: 0.05},
	Turbidity:    models.FieldBand{Min: 0.2, Max: 10, Step: 0.4},
	TDS:          models.FieldBand{Min: 30, Max: 1500, Step: 12},
	Temperature:  models.FieldBand{Min: 8, Max: 45, Step: 0.4},
	Conductivity: models.FieldBand{Min: 80, Max: 2000, Step: 12},
}

// WarmupBands are tighter and only used to backfill the initial window.
var WarmupBands = models.SimulationBands{
	PH:           models.FieldBand{Min: 6.4, Max: 8.8, Step: 0.05},
	Turbidity:    models.FieldBand{Min: 0.5, Max: 8, Step: 0.3},
	TDS:          models.FieldBand{Min: 50, Max: 1200, Step: 10},
	Temperature:  models.FieldBand{Min: 10, Max: 40, Step: 0.3},
	Conductivity: models.FieldBand{Min: 100, Max: 1500, Step: 8},
}

// StepSimulation advances every field by one bounded random-walk step. Fields
// are perturbed in a fixed order so an injected source is reproducible.
func StepSimulation(state models.SimulationState, rnd RandomSource, bands models.SimulationBands) models.SimulationState {
	walk := func(current float64, band models.FieldBand) float64 {
		nudge := rnd.Float64() - 0.5
		return clamp(current+nudge*band.Step, band.Min, band.Max)
	}

	return models.SimulationState{
		PH:           walk(state.PH, bands.PH),
		Turbidity:    walk(state.Turbidity, bands.Turbidity),
		TDS:          walk(state.TDS, bands.TDS),
		Temperature:  walk(state.Temperature, bands.Temperature),
		Conductivity: walk(state.Conductivity, bands.Conductivity),
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// newUnseededSource returns the default, non-reproducible source.
func newUnseededSource() RandomSource {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
