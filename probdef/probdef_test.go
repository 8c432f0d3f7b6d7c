package probdef_test

import (
	"path/filepath"
	"testing"

	"github.com/katalvlaran/sddp/probdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	assert.NoError(t, probdef.DefaultPortfolio().Validate())
	assert.NoError(t, probdef.DefaultHydroThermal().Validate())
}

func TestPortfolioValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*probdef.Portfolio)
	}{
		{"zero wealth", func(p *probdef.Portfolio) { p.Wealth = 0 }},
		{"single stage", func(p *probdef.Portfolio) { p.Stages = 1 }},
		{"no assets", func(p *probdef.Portfolio) { p.Assets = nil }},
		{"negative sigma", func(p *probdef.Portfolio) { p.Assets[0].Sigma = -0.1 }},
		{"zero position cap", func(p *probdef.Portfolio) { p.Assets[0].Max = 0 }},
		{"no states", func(p *probdef.Portfolio) { p.StatesPerStage = 0 }},
		{"no paths", func(p *probdef.Portfolio) { p.SamplePaths = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := probdef.DefaultPortfolio()
			tc.mutate(&def)
			assert.ErrorIs(t, def.Validate(), probdef.ErrDefinition)
		})
	}
}

func TestHydroThermalValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*probdef.HydroThermal)
	}{
		{"zero period", func(h *probdef.HydroThermal) { h.Period = 0 }},
		{"undiscounted", func(h *probdef.HydroThermal) { h.Discount = 1 }},
		{"no reservoirs", func(h *probdef.HydroThermal) { h.Reservoirs = nil }},
		{"overfull reservoir", func(h *probdef.HydroThermal) { h.Reservoirs[0].Initial = 500 }},
		{"demand season count", func(h *probdef.HydroThermal) { h.Demand = h.Demand[:3] }},
		{"inflow season count", func(h *probdef.HydroThermal) { h.InflowMean = h.InflowMean[:3] }},
		{"inflow reservoir count", func(h *probdef.HydroThermal) { h.InflowMean[0] = []float64{1, 2} }},
		{"free load shedding", func(h *probdef.HydroThermal) { h.DeficitCost = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := probdef.DefaultHydroThermal()
			tc.mutate(&def)
			assert.ErrorIs(t, def.Validate(), probdef.ErrDefinition)
		})
	}
}

func TestLoadPortfolio_LayersOverDefaults(t *testing.T) {
	def, err := probdef.LoadPortfolio(filepath.Join("testdata", "portfolio.yaml"))
	require.NoError(t, err)
	require.NoError(t, def.Validate())

	assert.InDelta(t, 250.0, def.Wealth, 0)
	assert.Equal(t, 3, def.Stages)
	assert.Equal(t, int64(7), def.Seed)
	require.Len(t, def.Assets, 2)
	assert.Equal(t, "tech", def.Assets[0].Name)
}

func TestLoadHydroThermal_LayersOverDefaults(t *testing.T) {
	def, err := probdef.LoadHydroThermal(filepath.Join("testdata", "hydrothermal.yaml"))
	require.NoError(t, err)
	require.NoError(t, def.Validate())

	assert.InDelta(t, 0.98, def.Discount, 1e-12)
	assert.Equal(t, 2, def.InflowStates)
	assert.InDelta(t, 80.0, def.DeficitCost, 0)

	// Untouched fields keep their defaults.
	assert.Equal(t, 12, def.Period)
	assert.Len(t, def.Demand, 12)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := probdef.LoadPortfolio(filepath.Join("testdata", "absent.yaml"))
	assert.Error(t, err)
}

func TestPortfolioBuild_Shapes(t *testing.T) {
	def := probdef.DefaultPortfolio()
	in, err := def.Build()
	require.NoError(t, err)

	require.Len(t, in.Stages, def.Stages)
	assert.Equal(t, def.Stages, in.Chain.NumStages())
	assert.Equal(t, len(def.Assets), in.Chain.Dim())
	require.Len(t, in.Initial, len(def.Assets))

	assert.Nil(t, in.Realize(0, in.Chain.States[0][0]))
	r := in.Realize(1, in.Chain.States[1][0])
	require.Len(t, r, len(def.Assets))
	assert.InDelta(t, -in.Chain.States[1][0][0], r[0], 1e-12,
		"gross returns land negated on the balance-row coefficients")
}

func TestHydroThermalBuild_Shapes(t *testing.T) {
	def := probdef.DefaultHydroThermal()
	in, err := def.Build()
	require.NoError(t, err)

	require.Len(t, in.Stages, def.Period+1)
	assert.Equal(t, def.Period+1, in.Chain.NumStages())
	assert.Equal(t, def.InflowStates, in.Chain.NumStates(0))
	assert.Equal(t, def.InflowStates, in.Chain.NumStates(def.Period),
		"period boundary reuses the stage-0 wrap")
	assert.InDelta(t, def.Reservoirs[0].Initial, in.Initial[0], 0)

	// Dispatch stages take one inflow value per reservoir.
	r := in.Realize(1, in.Chain.States[1][0])
	assert.Len(t, r, len(def.Reservoirs))
	assert.Nil(t, in.Realize(0, in.Chain.States[0][0]))
}
