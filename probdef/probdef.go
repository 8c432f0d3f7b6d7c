package probdef

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrDefinition is wrapped by every Validate failure.
var ErrDefinition = errors.New("probdef: invalid definition")

// Asset is one investable instrument of a Portfolio.
type Asset struct {
	Name  string  `yaml:"name"`
	Alpha float64 `yaml:"alpha"` // expected per-stage simple return
	Sigma float64 `yaml:"sigma"` // per-stage return volatility
	Max   float64 `yaml:"max"`   // position cap, money units
}

// Portfolio defines a finite-horizon wealth rebalancing problem: an
// initial allocation stage, Stages-2 rebalancing stages and a terminal
// stage that prices the holdings. Gross returns are sampled from the
// assets' (Alpha, Sigma) parameters and discretized onto
// StatesPerStage representative return vectors.
type Portfolio struct {
	Wealth         float64 `yaml:"wealth"`
	Stages         int     `yaml:"stages"`
	Assets         []Asset `yaml:"assets"`
	StatesPerStage int     `yaml:"states_per_stage"`
	SamplePaths    int     `yaml:"sample_paths"`
	Seed           int64   `yaml:"seed"`
}

// DefaultPortfolio returns a five-asset, four-stage instance with 100
// units of starting wealth.
func DefaultPortfolio() Portfolio {
	return Portfolio{
		Wealth:         100,
		Stages:         4,
		StatesPerStage: 3,
		SamplePaths:    2000,
		Seed:           1,
		Assets: []Asset{
			{Name: "equity", Alpha: 0.004, Sigma: 0.05, Max: 200},
			{Name: "credit", Alpha: 0.003, Sigma: 0.03, Max: 200},
			{Name: "rates", Alpha: 0.002, Sigma: 0.02, Max: 200},
			{Name: "gold", Alpha: 0.001, Sigma: 0.04, Max: 200},
			{Name: "cash", Alpha: 0.0005, Sigma: 0, Max: 200},
		},
	}
}

// LoadPortfolio reads a YAML portfolio definition, layered over
// DefaultPortfolio.
func LoadPortfolio(path string) (Portfolio, error) {
	def := DefaultPortfolio()
	data, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, err
	}

	return def, nil
}

// Reservoir is one storage of a HydroThermal system.
type Reservoir struct {
	Name       string  `yaml:"name"`
	Capacity   float64 `yaml:"capacity"`
	Initial    float64 `yaml:"initial"`
	MaxRelease float64 `yaml:"max_release"`
}

// ThermalPlant is one dispatchable generator with constant marginal
// cost.
type ThermalPlant struct {
	Name     string  `yaml:"name"`
	Capacity float64 `yaml:"capacity"`
	Cost     float64 `yaml:"cost"`
}

// HydroThermal defines an infinite-horizon periodic dispatch problem:
// Period seasonal stages repeat forever under per-period discounting.
// Every stage balances reservoir storage against uncertain inflow and
// meets demand from hydro releases, thermal generation and (expensive)
// load shedding.
//
// InflowMean[s][r] is the mean inflow of reservoir r in season s.
// Uncertainty spreads InflowStates representative inflow vectors
// evenly across mean ± InflowSpread, jointly for all reservoirs, with
// serially independent seasons.
type HydroThermal struct {
	Period       int            `yaml:"period"`
	Discount     float64        `yaml:"discount"`
	Reservoirs   []Reservoir    `yaml:"reservoirs"`
	Thermal      []ThermalPlant `yaml:"thermal"`
	Demand       []float64      `yaml:"demand"`
	InflowMean   [][]float64    `yaml:"inflow_mean"`
	InflowSpread float64        `yaml:"inflow_spread"`
	InflowStates int            `yaml:"inflow_states"`
	DeficitCost  float64        `yaml:"deficit_cost"`
}

// DefaultHydroThermal returns a single-reservoir monthly instance with
// a wet winter, a dry summer and two thermal plants.
func DefaultHydroThermal() HydroThermal {
	means := []float64{90, 85, 75, 60, 45, 35, 30, 30, 40, 55, 70, 85}
	inflow := make([][]float64, len(means))
	for s, m := range means {
		inflow[s] = []float64{m}
	}

	return HydroThermal{
		Period:   12,
		Discount: 0.9906,
		Reservoirs: []Reservoir{
			{Name: "main", Capacity: 200, Initial: 100, MaxRelease: 80},
		},
		Thermal: []ThermalPlant{
			{Name: "gas", Capacity: 50, Cost: 5},
			{Name: "diesel", Capacity: 50, Cost: 12},
		},
		Demand:       []float64{70, 70, 75, 80, 85, 90, 95, 95, 85, 80, 75, 70},
		InflowMean:   inflow,
		InflowSpread: 15,
		InflowStates: 3,
		DeficitCost:  50,
	}
}

// LoadHydroThermal reads a YAML hydro-thermal definition, layered over
// DefaultHydroThermal.
func LoadHydroThermal(path string) (HydroThermal, error) {
	def := DefaultHydroThermal()
	data, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, err
	}

	return def, nil
}
