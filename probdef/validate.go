package probdef

import "fmt"

// Validate checks a portfolio definition field by field.
func (p Portfolio) Validate() error {
	if p.Wealth <= 0 {
		return fmt.Errorf("wealth must be > 0, got %g: %w", p.Wealth, ErrDefinition)
	}
	if p.Stages < 2 {
		return fmt.Errorf("stages must be >= 2, got %d: %w", p.Stages, ErrDefinition)
	}
	if len(p.Assets) == 0 {
		return fmt.Errorf("at least one asset required: %w", ErrDefinition)
	}
	for i, a := range p.Assets {
		if a.Sigma < 0 {
			return fmt.Errorf("assets[%d].sigma must be >= 0, got %g: %w", i, a.Sigma, ErrDefinition)
		}
		if a.Max <= 0 {
			return fmt.Errorf("assets[%d].max must be > 0, got %g: %w", i, a.Max, ErrDefinition)
		}
	}
	if p.StatesPerStage < 1 {
		return fmt.Errorf("states_per_stage must be >= 1, got %d: %w", p.StatesPerStage, ErrDefinition)
	}
	if p.SamplePaths < 1 {
		return fmt.Errorf("sample_paths must be >= 1, got %d: %w", p.SamplePaths, ErrDefinition)
	}

	return nil
}

// Validate checks a hydro-thermal definition field by field.
func (h HydroThermal) Validate() error {
	if h.Period < 1 {
		return fmt.Errorf("period must be >= 1, got %d: %w", h.Period, ErrDefinition)
	}
	if h.Discount <= 0 || h.Discount >= 1 {
		return fmt.Errorf("discount must lie in (0,1), got %g: %w", h.Discount, ErrDefinition)
	}
	if len(h.Reservoirs) == 0 {
		return fmt.Errorf("at least one reservoir required: %w", ErrDefinition)
	}
	for i, r := range h.Reservoirs {
		if r.Capacity <= 0 {
			return fmt.Errorf("reservoirs[%d].capacity must be > 0, got %g: %w", i, r.Capacity, ErrDefinition)
		}
		if r.Initial < 0 || r.Initial > r.Capacity {
			return fmt.Errorf("reservoirs[%d].initial must lie in [0, capacity], got %g: %w", i, r.Initial, ErrDefinition)
		}
		if r.MaxRelease <= 0 {
			return fmt.Errorf("reservoirs[%d].max_release must be > 0, got %g: %w", i, r.MaxRelease, ErrDefinition)
		}
	}
	for i, pl := range h.Thermal {
		if pl.Capacity <= 0 || pl.Cost < 0 {
			return fmt.Errorf("thermal[%d] needs capacity > 0 and cost >= 0: %w", i, ErrDefinition)
		}
	}
	if len(h.Demand) != h.Period {
		return fmt.Errorf("demand lists %d seasons for period %d: %w", len(h.Demand), h.Period, ErrDefinition)
	}
	if len(h.InflowMean) != h.Period {
		return fmt.Errorf("inflow_mean lists %d seasons for period %d: %w", len(h.InflowMean), h.Period, ErrDefinition)
	}
	for s, row := range h.InflowMean {
		if len(row) != len(h.Reservoirs) {
			return fmt.Errorf("inflow_mean[%d] lists %d reservoirs of %d: %w", s, len(row), len(h.Reservoirs), ErrDefinition)
		}
	}
	if h.InflowSpread < 0 {
		return fmt.Errorf("inflow_spread must be >= 0, got %g: %w", h.InflowSpread, ErrDefinition)
	}
	if h.InflowStates < 1 {
		return fmt.Errorf("inflow_states must be >= 1, got %d: %w", h.InflowStates, ErrDefinition)
	}
	if h.DeficitCost <= 0 {
		return fmt.Errorf("deficit_cost must be > 0, got %g: %w", h.DeficitCost, ErrDefinition)
	}

	return nil
}
