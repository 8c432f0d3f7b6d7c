// Package probdef holds declarative, YAML-loadable definitions of the
// library's canonical planning problems and builders that turn a
// definition into ready engine inputs (stage templates, Markov chain,
// initial state, realization mapping).
//
// Two families are covered:
//
//   - Portfolio — finite-horizon wealth rebalancing across risky
//     assets with discretized multiplicative returns.
//   - HydroThermal — infinite-horizon periodic reservoir operation
//     against seasonal demand, thermal backup and uncertain inflows.
//
// A definition is plain data: load one with LoadPortfolio /
// LoadHydroThermal (defaults merged under the file's values), check it
// with Validate, then Build it and hand the result to sddp.New or
// sddp.NewPeriodical.
package probdef
