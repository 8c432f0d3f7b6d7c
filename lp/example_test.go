package lp_test

import (
	"fmt"

	"github.com/katalvlaran/sddp/lp"
)

// ExampleSimplex_Solve maximizes 3x + 5y over a small polytope.
//
//	x        ≤ 4
//	     2y  ≤ 12
//	3x + 2y  ≤ 18
//
// The optimum sits at the vertex (2, 6) with objective 36.
func ExampleSimplex_Solve() {
	p := &lp.Problem{
		Sense:     lp.Maximize,
		Objective: []float64{3, 5},
		Rows: [][]float64{
			{1, 0},
			{0, 2},
			{3, 2},
		},
		Rel:   []lp.Relation{lp.LE, lp.LE, lp.LE},
		RHS:   []float64{4, 12, 18},
		Lower: []float64{0, 0},
		Upper: []float64{lp.NoBound, lp.NoBound},
	}

	sol, _ := lp.NewSimplex().Solve(p)
	fmt.Printf("%v %.0f x=%.0f y=%.0f\n", sol.Status, sol.Objective, sol.Primal[0], sol.Primal[1])
	// Output:
	// Optimal 36 x=2 y=6
}
