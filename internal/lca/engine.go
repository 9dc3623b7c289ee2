package lca

import (
	"context"
	"fmt"
	"math"

	"wiser/scope/internal/db"
)

const (
	defaultTolerance     = 1e-12
	defaultMaxIterations = 10000
)

// input is one technosphere input of an activity, per unit of its output.
type input struct {
	producer int64
	amount   float64
}

// Engine solves impact scores over an Inventory.
type Engine struct {
	inv           Inventory
	Tolerance     float64 // relative convergence tolerance
	MaxIterations int
}

// NewEngine creates an engine with default tolerance and iteration limit.
func NewEngine(inv Inventory) *Engine {
	return &Engine{
		inv:           inv,
		Tolerance:     defaultTolerance,
		MaxIterations: defaultMaxIterations,
	}
}

// Result holds a solved LCA.
type Result struct {
	Demand Demand  `json:"demand"`
	Method string  `json:"method"`
	Score  float64 `json:"score"`

	// Supply is the total amount of each activity required by the demand.
	Supply map[int64]float64 `json:"supply"`

	// UnitDirect is the characterized impact of one unit of each activity's
	// own emissions.
	UnitDirect map[int64]float64 `json:"unit_direct"`

	// UnitCumulative is the characterized impact of one unit of each
	// activity including its whole upstream supply chain.
	UnitCumulative map[int64]float64 `json:"unit_cumulative"`

	inputs map[int64][]input
}

// Solve computes supply amounts, unit impacts and the total score of demand
// under the given method.
//
// Supply solves s = f + A·s and unit cumulative impacts solve c = d + Aᵀ·c,
// both by fixed-point iteration. Loops in the technosphere are fine as long
// as they attenuate; otherwise ErrNotConverged is returned.
func (e *Engine) Solve(ctx context.Context, demand Demand, method string) (*Result, error) {
	if len(demand) == 0 {
		return nil, fmt.Errorf("%w: empty demand", ErrDemand)
	}

	exchanges, err := e.inv.ExchangesOfType(db.ExchangeTechnosphere)
	if err != nil {
		return nil, fmt.Errorf("loading technosphere: %w", err)
	}
	direct, err := e.inv.CharacterizedDirect(method)
	if err != nil {
		return nil, fmt.Errorf("loading characterized flows for %s: %w", method, err)
	}

	inputs := make(map[int64][]input)
	for _, ex := range exchanges {
		inputs[ex.ConsumerID] = append(inputs[ex.ConsumerID], input{producer: ex.ProducerID, amount: ex.Amount})
	}

	supply, err := e.iterate(ctx, "supply", func(prev map[int64]float64) map[int64]float64 {
		next := make(map[int64]float64, len(prev))
		for id, amount := range demand {
			next[id] += amount
		}
		for consumer, s := range prev {
			if s == 0 {
				continue
			}
			for _, in := range inputs[consumer] {
				next[in.producer] += in.amount * s
			}
		}
		return next
	})
	if err != nil {
		return nil, err
	}

	cumulative, err := e.iterate(ctx, "cumulative impact", func(prev map[int64]float64) map[int64]float64 {
		next := make(map[int64]float64, len(direct)+len(inputs))
		for id, d := range direct {
			next[id] = d
		}
		for consumer, ins := range inputs {
			var upstream float64
			for _, in := range ins {
				upstream += in.amount * prev[in.producer]
			}
			if upstream != 0 {
				next[consumer] += upstream
			}
		}
		return next
	})
	if err != nil {
		return nil, err
	}

	var score float64
	for id, amount := range demand {
		score += amount * cumulative[id]
	}

	return &Result{
		Demand:         demand,
		Method:         method,
		Score:          score,
		Supply:         supply,
		UnitDirect:     direct,
		UnitCumulative: cumulative,
		inputs:         inputs,
	}, nil
}

// iterate applies step from an empty vector until two successive vectors
// agree within the engine tolerance.
func (e *Engine) iterate(ctx context.Context, what string, step func(map[int64]float64) map[int64]float64) (map[int64]float64, error) {
	current := map[int64]float64{}
	for i := 0; i < e.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := step(current)

		var delta, scale float64
		for id, v := range next {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s overflowed at activity %d", ErrNotConverged, what, id)
			}
			delta = math.Max(delta, math.Abs(v-current[id]))
			scale = math.Max(scale, math.Abs(v))
		}
		for id, v := range current {
			if _, ok := next[id]; !ok {
				delta = math.Max(delta, math.Abs(v))
			}
		}
		current = next
		if delta <= e.Tolerance*math.Max(1, scale) {
			return current, nil
		}
	}
	return nil, fmt.Errorf("%w: %s after %d iterations", ErrNotConverged, what, e.MaxIterations)
}
