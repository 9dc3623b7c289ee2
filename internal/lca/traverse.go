package lca

import (
	"container/heap"
	"context"
	"fmt"
	"math"
)

// traversalEntry is a heap entry awaiting expansion.
type traversalEntry struct {
	cumulative float64
	uid        int
}

// traversalHeap implements container/heap.Interface as a max-heap on the
// absolute cumulative score. Ties broken by uid for deterministic output.
type traversalHeap []traversalEntry

func (h traversalHeap) Len() int { return len(h) }
func (h traversalHeap) Less(i, j int) bool {
	a, b := math.Abs(h[i].cumulative), math.Abs(h[j].cumulative)
	if a != b {
		return a > b
	}
	return h[i].uid < h[j].uid
}
func (h traversalHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *traversalHeap) Push(x interface{}) { *h = append(*h, x.(traversalEntry)) }
func (h *traversalHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Traverse expands the supply chain of a solved single-product demand into a
// tree. Every visit of an activity creates a new node. Suppliers whose
// cumulative score is below cutoff × |score| are not visited. Expansion stops
// after maxCalc nodes have been expanded; Graph.Truncated reports whether
// candidates were left over.
func (e *Engine) Traverse(ctx context.Context, res *Result, cutoff float64, maxCalc int) (*Graph, error) {
	if !(cutoff > 0 && cutoff <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrCutoff, cutoff)
	}
	if len(res.Demand) != 1 {
		return nil, fmt.Errorf("%w: traversal needs exactly one demanded activity, got %d", ErrDemand, len(res.Demand))
	}
	if maxCalc <= 0 {
		maxCalc = 1
	}

	var rootID int64
	var amount float64
	for id, a := range res.Demand {
		rootID, amount = id, a
	}
	limit := cutoff * math.Abs(res.Score)

	nodes := []Node{{
		UniqueID:        0,
		ActivityID:      rootID,
		Depth:           1,
		SupplyAmount:    amount,
		DirectScore:     amount * res.UnitDirect[rootID],
		CumulativeScore: amount * res.UnitCumulative[rootID],
	}}
	edges := []Edge{{ConsumerID: FunctionalUnitID, ProducerID: 0, Amount: amount}}

	h := &traversalHeap{{cumulative: nodes[0].CumulativeScore, uid: 0}}
	heap.Init(h)

	calculations := 0
	for h.Len() > 0 && calculations < maxCalc {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := heap.Pop(h).(traversalEntry)
		calculations++
		parent := nodes[entry.uid]

		for _, in := range res.inputs[parent.ActivityID] {
			supplied := parent.SupplyAmount * in.amount
			cum := supplied * res.UnitCumulative[in.producer]
			if cum == 0 || math.Abs(cum) < limit {
				continue
			}
			uid := len(nodes)
			nodes = append(nodes, Node{
				UniqueID:        uid,
				ActivityID:      in.producer,
				Depth:           parent.Depth + 1,
				SupplyAmount:    supplied,
				DirectScore:     supplied * res.UnitDirect[in.producer],
				CumulativeScore: cum,
			})
			edges = append(edges, Edge{ConsumerID: parent.UniqueID, ProducerID: uid, Amount: supplied})
			heap.Push(h, traversalEntry{cumulative: cum, uid: uid})
		}
	}

	nodes = append(nodes, Node{
		UniqueID:        FunctionalUnitID,
		SupplyAmount:    amount,
		CumulativeScore: res.Score,
	})
	edges = append(edges, Edge{ConsumerID: FunctionalUnitID, ProducerID: FunctionalUnitID})

	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		Score:        res.Score,
		Cutoff:       cutoff,
		Calculations: calculations,
		Truncated:    h.Len() > 0,
	}, nil
}
