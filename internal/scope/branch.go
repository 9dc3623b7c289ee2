package scope

// TraceBranch returns the chain of nodes from the root to start, inclusive,
// by repeatedly looking up the first edge row whose producer is the current
// node. A node reached twice yields a *CycleError.
func TraceBranch(edges []EdgeRow, start int) ([]int, error) {
	return trace(start, func(producer int) (int, bool) {
		for _, e := range edges {
			if e.ProducerID == producer {
				return e.ConsumerID, true
			}
		}
		return 0, false
	})
}

// BranchIndex maps each producer to the consumer of its first edge row.
type BranchIndex map[int]int

// NewBranchIndex indexes an edge table.
func NewBranchIndex(edges []EdgeRow) BranchIndex {
	idx := make(BranchIndex, len(edges))
	for _, e := range edges {
		if _, ok := idx[e.ProducerID]; !ok {
			idx[e.ProducerID] = e.ConsumerID
		}
	}
	return idx
}

// Trace is TraceBranch over the index.
func (idx BranchIndex) Trace(start int) ([]int, error) {
	return trace(start, func(producer int) (int, bool) {
		consumer, ok := idx[producer]
		return consumer, ok
	})
}

func trace(start int, consumerOf func(int) (int, bool)) ([]int, error) {
	reversed := []int{start}
	seen := map[int]bool{start: true}
	current := start
	for {
		consumer, ok := consumerOf(current)
		if !ok {
			break
		}
		if seen[consumer] {
			path := make([]int, len(reversed))
			for i, n := range reversed {
				path[len(reversed)-1-i] = n
			}
			return nil, &CycleError{Start: start, Repeated: consumer, Path: path}
		}
		seen[consumer] = true
		reversed = append(reversed, consumer)
		current = consumer
	}

	branch := make([]int, len(reversed))
	for i, n := range reversed {
		branch[len(reversed)-1-i] = n
	}
	return branch, nil
}

// BranchRow pairs a producer with its branch.
type BranchRow struct {
	ProducerID int   `json:"producer_id"`
	Branch     []int `json:"branch"`
}

// AddBranches computes the branch of the producer of every edge row, in
// edge order. A producer appearing on several rows yields several records.
func AddBranches(edges []EdgeRow) ([]BranchRow, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	idx := NewBranchIndex(edges)
	out := make([]BranchRow, 0, len(edges))
	for _, e := range edges {
		branch, err := idx.Trace(e.ProducerID)
		if err != nil {
			return nil, err
		}
		out = append(out, BranchRow{ProducerID: e.ProducerID, Branch: branch})
	}
	return out, nil
}
