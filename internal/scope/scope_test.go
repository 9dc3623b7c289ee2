package scope

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wiser/scope/internal/lca"
)

type mapResolver map[int64]string

func (m mapResolver) ResolveName(id int64) (string, error) {
	name, ok := m[id]
	if !ok {
		return "", fmt.Errorf("activity %d: not found", id)
	}
	return name, nil
}

var names = mapResolver{1: "Steel", 2: "Coal", 53: "Electricity", 4: "Iron ore"}

func sentinelNode() lca.Node {
	return lca.Node{UniqueID: lca.FunctionalUnitID}
}

func TestNodesToTable_DropsLastRecord(t *testing.T) {
	nodes := []lca.Node{
		{UniqueID: 0, ActivityID: 1, Depth: 1, SupplyAmount: 2, DirectScore: 4, CumulativeScore: 10},
		{UniqueID: 1, ActivityID: 53, Depth: 2, SupplyAmount: 3, DirectScore: 3, CumulativeScore: 3},
		{UniqueID: 2, ActivityID: 2, Depth: 2, SupplyAmount: 0, DirectScore: 0, CumulativeScore: 3},
		sentinelNode(),
	}
	table, err := NodesToTable(nodes, names, NewScopeSet(53))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != len(nodes)-1 {
		t.Fatalf("expected %d rows, got %d", len(nodes)-1, len(table.Rows))
	}
	if table.Branched {
		t.Error("fresh table should not be branched")
	}

	root := table.Rows[0]
	if !root.Scope1 || root.Scope != 1 || root.Name != "Steel" {
		t.Errorf("unexpected root row: %+v", root)
	}
	if root.BurdenIntensity != 2 {
		t.Errorf("root intensity = %v, want 2", root.BurdenIntensity)
	}
	if table.Rows[1].Scope1 || table.Rows[1].Scope != 2 {
		t.Errorf("electricity row: %+v", table.Rows[1])
	}
	if table.Rows[2].Scope != 3 || table.Rows[2].BurdenIntensity != 0 {
		t.Errorf("zero-supply row: %+v", table.Rows[2])
	}
}

func TestNodesToTable_ExclusionInvariant(t *testing.T) {
	for n := 0; n <= 4; n++ {
		var nodes []lca.Node
		for i := 0; i < n; i++ {
			nodes = append(nodes, lca.Node{UniqueID: i, ActivityID: 1, Depth: i + 1})
		}
		table, err := NodesToTable(nodes, names, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := n - 1
		if want < 0 {
			want = 0
		}
		if len(table.Rows) != want {
			t.Errorf("n=%d: got %d rows, want %d", n, len(table.Rows), want)
		}
	}
}

func TestNodesToTable_LookupErrorPropagates(t *testing.T) {
	nodes := []lca.Node{{UniqueID: 0, ActivityID: 999}, sentinelNode()}
	_, err := NodesToTable(nodes, names, nil)
	if !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup, got %v", err)
	}
}

func TestNodesToTable_ScopeTwoOnlyAtDepthTwo(t *testing.T) {
	nodes := []lca.Node{
		{UniqueID: 0, ActivityID: 1, Depth: 1},
		{UniqueID: 1, ActivityID: 2, Depth: 2},
		{UniqueID: 2, ActivityID: 53, Depth: 3},
		sentinelNode(),
	}
	table, err := NodesToTable(nodes, names, NewScopeSet(53))
	if err != nil {
		t.Fatal(err)
	}
	if table.Rows[2].Scope != 3 {
		t.Errorf("deep electricity should be scope 3, got %d", table.Rows[2].Scope)
	}
}

func edgesOf(pairs ...[2]int) []lca.Edge {
	edges := []lca.Edge{{ConsumerID: lca.FunctionalUnitID, ProducerID: 0}}
	for _, p := range pairs {
		edges = append(edges, lca.Edge{ConsumerID: p[0], ProducerID: p[1]})
	}
	return append(edges, lca.Edge{ConsumerID: lca.FunctionalUnitID, ProducerID: lca.FunctionalUnitID})
}

func TestEdgesToTable(t *testing.T) {
	got := EdgesToTable(edgesOf([2]int{0, 1}, [2]int{1, 2}))
	want := []EdgeRow{{0, 1}, {1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edge table mismatch (-want +got):\n%s", diff)
	}
}

func TestEdgesToTable_DropsFirstAndLast(t *testing.T) {
	raw := []lca.Edge{{ConsumerID: 7, ProducerID: 8}, {ConsumerID: 0, ProducerID: 1}, {ConsumerID: 9, ProducerID: 9}}
	got := EdgesToTable(raw)
	if diff := cmp.Diff([]EdgeRow{{0, 1}}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEdgesToTable_Degenerate(t *testing.T) {
	for _, raw := range [][]lca.Edge{nil, {{ConsumerID: -1, ProducerID: 0}}} {
		if got := EdgesToTable(raw); len(got) != 0 {
			t.Errorf("expected empty table for %d edges, got %v", len(raw), got)
		}
	}
	// Two records: the root edge and the terminator, nothing left.
	if got := EdgesToTable(edgesOf()); len(got) != 0 {
		t.Errorf("expected empty table, got %v", got)
	}
}

var workedExample = []EdgeRow{{0, 1}, {0, 2}, {0, 3}, {2, 4}, {3, 5}, {5, 6}}

func TestTraceBranch_WorkedExample(t *testing.T) {
	tests := []struct {
		start int
		want  []int
	}{
		{6, []int{0, 3, 5, 6}},
		{1, []int{0, 1}},
		{4, []int{0, 2, 4}},
		{0, []int{0}},
		{42, []int{42}},
	}
	for _, tt := range tests {
		got, err := TraceBranch(workedExample, tt.start)
		if err != nil {
			t.Fatalf("start %d: %v", tt.start, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("start %d (-want +got):\n%s", tt.start, diff)
		}
	}
}

func TestTraceBranch_FirstMatchWins(t *testing.T) {
	edges := []EdgeRow{{0, 2}, {1, 2}, {0, 1}}
	got, err := TraceBranch(edges, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{0, 2}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestTraceBranch_Cycle(t *testing.T) {
	edges := []EdgeRow{{1, 2}, {2, 1}}
	_, err := TraceBranch(edges, 1)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if ce.Start != 1 || ce.Repeated != 1 {
		t.Errorf("unexpected cycle error: %+v", ce)
	}

	self := []EdgeRow{{3, 3}}
	if _, err := NewBranchIndex(self).Trace(3); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("self loop: expected ErrCycleDetected, got %v", err)
	}
}

func TestBranchIndex_MatchesLinearScan(t *testing.T) {
	edges := append([]EdgeRow{{4, 6}}, workedExample...)
	idx := NewBranchIndex(edges)
	for _, start := range []int{0, 1, 2, 3, 4, 5, 6, 7} {
		want, err := TraceBranch(edges, start)
		if err != nil {
			t.Fatal(err)
		}
		got, err := idx.Trace(start)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("start %d (-scan +index):\n%s", start, diff)
		}
	}
}

func TestAddBranches(t *testing.T) {
	got, err := AddBranches(workedExample)
	if err != nil {
		t.Fatal(err)
	}
	want := []BranchRow{
		{1, []int{0, 1}},
		{2, []int{0, 2}},
		{3, []int{0, 3}},
		{4, []int{0, 2, 4}},
		{5, []int{0, 3, 5}},
		{6, []int{0, 3, 5, 6}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := AddBranches([]EdgeRow{{1, 2}, {2, 1}}); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
	if got, err := AddBranches(nil); err != nil || got != nil {
		t.Errorf("empty edges: got %v, %v", got, err)
	}
}

func TestJoinBranches(t *testing.T) {
	nodes := NodeTable{Rows: []NodeRow{{UID: 0}, {UID: 1}, {UID: 2}}}
	branches := []BranchRow{
		{ProducerID: 1, Branch: []int{0, 1}},
		{ProducerID: 2, Branch: []int{0, 2}},
		{ProducerID: 2, Branch: []int{0, 1, 2}},
	}
	got := JoinBranches(nodes, branches)
	if !got.Branched {
		t.Error("expected Branched")
	}
	if got.Rows[0].Branch != nil {
		t.Errorf("root should have no branch, got %v", got.Rows[0].Branch)
	}
	if diff := cmp.Diff([]int{0, 2}, got.Rows[2].Branch); diff != "" {
		t.Errorf("duplicate producer should keep first (-want +got):\n%s", diff)
	}

	got.Rows[1].Branch[0] = 99
	if branches[0].Branch[0] != 0 {
		t.Error("join must not alias branch slices")
	}
}

func TestJoinBranches_Degenerate(t *testing.T) {
	nodes := NodeTable{Rows: []NodeRow{{UID: 0, Direct: 5}}}
	got := JoinBranches(nodes, edgeBranches(t, nil))
	if got.Branched {
		t.Error("degenerate join must not be branched")
	}
	if diff := cmp.Diff(nodes.Rows, got.Rows); diff != "" {
		t.Errorf("rows changed (-want +got):\n%s", diff)
	}
}

// edgeBranches runs the edge half of the pipeline.
func edgeBranches(t *testing.T, edges []lca.Edge) []BranchRow {
	t.Helper()
	b, err := AddBranches(EdgesToTable(edges))
	if err != nil {
		t.Fatal(err)
	}
	return b
}
