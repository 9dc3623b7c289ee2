// Package scope turns a traversal graph into an analysis table and splits the
// total impact into Scope 1, 2 and 3.
//
// The pipeline is NodesToTable and EdgesToTable, then AddBranches on the edge
// table, JoinBranches onto the node table, and finally AttributeScopes.
package scope

import (
	"fmt"
	"sort"

	"wiser/scope/internal/lca"
)

// NameResolver resolves an activity reference to a display name.
// *db.DB satisfies it.
type NameResolver interface {
	ResolveName(activityID int64) (string, error)
}

// NodeRow is one row of the analysis table.
type NodeRow struct {
	UID             int     `json:"uid"`
	Scope1          bool    `json:"scope1"`
	Scope           int     `json:"scope"`
	Name            string  `json:"name"`
	Cumulative      float64 `json:"cumulative"`
	Direct          float64 `json:"direct"`
	SupplyAmount    float64 `json:"supply_amount"`
	BurdenIntensity float64 `json:"burden_intensity"`
	Depth           int     `json:"depth"`
	ActivityRef     int64   `json:"activity_ref"`
	Branch          []int   `json:"branch,omitempty"`
	Edited          bool    `json:"edited,omitempty"`
}

// NodeTable is the analysis table. Branched is false until branch
// information has been joined, and stays false for a single-node graph.
type NodeTable struct {
	Rows     []NodeRow `json:"rows"`
	Branched bool      `json:"branched"`
}

// Row returns the row with the given UID.
func (t NodeTable) Row(uid int) (NodeRow, bool) {
	for _, r := range t.Rows {
		if r.UID == uid {
			return r, true
		}
	}
	return NodeRow{}, false
}

// EdgeRow is one row of the edge table: producer supplies consumer.
type EdgeRow struct {
	ConsumerID int `json:"consumer_id"`
	ProducerID int `json:"producer_id"`
}

// ScopeSet is the set of activity references counted as Scope 2 when they
// supply the root directly.
type ScopeSet map[int64]struct{}

// NewScopeSet builds a ScopeSet from activity references.
func NewScopeSet(refs ...int64) ScopeSet {
	s := make(ScopeSet, len(refs))
	for _, r := range refs {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether ref is in the set.
func (s ScopeSet) Contains(ref int64) bool {
	_, ok := s[ref]
	return ok
}

// Refs returns the references in ascending order.
func (s ScopeSet) Refs() []int64 {
	refs := make([]int64, 0, len(s))
	for r := range s {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

// classify returns the scope column value of a row.
func classify(uid, depth int, ref int64, scope2 ScopeSet) int {
	switch {
	case uid == 0:
		return 1
	case depth == 2 && scope2.Contains(ref):
		return 2
	default:
		return 3
	}
}

// NodesToTable builds the node table from traversal nodes. The last node is
// the functional-unit sentinel and is skipped. A resolver failure aborts the
// conversion with an error wrapping both ErrLookup and the resolver's error.
func NodesToTable(nodes []lca.Node, resolver NameResolver, scope2 ScopeSet) (NodeTable, error) {
	if len(nodes) < 2 {
		return NodeTable{}, nil
	}
	rows := make([]NodeRow, 0, len(nodes)-1)
	for _, n := range nodes[:len(nodes)-1] {
		name, err := resolver.ResolveName(n.ActivityID)
		if err != nil {
			return NodeTable{}, fmt.Errorf("%w: node %d: %w", ErrLookup, n.UniqueID, err)
		}
		var intensity float64
		if n.SupplyAmount != 0 {
			intensity = n.DirectScore / n.SupplyAmount
		}
		rows = append(rows, NodeRow{
			UID:             n.UniqueID,
			Scope1:          n.UniqueID == 0,
			Scope:           classify(n.UniqueID, n.Depth, n.ActivityID, scope2),
			Name:            name,
			Cumulative:      n.CumulativeScore,
			Direct:          n.DirectScore,
			SupplyAmount:    n.SupplyAmount,
			BurdenIntensity: intensity,
			Depth:           n.Depth,
			ActivityRef:     n.ActivityID,
		})
	}
	return NodeTable{Rows: rows}, nil
}

// EdgesToTable builds the edge table from traversal edges. Fewer than two
// edges yield a nil table. Otherwise the trailing terminator and the leading
// functional-unit edge are both dropped.
func EdgesToTable(edges []lca.Edge) []EdgeRow {
	if len(edges) < 2 {
		return nil
	}
	rows := make([]EdgeRow, 0, len(edges)-1)
	for _, e := range edges[:len(edges)-1] {
		rows = append(rows, EdgeRow{ConsumerID: e.ConsumerID, ProducerID: e.ProducerID})
	}
	return rows[1:]
}
