// Package graph analyzes the structure of the technosphere: which
// activities supply which, how the inventory splits into disconnected
// parts, and which suppliers are shared by many consumers.
package graph

import "sort"

// NodeInfo is a lightweight activity representation decoupled from DB types
type NodeInfo struct {
	ID   int64
	Code string
	Name string
	Type string
}

// EdgeInfo is a lightweight technosphere exchange: Producer supplies Consumer
type EdgeInfo struct {
	ID       int64
	Consumer int64
	Producer int64
	Amount   float64
}

// GraphSnapshot holds the technosphere with precomputed adjacency lists
type GraphSnapshot struct {
	Nodes   map[int64]*NodeInfo
	Edges   []EdgeInfo
	Adj     map[int64][]int64 // undirected
	Inputs  map[int64][]int64 // consumer -> producers
	Outputs map[int64][]int64 // producer -> consumers
}

// NewSnapshot builds a GraphSnapshot from raw nodes and edges. Edges whose
// endpoints are not in nodes are dropped.
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *GraphSnapshot {
	nodeMap := make(map[int64]*NodeInfo, len(nodes))
	adj := make(map[int64][]int64)
	inputs := make(map[int64][]int64)
	outputs := make(map[int64][]int64)

	for _, n := range nodes {
		nodeMap[n.ID] = n
		adj[n.ID] = nil // ensure entry exists
		inputs[n.ID] = nil
		outputs[n.ID] = nil
	}

	var kept []EdgeInfo
	for _, e := range edges {
		if _, ok := nodeMap[e.Consumer]; !ok {
			continue
		}
		if _, ok := nodeMap[e.Producer]; !ok {
			continue
		}
		kept = append(kept, e)
		adj[e.Consumer] = append(adj[e.Consumer], e.Producer)
		adj[e.Producer] = append(adj[e.Producer], e.Consumer)
		inputs[e.Consumer] = append(inputs[e.Consumer], e.Producer)
		outputs[e.Producer] = append(outputs[e.Producer], e.Consumer)
	}

	return &GraphSnapshot{
		Nodes:   nodeMap,
		Edges:   kept,
		Adj:     adj,
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// Upstream returns a new snapshot containing rootID and every activity in
// its supply chain, with the exchanges between them.
func (s *GraphSnapshot) Upstream(rootID int64) *GraphSnapshot {
	if _, ok := s.Nodes[rootID]; !ok {
		return NewSnapshot(nil, nil)
	}
	included := map[int64]bool{rootID: true}
	queue := []int64{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, p := range s.Inputs[current] {
			if !included[p] {
				included[p] = true
				queue = append(queue, p)
			}
		}
	}

	var filteredNodes []*NodeInfo
	for id := range included {
		filteredNodes = append(filteredNodes, s.Nodes[id])
	}
	var filteredEdges []EdgeInfo
	for _, e := range s.Edges {
		if included[e.Consumer] && included[e.Producer] {
			filteredEdges = append(filteredEdges, e)
		}
	}
	return NewSnapshot(filteredNodes, filteredEdges)
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *GraphSnapshot) NodeIDs() []int64 {
	ids := make([]int64, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
