package graph

// UnionFind implements union-find with path compression and union by rank
type UnionFind struct {
	parent map[int64]int64
	rank   map[int64]int
	size   map[int64]int
}

// NewUnionFind creates a new UnionFind where each element is its own component
func NewUnionFind(ids []int64) *UnionFind {
	uf := &UnionFind{
		parent: make(map[int64]int64, len(ids)),
		rank:   make(map[int64]int, len(ids)),
		size:   make(map[int64]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	return uf
}

// Find returns the root of the component containing id, with path compression
func (uf *UnionFind) Find(id int64) int64 {
	parent, ok := uf.parent[id]
	if !ok {
		return id
	}
	if parent != id {
		root := uf.Find(parent)
		uf.parent[id] = root
		return root
	}
	return id
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b int64) bool {
	rootA := uf.Find(a)
	rootB := uf.Find(b)
	if rootA == rootB {
		return false
	}

	if uf.rank[rootA] < uf.rank[rootB] {
		rootA, rootB = rootB, rootA
	}
	uf.parent[rootB] = rootA
	uf.size[rootA] += uf.size[rootB]
	if uf.rank[rootA] == uf.rank[rootB] {
		uf.rank[rootA]++
	}
	return true
}

// Size returns the number of elements in the component containing id
func (uf *UnionFind) Size(id int64) int {
	return uf.size[uf.Find(id)]
}

// Components returns all connected components as slices of IDs
func (uf *UnionFind) Components() [][]int64 {
	groups := make(map[int64][]int64)
	for id := range uf.parent {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}
	result := make([][]int64, 0, len(groups))
	for _, members := range groups {
		result = append(result, members)
	}
	return result
}
