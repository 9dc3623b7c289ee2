package scope

// JoinBranches left-joins branch records onto the node table by UID. Rows
// with no matching producer (the root) get no branch. When a producer has
// several records the first one wins. With no branch records the table is
// returned with Branched false.
func JoinBranches(nodes NodeTable, branches []BranchRow) NodeTable {
	rows := make([]NodeRow, len(nodes.Rows))
	copy(rows, nodes.Rows)
	if len(branches) == 0 {
		for i := range rows {
			rows[i].Branch = nil
		}
		return NodeTable{Rows: rows}
	}

	byProducer := make(map[int][]int, len(branches))
	for _, b := range branches {
		if _, ok := byProducer[b.ProducerID]; !ok {
			byProducer[b.ProducerID] = b.Branch
		}
	}
	for i := range rows {
		if branch, ok := byProducer[rows[i].UID]; ok {
			rows[i].Branch = append([]int(nil), branch...)
		} else {
			rows[i].Branch = nil
		}
	}
	return NodeTable{Rows: rows, Branched: true}
}
