package graph

import "wiser/scope/internal/db"

// SnapshotFromDB loads the technosphere from the database. Emission flows
// and biosphere exchanges are left out.
func SnapshotFromDB(d *db.DB) (*GraphSnapshot, error) {
	activities, err := d.AllActivities()
	if err != nil {
		return nil, err
	}
	exchanges, err := d.ExchangesOfType(db.ExchangeTechnosphere)
	if err != nil {
		return nil, err
	}

	nodes := make([]*NodeInfo, 0, len(activities))
	for _, a := range activities {
		if a.Type == db.TypeEmission {
			continue
		}
		nodes = append(nodes, &NodeInfo{
			ID:   a.ID,
			Code: a.Code,
			Name: a.Name,
			Type: a.Type,
		})
	}

	edges := make([]EdgeInfo, 0, len(exchanges))
	for _, e := range exchanges {
		edges = append(edges, EdgeInfo{
			ID:       e.ID,
			Consumer: e.ConsumerID,
			Producer: e.ProducerID,
			Amount:   e.Amount,
		})
	}

	return NewSnapshot(nodes, edges), nil
}
