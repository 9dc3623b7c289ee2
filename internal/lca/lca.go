// Package lca computes life-cycle impact scores over the inventory store and
// expands the solved supply chain into a cutoff-truncated traversal graph.
package lca

import (
	"errors"

	"wiser/scope/internal/db"
)

// FunctionalUnitID is the unique ID of the synthetic functional-unit node.
// It appears as the last node and as the consumer of the first and last edges
// of every traversal graph.
const FunctionalUnitID = -1

var (
	// ErrNotConverged is returned when the supply or cumulative impact
	// iteration does not settle, which means the technosphere loops amplify.
	ErrNotConverged = errors.New("lca: iteration did not converge")
	// ErrDemand is returned for an empty demand, or a multi-product demand
	// passed to Traverse.
	ErrDemand = errors.New("lca: invalid demand")
	// ErrCutoff is returned for a cutoff outside (0, 1].
	ErrCutoff = errors.New("lca: cutoff must be in (0, 1]")
)

// Demand maps activity IDs to demanded amounts (the functional unit).
type Demand map[int64]float64

// Node is one visit of an activity during traversal. The same activity can
// appear as several nodes when it is reached through different paths.
type Node struct {
	UniqueID        int     `json:"unique_id"`
	ActivityID      int64   `json:"activity_id"`
	Depth           int     `json:"depth"`
	SupplyAmount    float64 `json:"supply_amount"`
	DirectScore     float64 `json:"direct_score"`
	CumulativeScore float64 `json:"cumulative_score"`
}

// Edge records that ProducerID supplies Amount units to ConsumerID.
type Edge struct {
	ConsumerID int     `json:"consumer_id"`
	ProducerID int     `json:"producer_id"`
	Amount     float64 `json:"amount"`
}

// Graph is the result of a traversal.
//
// Nodes are ordered by UniqueID (root first) and followed by the
// functional-unit sentinel. Edges start with the functional-unit edge
// (FunctionalUnitID -> 0) and end with a terminator edge whose IDs are both
// FunctionalUnitID.
type Graph struct {
	Nodes        []Node  `json:"nodes"`
	Edges        []Edge  `json:"edges"`
	Score        float64 `json:"score"`
	Cutoff       float64 `json:"cutoff"`
	Calculations int     `json:"calculations"`
	Truncated    bool    `json:"truncated"`
}

// Inventory is the data an Engine solves over. *db.DB satisfies it.
type Inventory interface {
	ExchangesOfType(exchangeType string) ([]db.Exchange, error)
	CharacterizedDirect(method string) (map[int64]float64, error)
}
