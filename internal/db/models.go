package db

import "encoding/json"

// Activity types as stored in the activities table.
const (
	TypeProcess  = "process"
	TypeProduct  = "product"
	TypeEmission = "emission"
)

// Exchange types.
const (
	ExchangeTechnosphere = "technosphere"
	ExchangeBiosphere    = "biosphere"
)

// Activity represents a row in the activities table. Biosphere flows are
// activities of type "emission".
type Activity struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Location   string `json:"location"`
	Unit       string `json:"unit"`
	Categories string `json:"categories"` // comma separated
}

// Exchange represents a row in the exchanges table: per unit of consumer
// output, Amount units of producer are consumed (technosphere) or emitted
// (biosphere).
type Exchange struct {
	ID         int64   `json:"id"`
	ConsumerID int64   `json:"consumer_id"`
	ProducerID int64   `json:"producer_id"`
	Type       string  `json:"type"`
	Amount     float64 `json:"amount"`
}

// Run represents one recorded scope attribution together with the settings
// needed to repeat it.
type Run struct {
	ID           string          `json:"id"`
	ActivityID   int64           `json:"activity_id"`
	ActivityName string          `json:"activity_name"`
	Method       string          `json:"method"`
	Amount       float64         `json:"amount"`
	Cutoff       float64         `json:"cutoff"`
	MaxCalc      int             `json:"max_calc"`    // 0 for runs recorded without it
	Scope2Refs   []int64         `json:"scope2_refs"` // activities counted as Scope 2
	Overrides    json.RawMessage `json:"overrides,omitempty"`
	Score        float64         `json:"score"`
	Scope1       float64         `json:"scope1"`
	Scope2       float64         `json:"scope2"`
	Scope3       float64         `json:"scope3"`
	CreatedAt    int64           `json:"created_at"` // Unix millis
}
