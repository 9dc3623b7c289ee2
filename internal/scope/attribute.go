package scope

import (
	"encoding/json"
	"fmt"
)

// Scope labels, in display order.
const (
	LabelScope1 = "Scope 1"
	LabelScope2 = "Scope 2"
	LabelScope3 = "Scope 3"
)

// Colors are the chart colours of each scope label.
var Colors = map[string]string{
	LabelScope1: "#33cc33",
	LabelScope2: "#ffcc00",
	LabelScope3: "#3366ff",
}

// Attribution splits a total impact into the three scopes.
type Attribution struct {
	Scope1 float64
	Scope2 float64
	Scope3 float64
}

// Labels returns the scope labels in display order.
func (a Attribution) Labels() []string {
	return []string{LabelScope1, LabelScope2, LabelScope3}
}

// Values returns the scope values in the order of Labels.
func (a Attribution) Values() []float64 {
	return []float64{a.Scope1, a.Scope2, a.Scope3}
}

// Total returns Scope1 + Scope2 + Scope3.
func (a Attribution) Total() float64 {
	return a.Scope1 + a.Scope2 + a.Scope3
}

// Share returns each scope's fraction of the total, or zeros for a zero total.
func (a Attribution) Share() []float64 {
	total := a.Total()
	if total == 0 {
		return []float64{0, 0, 0}
	}
	return []float64{a.Scope1 / total, a.Scope2 / total, a.Scope3 / total}
}

func (a Attribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{
		LabelScope1: a.Scope1,
		LabelScope2: a.Scope2,
		LabelScope3: a.Scope3,
	})
}

func (a *Attribution) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k := range m {
		if _, ok := Colors[k]; !ok {
			return fmt.Errorf("unknown scope label %q", k)
		}
	}
	a.Scope1, a.Scope2, a.Scope3 = m[LabelScope1], m[LabelScope2], m[LabelScope3]
	return nil
}

// AttributeScopes splits total into scopes.
//
// Scope 1 is the direct impact of the root row(s). Scope 2 is the direct
// impact of the first depth-2 row whose activity is in scope2, or zero when
// there is none. Scope 3 is the residual total - Scope 1 - Scope 2.
func AttributeScopes(table NodeTable, total float64, scope2 ScopeSet) Attribution {
	var a Attribution
	for _, r := range table.Rows {
		if r.Scope1 {
			a.Scope1 += r.Direct
		}
	}
	for _, r := range table.Rows {
		if r.Depth == 2 && scope2.Contains(r.ActivityRef) {
			a.Scope2 = r.Direct
			break
		}
	}
	a.Scope3 = total - a.Scope1 - a.Scope2
	return a
}

// AttributeByScopeColumn sums Direct per Scope column value. The total is
// the sum of Direct over all rows, which makes it usable after overrides
// have changed individual rows.
func AttributeByScopeColumn(table NodeTable) Attribution {
	var a Attribution
	var total float64
	for _, r := range table.Rows {
		total += r.Direct
		switch r.Scope {
		case 1:
			a.Scope1 += r.Direct
		case 2:
			a.Scope2 += r.Direct
		}
	}
	a.Scope3 = total - a.Scope1 - a.Scope2
	return a
}
