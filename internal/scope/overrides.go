package scope

import "fmt"

// Override holds user-supplied values for one row. Nil fields are left alone.
type Override struct {
	UID             int      `json:"uid" yaml:"uid"`
	SupplyAmount    *float64 `json:"supply_amount,omitempty" yaml:"supplyAmount,omitempty"`
	BurdenIntensity *float64 `json:"burden_intensity,omitempty" yaml:"burdenIntensity,omitempty"`
}

// ApplyOverrides returns a copy of table with user values applied.
//
// A value equal to the current one is ignored. A changed supply amount on a
// row rescales every row whose branch passes through it by user/original,
// using the nearest such ancestor; ancestors with an original supply of zero
// are skipped. Rows without a branch keep their supply unless edited
// themselves. A changed burden intensity replaces the row's intensity.
// Direct is recomputed as SupplyAmount × BurdenIntensity for every row and
// rows with a changed value are marked Edited. Cumulative is not updated.
func ApplyOverrides(table NodeTable, overrides []Override) (NodeTable, error) {
	original := make(map[int]NodeRow, len(table.Rows))
	for _, r := range table.Rows {
		original[r.UID] = r
	}

	userSupply := map[int]float64{}
	userIntensity := map[int]float64{}
	for _, o := range overrides {
		row, ok := original[o.UID]
		if !ok {
			return NodeTable{}, fmt.Errorf("override for UID %d: %w", o.UID, ErrUnknownRow)
		}
		if o.SupplyAmount != nil && *o.SupplyAmount != row.SupplyAmount {
			userSupply[o.UID] = *o.SupplyAmount
		}
		if o.BurdenIntensity != nil && *o.BurdenIntensity != row.BurdenIntensity {
			userIntensity[o.UID] = *o.BurdenIntensity
		}
	}

	rows := make([]NodeRow, len(table.Rows))
	for i, r := range table.Rows {
		_, suppliedEdit := userSupply[r.UID]
		_, intensityEdit := userIntensity[r.UID]
		r.Edited = suppliedEdit || intensityEdit

		r.SupplyAmount = adjustedSupply(r, userSupply, original)
		if v, ok := userIntensity[r.UID]; ok {
			r.BurdenIntensity = v
		}
		r.Direct = r.SupplyAmount * r.BurdenIntensity
		r.Branch = append([]int(nil), r.Branch...)
		rows[i] = r
	}
	return NodeTable{Rows: rows, Branched: table.Branched}, nil
}

func adjustedSupply(r NodeRow, userSupply map[int]float64, original map[int]NodeRow) float64 {
	if v, ok := userSupply[r.UID]; ok {
		return v
	}
	for i := len(r.Branch) - 1; i >= 0; i-- {
		ancestor := r.Branch[i]
		user, ok := userSupply[ancestor]
		if !ok {
			continue
		}
		base := original[ancestor].SupplyAmount
		if base != 0 {
			return r.SupplyAmount * user / base
		}
	}
	return r.SupplyAmount
}
