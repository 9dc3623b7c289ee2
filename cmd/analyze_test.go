package cmd

import (
	"context"
	"math"
	"strings"
	"testing"

	"wiser/scope/internal/db"
	"wiser/scope/internal/scope"
	"wiser/scope/internal/sparql"
)

// setupSteel builds steel consuming 0.5 electricity and 2 coal, coal
// consuming 0.1 ore. The GCC score of one unit of steel is 8: Scope 1 is 3,
// Scope 2 (electricity) is 1.
func setupSteel(t *testing.T) (d *db.DB, steel, elec int64) {
	t.Helper()
	d = setupTestDB(t)
	steel = mustCreate(t, d, "steel", "Steel production")
	elec = mustCreate(t, d, "elec", "Electricity; at consumer")
	coal := mustCreate(t, d, "coal", "Coal mining")
	ore := mustCreate(t, d, "ore", "Iron ore")
	co2, _, err := d.EnsureActivity("co2", "Carbon Dioxide", db.CreateActivityOpts{Type: db.TypeEmission})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetCharacterizationFactor("GCC", co2, 1); err != nil {
		t.Fatal(err)
	}
	for _, e := range []struct {
		consumer, producer int64
		typ                string
		amount             float64
	}{
		{steel, elec, db.ExchangeTechnosphere, 0.5},
		{steel, coal, db.ExchangeTechnosphere, 2},
		{coal, ore, db.ExchangeTechnosphere, 0.1},
		{steel, co2, db.ExchangeBiosphere, 3},
		{elec, co2, db.ExchangeBiosphere, 2},
		{coal, co2, db.ExchangeBiosphere, 1},
		{ore, co2, db.ExchangeBiosphere, 10},
	} {
		if _, err := d.CreateExchange(e.consumer, e.producer, e.typ, e.amount); err != nil {
			t.Fatal(err)
		}
	}
	return d, steel, elec
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRunAnalysis(t *testing.T) {
	d, steel, elec := setupSteel(t)
	sess, err := newSession(d, sessionFlags{scope2: []int64{elec}, noCache: true})
	if err != nil {
		t.Fatal(err)
	}

	results, err := runAnalysis(context.Background(), sess, steel, []float64{0.1, 0.1, 0.5}, nil, true)
	if err != nil {
		t.Fatalf("runAnalysis: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	first := results[0]
	if !approx(first.Score, 8) {
		t.Errorf("score = %v, want 8", first.Score)
	}
	a := first.Attribution
	if !approx(a.Scope1, 3) || !approx(a.Scope2, 1) || !approx(a.Scope3, 4) {
		t.Errorf("attribution = %+v, want 3/1/4", a)
	}
	if first.Reused || !results[1].Reused || results[2].Reused {
		t.Errorf("reused flags = %v %v %v, want false true false",
			first.Reused, results[1].Reused, results[2].Reused)
	}
	if len(results[2].Table.Rows) >= len(first.Table.Rows) {
		t.Errorf("cutoff 0.5 kept %d rows, cutoff 0.1 kept %d", len(results[2].Table.Rows), len(first.Table.Rows))
	}

	runs, err := d.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Errorf("recorded %d runs, want 3", len(runs))
	}
	for _, r := range results {
		if r.RunID == "" {
			t.Error("result without run id")
		}
	}
}

func TestRunAnalysis_Overrides(t *testing.T) {
	d, steel, elec := setupSteel(t)
	sess, err := newSession(d, sessionFlags{scope2: []int64{elec}, noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	overrides, err := parseOverrides([]byte("overrides:\n  - uid: 0\n    burdenIntensity: 5\n"))
	if err != nil {
		t.Fatal(err)
	}

	results, err := runAnalysis(context.Background(), sess, steel, []float64{0.1}, overrides, false)
	if err != nil {
		t.Fatalf("runAnalysis: %v", err)
	}
	r := results[0]
	if !r.Overridden || r.RunID != "" {
		t.Errorf("overridden = %v, run id = %q", r.Overridden, r.RunID)
	}
	if !approx(r.Attribution.Scope1, 5) {
		t.Errorf("Scope 1 = %v, want 5", r.Attribution.Scope1)
	}
	root, _ := r.Table.Row(0)
	if !root.Edited {
		t.Error("root row not marked edited")
	}
}

func TestRunAnalysis_RepeatedCutoffKeepsOverrides(t *testing.T) {
	d, steel, elec := setupSteel(t)
	sess, err := newSession(d, sessionFlags{scope2: []int64{elec}, noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	two := 2.0
	overrides := []scope.Override{{UID: 0, SupplyAmount: &two}}

	results, err := runAnalysis(context.Background(), sess, steel, []float64{0.1, 0.1}, overrides, false)
	if err != nil {
		t.Fatalf("runAnalysis: %v", err)
	}
	if !results[1].Reused {
		t.Fatal("second cutoff did not reuse the traversal")
	}
	for i, r := range results {
		root, _ := r.Table.Row(0)
		if !root.Edited || root.SupplyAmount != 2 {
			t.Errorf("result %d: root edited %v supply %v, want edited with supply 2", i, root.Edited, root.SupplyAmount)
		}
		if !approx(r.Attribution.Total(), 16) {
			t.Errorf("result %d: total = %v, want 16", i, r.Attribution.Total())
		}
	}
	if len(results[0].Table.Rows) != len(results[1].Table.Rows) {
		t.Fatalf("row counts differ: %d vs %d", len(results[0].Table.Rows), len(results[1].Table.Rows))
	}
	for i := range results[0].Table.Rows {
		a, b := results[0].Table.Rows[i], results[1].Table.Rows[i]
		if a.SupplyAmount != b.SupplyAmount || a.Edited != b.Edited {
			t.Errorf("row %d changed between applications: %+v vs %+v", i, a, b)
		}
	}
}

func TestRunAnalysis_InvalidCutoff(t *testing.T) {
	d, steel, _ := setupSteel(t)
	sess, err := newSession(d, sessionFlags{noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runAnalysis(context.Background(), sess, steel, []float64{1.5}, nil, false); err == nil {
		t.Error("cutoff 1.5 accepted")
	}
}

func TestRepeatRun_RestoresScope2(t *testing.T) {
	d, steel, elec := setupSteel(t)
	ctx := context.Background()
	sess, err := newSession(d, sessionFlags{scope2: []int64{elec}, noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	results, err := runAnalysis(ctx, sess, steel, []float64{0.1}, nil, true)
	if err != nil {
		t.Fatalf("runAnalysis: %v", err)
	}
	run, err := d.GetRun(results[0].RunID)
	if err != nil {
		t.Fatal(err)
	}

	// The configured Scope 2 set does not contain elec.
	if appConfig.Scope2Activities[0] == elec {
		t.Fatalf("default Scope 2 activity %d collides with the fixture", elec)
	}
	got, err := repeatRun(ctx, d, run, run.Cutoff, true, false)
	if err != nil {
		t.Fatalf("repeatRun: %v", err)
	}
	if len(got.Drift) != 0 {
		t.Errorf("unchanged inventory reported drift: %v", got.Drift)
	}
	if !approx(got.Current.Attribution.Scope2, 1) {
		t.Errorf("Scope 2 = %v, want 1", got.Current.Attribution.Scope2)
	}
	if got.Current.RunID != "" {
		t.Error("repeat recorded a run")
	}
}

func TestRepeatRun_ReappliesOverrides(t *testing.T) {
	d, steel, elec := setupSteel(t)
	ctx := context.Background()
	sess, err := newSession(d, sessionFlags{scope2: []int64{elec}, maxCalc: 500, noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	five := 5.0
	results, err := runAnalysis(ctx, sess, steel, []float64{0.1}, []scope.Override{{UID: 0, BurdenIntensity: &five}}, true)
	if err != nil {
		t.Fatalf("runAnalysis: %v", err)
	}
	run, err := d.GetRun(results[0].RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.MaxCalc != 500 {
		t.Errorf("recorded maxCalc = %d, want 500", run.MaxCalc)
	}

	got, err := repeatRun(ctx, d, run, run.Cutoff, true, true)
	if err != nil {
		t.Fatalf("repeatRun: %v", err)
	}
	if len(got.Drift) != 0 {
		t.Errorf("unchanged inventory reported drift: %v", got.Drift)
	}
	if !got.Current.Overridden || !approx(got.Current.Attribution.Scope1, 5) {
		t.Errorf("overridden = %v, Scope 1 = %v, want overrides reapplied", got.Current.Overridden, got.Current.Attribution.Scope1)
	}

	again, err := d.GetRun(got.Current.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if string(again.Overrides) != string(run.Overrides) || again.MaxCalc != 500 {
		t.Errorf("repeated run stored overrides %s maxCalc %d", again.Overrides, again.MaxCalc)
	}
}

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr string
	}{
		{
			name: "supply and intensity",
			data: "overrides:\n  - uid: 1\n    supplyAmount: 2\n  - uid: 2\n    burdenIntensity: 0.5\n",
			want: 2,
		},
		{name: "empty file", data: "", want: 0},
		{name: "entry without value", data: "overrides:\n  - uid: 3\n", wantErr: "override 1 (uid 3) sets no value"},
		{name: "bad yaml", data: "overrides: [", wantErr: "parsing overrides"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOverrides([]byte(tt.data))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d overrides, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDescribeDrift(t *testing.T) {
	prev := db.Run{Cutoff: 0.1, Score: 8, Scope1: 3, Scope2: 1, Scope3: 4}

	same := analysisResult{Cutoff: 0.1, Attribution: scope.Attribution{Scope1: 3, Scope2: 1, Scope3: 4}}
	if got := describeDrift(prev, same); len(got) != 0 {
		t.Errorf("unchanged run reported drift: %v", got)
	}

	moved := analysisResult{Cutoff: 0.1, Attribution: scope.Attribution{Scope1: 3, Scope2: 2, Scope3: 3}}
	got := describeDrift(prev, moved)
	want := []string{"Scope 2: 1 -> 2 (+100.00%)", "Scope 3: 4 -> 3 (-25.00%)"}
	if len(got) != len(want) {
		t.Fatalf("drift = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drift[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	recut := analysisResult{Cutoff: 0.05, Attribution: same.Attribution}
	if got := describeDrift(prev, recut); len(got) != 1 || got[0] != "cutoff: 0.1 -> 0.05" {
		t.Errorf("cutoff drift = %v", got)
	}
}

func TestMatchLabel(t *testing.T) {
	labels := []sparql.ActivityLabel{
		{Src: "http://example.org/a", Label: "Steel"},
		{Src: "http://example.org/b", Label: "Cement"},
		{Src: "http://example.org/c", Label: "cement"},
	}
	if src, err := matchLabel(labels, "steel"); err != nil || src != "http://example.org/a" {
		t.Errorf("steel: %q, %v", src, err)
	}
	if _, err := matchLabel(labels, "Cement"); err == nil || !strings.Contains(err.Error(), "ambiguous label") {
		t.Errorf("cement: err = %v", err)
	}
	if _, err := matchLabel(labels, "glass"); err == nil {
		t.Error("glass matched")
	}
}

func TestFormatBranch(t *testing.T) {
	if got := formatBranch(nil); got != "-" {
		t.Errorf("formatBranch(nil) = %q", got)
	}
	if got := formatBranch([]int{0, 3, 5}); got != "0→3→5" {
		t.Errorf("formatBranch = %q", got)
	}
}
