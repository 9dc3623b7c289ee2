package cmd

import (
	"strings"
	"testing"

	"wiser/scope/internal/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func mustCreate(t *testing.T, d *db.DB, code, name string) int64 {
	t.Helper()
	id, err := d.CreateActivity(code, name, db.CreateActivityOpts{})
	if err != nil {
		t.Fatalf("create %s: %v", code, err)
	}
	return id
}

func TestResolveActivity(t *testing.T) {
	d := setupTestDB(t)
	steel := mustCreate(t, d, "steel", "Steel production")
	mustCreate(t, d, "steel-hot", "Hot rolled steel")
	coal := mustCreate(t, d, "coal", "Coal mining")
	ore := mustCreate(t, d, "ore", "Iron ore extraction")

	tests := []struct {
		name    string
		ref     string
		wantID  int64
		wantErr string
	}{
		{name: "numeric id", ref: "1", wantID: steel},
		{name: "exact code beats prefix", ref: "steel", wantID: steel},
		{name: "unique code prefix", ref: "coa", wantID: coal},
		{name: "name search", ref: "iron extraction", wantID: ore},
		{name: "ambiguous prefix", ref: "stee", wantErr: "ambiguous reference 'stee'. 2 matches"},
		{name: "ambiguous name", ref: "rolled production", wantErr: "ambiguous reference"},
		{name: "not found", ref: "aluminium", wantErr: "activity not found: aluminium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveActivity(d, tt.ref)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ResolveActivity(%q) error = %v, want containing %q", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveActivity(%q): %v", tt.ref, err)
			}
			if got.ID != tt.wantID {
				t.Errorf("ResolveActivity(%q) = %d, want %d", tt.ref, got.ID, tt.wantID)
			}
		})
	}
}

func TestResolveRun(t *testing.T) {
	d := setupTestDB(t)
	id, err := d.InsertRun(db.Run{ActivityID: 1, ActivityName: "Steel production", Method: "GCC", Amount: 1, Cutoff: 0.1})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	run, err := ResolveRun(d, id)
	if err != nil || run.ID != id {
		t.Fatalf("full id: got %v, %v", run, err)
	}
	run, err = ResolveRun(d, id[:8])
	if err != nil || run.ID != id {
		t.Fatalf("prefix: got %v, %v", run, err)
	}
	if _, err := ResolveRun(d, "zzzzzzzz"); err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Errorf("non-hex reference: err = %v", err)
	}
	if _, err := ResolveRun(d, id[:4]); err == nil {
		t.Error("short prefix should not resolve")
	}
}

func TestIsHexDash(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0123abcd", true},
		{"ABCDEF-01", true},
		{"", true},
		{"abcdefg", false},
		{"12 34", false},
	}
	for _, tt := range tests {
		if got := isHexDash(tt.in); got != tt.want {
			t.Errorf("isHexDash(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncTitle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"Electricity; at consumer", 11, "Electricity..."},
		{"Kühlung", 2, "K..."},
	}
	for _, tt := range tests {
		if got := truncTitle(tt.in, tt.max); got != tt.want {
			t.Errorf("truncTitle(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestJoinLines(t *testing.T) {
	if got := joinLines(nil); got != "" {
		t.Errorf("joinLines(nil) = %q", got)
	}
	if got := joinLines([]string{"a", "b", "c"}); got != "a\nb\nc" {
		t.Errorf("joinLines = %q", got)
	}
}
