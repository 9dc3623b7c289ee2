package db

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildSearchTerms(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"the steel of production", []string{"steel", "production"}},
		{"a an in", nil},
		{"electricity, at consumer!", []string{"electricity", "consumer"}},
		{"", nil},
		{"  ab  cd  efg  ", []string{"efg"}},
	}
	for _, tt := range tests {
		got := BuildSearchTerms(tt.input)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("BuildSearchTerms(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestSearchActivities(t *testing.T) {
	d := setupTestDB(t)
	insertActivity(t, d, 1, "steel", "Steel production", TypeProcess)
	insertActivity(t, d, 2, "steel_recycled", "Recycled steel production", TypeProcess)
	insertActivity(t, d, 3, "power", "Electricity; at consumer", TypeProcess)
	insertActivity(t, d, 4, "co2", "Steel carbon dioxide", TypeEmission)

	got, err := d.SearchActivities("recycled steel", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Code != "steel_recycled" {
		t.Errorf("best match should be steel_recycled, got %s", got[0].Code)
	}

	empty, err := d.SearchActivities("of the", 10)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_a\b`); got != `50\%\_a\\b` {
		t.Errorf("escapeLike = %q", got)
	}
}
