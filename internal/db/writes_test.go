package db

import (
	"testing"
)

func TestEnsureActivity_CreatesOnce(t *testing.T) {
	d := setupTestDB(t)

	id, created, err := d.EnsureActivity("steel", "Steel", CreateActivityOpts{Unit: "kg"})
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first call should create")
	}

	again, created, err := d.EnsureActivity("steel", "Other name", CreateActivityOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if created || again != id {
		t.Errorf("second call should reuse id %d, got %d (created=%v)", id, again, created)
	}

	a, err := d.GetActivity(id)
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "Steel" || a.Unit != "kg" || a.Type != TypeProcess {
		t.Errorf("unexpected activity: %+v", a)
	}
}

func TestCreateActivity_EmptyCode(t *testing.T) {
	d := setupTestDB(t)
	if _, err := d.CreateActivity("", "x", CreateActivityOpts{}); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestRevision_ChangesOnWrite(t *testing.T) {
	d := setupTestDB(t)
	r0, err := d.Revision()
	if err != nil {
		t.Fatal(err)
	}
	if r0 != 0 {
		t.Errorf("fresh database revision = %d, want 0", r0)
	}
	if _, err := d.CreateActivity("a", "A", CreateActivityOpts{}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateActivity("b", "B", CreateActivityOpts{}); err != nil {
		t.Fatal(err)
	}
	r2, err := d.Revision()
	if err != nil {
		t.Fatal(err)
	}
	if r2 != 2 {
		t.Errorf("revision after two writes = %d, want 2", r2)
	}
}

func TestSeedDefaults(t *testing.T) {
	d := setupTestDB(t)
	if err := d.SeedDefaults(); err != nil {
		t.Fatal(err)
	}
	// Seeding twice must not fail or duplicate.
	if err := d.SeedDefaults(); err != nil {
		t.Fatal(err)
	}
	n, err := d.CountActivities(TypeEmission)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 emission flow, got %d", n)
	}
	methods, err := d.Methods()
	if err != nil {
		t.Fatal(err)
	}
	if len(methods) != 1 || methods[0] != "IPCC" {
		t.Errorf("expected [IPCC], got %v", methods)
	}
}

func TestSetCharacterizationFactor_Replaces(t *testing.T) {
	d := setupTestDB(t)
	insertActivity(t, d, 1, "p", "Process", TypeProcess)
	insertActivity(t, d, 2, "co2", "CO2", TypeEmission)
	insertExchange(t, d, 1, 2, ExchangeBiosphere, 1)
	if err := d.SetCharacterizationFactor("GCC", 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := d.SetCharacterizationFactor("GCC", 2, 5); err != nil {
		t.Fatal(err)
	}
	direct, err := d.CharacterizedDirect("GCC")
	if err != nil {
		t.Fatal(err)
	}
	if direct[1] != 5 {
		t.Errorf("expected replaced factor 5, got %v", direct[1])
	}
}
