package registry

import (
	"errors"
	"testing"

	"github.com/powergrid-labs/blackoutd/core/model"
)

func catalog() []model.Zone {
	return []model.Zone{
		{ID: "z_hospital", Priority: model.PriorityCritical, CapacityMW: 40, CurrentLoadMW: 35},
		{ID: "z_airport", Priority: model.PriorityHigh, CapacityMW: 100, CurrentLoadMW: 80},
		{ID: "z_homes", Priority: model.PriorityLow, CapacityMW: 100, CurrentLoadMW: 90},
	}
}

func TestNewDefaultsToFullPower(t *testing.T) {
	r, err := New(catalog())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	z, err := r.Get("z_hospital")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if z.AllocationPercent != 100 || z.State != model.FullPower {
		t.Fatalf("expected full power defaults, got alloc=%v state=%v", z.AllocationPercent, z.State)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	zones := catalog()
	zones = append(zones, model.Zone{ID: "z_hospital", CapacityMW: 5})
	if _, err := New(zones); err == nil {
		t.Fatal("duplicate zone id accepted")
	}
}

func TestNewRejectsInvalidZone(t *testing.T) {
	if _, err := New([]model.Zone{{ID: "bad"}}); err == nil {
		t.Fatal("zero-capacity zone accepted")
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r, err := New(catalog())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := r.List()
	want := []string{"z_hospital", "z_airport", "z_homes"}
	if len(got) != len(want) {
		t.Fatalf("expected %d zones got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s got %s", i, id, got[i].ID)
		}
	}
}

func TestUpdateRecomputesState(t *testing.T) {
	r, err := New(catalog())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	z, err := r.Update("z_airport", func(z *model.Zone) {
		z.AllocationPercent = 70
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if z.State != model.ReducedPower {
		t.Fatalf("expected REDUCED_POWER got %v", z.State)
	}

	stored, _ := r.Get("z_airport")
	if stored.AllocationPercent != 70 {
		t.Fatalf("update not persisted: %v", stored.AllocationPercent)
	}
}

func TestUnknownZone(t *testing.T) {
	r, err := New(catalog())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := r.Get("z_missing"); !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone got %v", err)
	}
	if _, err := r.Update("z_missing", func(z *model.Zone) {}); !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone got %v", err)
	}
	if r.Has("z_missing") {
		t.Fatal("Has reported missing zone")
	}
}

func TestListReturnsCopies(t *testing.T) {
	r, err := New(catalog())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	zones := r.List()
	zones[0].AllocationPercent = 5
	stored, _ := r.Get(zones[0].ID)
	if stored.AllocationPercent != 100 {
		t.Fatal("List exposed internal state")
	}
}
