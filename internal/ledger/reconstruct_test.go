package ledger

import (
	"reflect"
	"testing"

	"github.com/nurpe/pharma-contracts/internal/model"
)

func TestReconstruct_AddsActiveAnnex(t *testing.T) {
	c := principalContract(t)
	c.Annexes = []model.Annex{
		annex(t, "A1", "2025-02-01", model.AnnexStatusActive, model.ChangeSet{AddItems: []model.PricedItem{priced("M2", 50)}}),
	}

	state := Current(c)
	if len(state.Items) != 2 {
		t.Fatalf("expected 2 items, got %+v", state.Items)
	}
	if state.Items[0].MedicineID != "M1" || itemPrice(t, state, "M1") != 100 {
		t.Errorf("unexpected first item %+v", state.Items[0])
	}
	if state.Items[1].MedicineID != "M2" || itemPrice(t, state, "M2") != 50 {
		t.Errorf("unexpected second item %+v", state.Items[1])
	}
	if !state.EndDate.Equal(day(t, "2025-12-31")) {
		t.Errorf("end date changed: %v", state.EndDate)
	}
	if !reflect.DeepEqual(state.Applied, []string{"A1"}) {
		t.Errorf("applied = %v", state.Applied)
	}
}

func TestReconstruct_SkipsPendingAnnexes(t *testing.T) {
	c := principalContract(t)
	c.Annexes = []model.Annex{
		annex(t, "A3", "2025-03-01", model.AnnexStatusDraft, model.ChangeSet{UpdatePrices: []model.PricedItem{priced("M1", 120)}}),
		annex(t, "A4", "2025-04-01", model.AnnexStatusRejected, model.ChangeSet{RemoveItems: []model.MedicineRef{ref("M1")}}),
	}

	if got := itemPrice(t, Current(c), "M1"); got != 100 {
		t.Fatalf("draft annex must not fold: M1=%d", got)
	}

	c.Annexes[0].Status = model.AnnexStatusActive
	if got := itemPrice(t, Current(c), "M1"); got != 120 {
		t.Fatalf("activated annex must fold: M1=%d", got)
	}
}

func TestReconstruct_AppliesChangesInSignedOrder(t *testing.T) {
	c := principalContract(t)
	// Stored out of order on purpose; the fold sorts by signed date.
	c.Annexes = []model.Annex{
		annex(t, "A2", "2025-04-01", model.AnnexStatusActive, model.ChangeSet{
			RemoveItems:   []model.MedicineRef{ref("M2")},
			UpdatePrices:  []model.PricedItem{priced("M1", 90)},
			EndDateChange: dayPtr(t, "2026-06-30"),
		}),
		annex(t, "A1", "2025-02-01", model.AnnexStatusActive, model.ChangeSet{
			AddItems:     []model.PricedItem{priced("M2", 50), priced("M3", 30)},
			UpdatePrices: []model.PricedItem{priced("M1", 110)},
		}),
	}

	state := Current(c)
	ids := make([]model.MedicineID, 0, len(state.Items))
	for _, item := range state.Items {
		ids = append(ids, item.MedicineID)
	}
	if !reflect.DeepEqual(ids, []model.MedicineID{"M1", "M3"}) {
		t.Fatalf("items = %v", ids)
	}
	if got := itemPrice(t, state, "M1"); got != 90 {
		t.Errorf("M1 = %d, want 90", got)
	}
	if !state.EndDate.Equal(day(t, "2026-06-30")) {
		t.Errorf("end date = %v", state.EndDate)
	}
	if !reflect.DeepEqual(state.Applied, []string{"A1", "A2"}) {
		t.Errorf("applied = %v", state.Applied)
	}
}

func TestReconstruct_AsOf(t *testing.T) {
	c := principalContract(t)
	c.Annexes = []model.Annex{
		annex(t, "A1", "2025-02-01", model.AnnexStatusActive, model.ChangeSet{AddItems: []model.PricedItem{priced("M2", 50)}}),
		annex(t, "A2", "2025-03-01", model.AnnexStatusActive, model.ChangeSet{UpdatePrices: []model.PricedItem{priced("M2", 60)}}),
	}

	tests := []struct {
		name  string
		asOf  string
		items int
		m2    int64
	}{
		{"before any annex", "2025-01-31", 1, 0},
		{"on first signing date", "2025-02-01", 2, 50},
		{"between annexes", "2025-02-20", 2, 50},
		{"after all annexes", "2025-03-15", 2, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := AsOf(c, day(t, tt.asOf))
			if len(state.Items) != tt.items {
				t.Fatalf("items = %+v", state.Items)
			}
			if tt.m2 != 0 && itemPrice(t, state, "M2") != tt.m2 {
				t.Errorf("M2 = %d, want %d", itemPrice(t, state, "M2"), tt.m2)
			}
		})
	}
}

func TestReconstruct_Deterministic(t *testing.T) {
	c := principalContract(t)
	c.Annexes = []model.Annex{
		annex(t, "A1", "2025-02-01", model.AnnexStatusActive, model.ChangeSet{AddItems: []model.PricedItem{priced("M2", 50)}}),
		annex(t, "A2", "2025-03-01", model.AnnexStatusActive, model.ChangeSet{RemoveItems: []model.MedicineRef{ref("M1")}}),
	}

	first := Current(c)
	for i := 0; i < 5; i++ {
		if got := Current(c); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
	if len(c.Items) != 1 || c.Items[0].MedicineID != "M1" {
		t.Fatalf("base items were mutated: %+v", c.Items)
	}
}

func TestReconstruct_NoDuplicateItems(t *testing.T) {
	c := principalContract(t)
	// A2 re-adds M2 without a removal; the fold skips it.
	c.Annexes = []model.Annex{
		annex(t, "A1", "2025-02-01", model.AnnexStatusActive, model.ChangeSet{AddItems: []model.PricedItem{priced("M2", 50)}}),
		annex(t, "A2", "2025-03-01", model.AnnexStatusActive, model.ChangeSet{AddItems: []model.PricedItem{priced("M2", 70), priced("M1", 1)}}),
	}

	state := Current(c)
	seen := make(map[model.MedicineID]bool)
	for _, item := range state.Items {
		if seen[item.MedicineID] {
			t.Fatalf("duplicate %s in %+v", item.MedicineID, state.Items)
		}
		seen[item.MedicineID] = true
	}
	if itemPrice(t, state, "M2") != 50 {
		t.Errorf("existing item must keep its price")
	}
}

func TestLatestAnnex(t *testing.T) {
	c := principalContract(t)
	if LatestAnnex(c) != -1 {
		t.Fatal("expected -1 for no annexes")
	}
	c.Annexes = []model.Annex{
		annex(t, "A1", "2025-02-01", model.AnnexStatusActive, model.ChangeSet{}),
		annex(t, "A3", "2025-05-01", model.AnnexStatusDraft, model.ChangeSet{}),
		annex(t, "A2", "2025-03-01", model.AnnexStatusActive, model.ChangeSet{}),
	}
	if got := LatestAnnex(c); got != 1 {
		t.Fatalf("latest = %d, want 1", got)
	}
}
