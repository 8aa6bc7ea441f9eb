package ledger

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// Base is the immutable term-set a contract was signed with.
type Base struct {
	Items   []model.ContractItem
	EndDate time.Time
}

// BaseOf copies the stored base terms of c.
func BaseOf(c *model.Contract) Base {
	return Base{
		Items:   model.CloneItems(c.Items),
		EndDate: DateOnly(c.EndDate),
	}
}

// State is the effective term-set obtained by folding active annexes onto
// a base.
type State struct {
	Items   []model.ContractItem `json:"items"`
	EndDate time.Time            `json:"end_date"`
	// Applied lists the codes of the folded annexes in fold order.
	Applied []string `json:"applied_annexes"`
}

func (s State) ItemIDs() ItemSet {
	set := make(ItemSet, len(s.Items))
	for _, item := range s.Items {
		set[item.MedicineID] = struct{}{}
	}
	return set
}

func (s State) Price(id model.MedicineID) (decimal.Decimal, bool) {
	for _, item := range s.Items {
		if item.MedicineID == id {
			return item.UnitPrice, true
		}
	}
	return decimal.Decimal{}, false
}

// Reconstruct folds the eligible annexes onto base. An annex is eligible
// when it is active and, if asOf is set, signed on or before asOf. The
// result is recomputed from scratch on every call.
func Reconstruct(base Base, annexes []model.Annex, asOf *time.Time) State {
	var cutoff time.Time
	if asOf != nil {
		cutoff = DateOnly(*asOf)
	}

	eligible := make([]model.Annex, 0, len(annexes))
	for _, annex := range annexes {
		if annex.Status != model.AnnexStatusActive {
			continue
		}
		if asOf != nil && DateOnly(annex.SignedDate).After(cutoff) {
			continue
		}
		eligible = append(eligible, annex)
	}
	sortBySignedDate(eligible)

	state := State{
		Items:   model.CloneItems(base.Items),
		EndDate: DateOnly(base.EndDate),
		Applied: make([]string, 0, len(eligible)),
	}
	for _, annex := range eligible {
		state.apply(annex.Changes)
		state.Applied = append(state.Applied, annex.Code)
	}
	return state
}

// Current returns the effective terms of c as of now.
func Current(c *model.Contract) State {
	return Reconstruct(BaseOf(c), c.Annexes, nil)
}

// AsOf returns the effective terms of c restricted to annexes signed on or
// before date.
func AsOf(c *model.Contract, date time.Time) State {
	return Reconstruct(BaseOf(c), c.Annexes, &date)
}

func (s *State) apply(cs model.ChangeSet) {
	present := s.ItemIDs()
	for _, add := range cs.AddItems {
		if present.Has(add.MedicineID) {
			continue
		}
		s.Items = append(s.Items, model.ContractItem{MedicineID: add.MedicineID, UnitPrice: add.UnitPrice})
		present[add.MedicineID] = struct{}{}
	}

	if len(cs.RemoveItems) > 0 {
		removed := make(ItemSet, len(cs.RemoveItems))
		for _, ref := range cs.RemoveItems {
			removed[ref.MedicineID] = struct{}{}
		}
		s.Items = slices.DeleteFunc(s.Items, func(item model.ContractItem) bool {
			return removed.Has(item.MedicineID)
		})
	}

	for _, upd := range cs.UpdatePrices {
		for i := range s.Items {
			if s.Items[i].MedicineID == upd.MedicineID {
				s.Items[i].UnitPrice = upd.UnitPrice
			}
		}
	}

	if cs.EndDateChange != nil {
		s.EndDate = DateOnly(*cs.EndDateChange)
	}
}

func sortBySignedDate(annexes []model.Annex) {
	slices.SortStableFunc(annexes, func(a, b model.Annex) int {
		return DateOnly(a.SignedDate).Compare(DateOnly(b.SignedDate))
	})
}

// lastSignedDate returns the greatest signed date among annexes, skipping
// the annex at index skip (pass -1 to consider all).
func lastSignedDate(annexes []model.Annex, skip int) *time.Time {
	var last *time.Time
	for i := range annexes {
		if i == skip {
			continue
		}
		signed := DateOnly(annexes[i].SignedDate)
		if last == nil || signed.After(*last) {
			last = &signed
		}
	}
	return last
}

// LatestAnnex returns the index of the most recently signed annex, or -1.
func LatestAnnex(c *model.Contract) int {
	latest := -1
	for i := range c.Annexes {
		if latest == -1 || !DateOnly(c.Annexes[i].SignedDate).Before(DateOnly(c.Annexes[latest].SignedDate)) {
			latest = i
		}
	}
	return latest
}
