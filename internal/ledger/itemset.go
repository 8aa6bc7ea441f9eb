package ledger

import "github.com/nurpe/pharma-contracts/internal/model"

// ItemSet is the set of medicine ids present in an item list.
type ItemSet map[model.MedicineID]struct{}

func NewItemSet(ids ...model.MedicineID) ItemSet {
	set := make(ItemSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s ItemSet) Has(id model.MedicineID) bool {
	_, ok := s[id]
	return ok
}
