package ledger

import (
	"fmt"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// ValidateChangeSet checks one change-set for duplicates within each
// sub-list and for consistency with the current effective item ids.
// Every offending entry produces its own violation.
//
// current must come from the reconstructed effective state, never from the
// contract's stored base items.
func ValidateChangeSet(cs model.ChangeSet, current ItemSet) []Violation {
	var out []Violation

	seen := make(ItemSet, len(cs.AddItems))
	for i, item := range cs.AddItems {
		field := fmt.Sprintf("add_items[%d]", i)
		if seen.Has(item.MedicineID) {
			out = append(out, duplicate(field, item.MedicineID, "add_items"))
			continue
		}
		seen[item.MedicineID] = struct{}{}
		if current.Has(item.MedicineID) {
			out = append(out, Violation{
				Code:       CodeMedicinePresent,
				Message:    fmt.Sprintf("%s already present in current effective state", item.MedicineID),
				Field:      field,
				MedicineID: item.MedicineID,
			})
		}
	}

	seen = make(ItemSet, len(cs.RemoveItems))
	for i, ref := range cs.RemoveItems {
		field := fmt.Sprintf("remove_items[%d]", i)
		if seen.Has(ref.MedicineID) {
			out = append(out, duplicate(field, ref.MedicineID, "remove_items"))
			continue
		}
		seen[ref.MedicineID] = struct{}{}
		if !current.Has(ref.MedicineID) {
			out = append(out, notPresent(field, ref.MedicineID))
		}
	}

	seen = make(ItemSet, len(cs.UpdatePrices))
	for i, item := range cs.UpdatePrices {
		field := fmt.Sprintf("update_prices[%d]", i)
		if seen.Has(item.MedicineID) {
			out = append(out, duplicate(field, item.MedicineID, "update_prices"))
			continue
		}
		seen[item.MedicineID] = struct{}{}
		if !current.Has(item.MedicineID) {
			out = append(out, notPresent(field, item.MedicineID))
		}
	}

	return out
}

// ValidateEntries checks the shape of individual change-set entries:
// medicine ids are set and prices are positive.
func ValidateEntries(cs model.ChangeSet) []Violation {
	var out []Violation
	check := func(list string, i int, id model.MedicineID) bool {
		if id == "" {
			out = append(out, Violation{
				Code:    CodeMissingMedicine,
				Message: fmt.Sprintf("%s[%d]: medicine_id is required", list, i),
				Field:   fmt.Sprintf("%s[%d]", list, i),
			})
			return false
		}
		return true
	}
	for i, item := range cs.AddItems {
		if check("add_items", i, item.MedicineID) && !item.UnitPrice.IsPositive() {
			out = append(out, invalidPrice(fmt.Sprintf("add_items[%d]", i), item.MedicineID))
		}
	}
	for i, ref := range cs.RemoveItems {
		check("remove_items", i, ref.MedicineID)
	}
	for i, item := range cs.UpdatePrices {
		if check("update_prices", i, item.MedicineID) && !item.UnitPrice.IsPositive() {
			out = append(out, invalidPrice(fmt.Sprintf("update_prices[%d]", i), item.MedicineID))
		}
	}
	return out
}

// ValidateNotEmpty rejects no-op amendments.
func ValidateNotEmpty(cs model.ChangeSet) []Violation {
	if !cs.IsEmpty() {
		return nil
	}
	return []Violation{{
		Code:    CodeEmptyChangeSet,
		Message: "annex must add, remove or re-price an item, or change the end date",
	}}
}

// ReferencedMedicines lists the medicine ids a change-set introduces or
// re-prices, the ids a catalog lookup has to confirm.
func ReferencedMedicines(cs model.ChangeSet) []model.MedicineID {
	ids := make([]model.MedicineID, 0, len(cs.AddItems)+len(cs.UpdatePrices))
	for _, item := range cs.AddItems {
		ids = append(ids, item.MedicineID)
	}
	for _, item := range cs.UpdatePrices {
		ids = append(ids, item.MedicineID)
	}
	return ids
}

func duplicate(field string, id model.MedicineID, list string) Violation {
	return Violation{
		Code:       CodeDuplicateMedicine,
		Message:    fmt.Sprintf("%s appears more than once in %s", id, list),
		Field:      field,
		MedicineID: id,
	}
}

func notPresent(field string, id model.MedicineID) Violation {
	return Violation{
		Code:       CodeMedicineNotPresent,
		Message:    fmt.Sprintf("%s not present in current effective state", id),
		Field:      field,
		MedicineID: id,
	}
}

func invalidPrice(field string, id model.MedicineID) Violation {
	return Violation{
		Code:       CodeInvalidPrice,
		Message:    fmt.Sprintf("%s: unit_price must be positive", id),
		Field:      field,
		MedicineID: id,
	}
}
