package service

import (
	"context"
	"fmt"

	"github.com/nurpe/pharma-contracts/internal/ledger"
	"github.com/nurpe/pharma-contracts/internal/model"
)

type medicineRef struct {
	id    model.MedicineID
	field string
	annex string
}

func annexRefs(code string, cs model.ChangeSet) []medicineRef {
	refs := make([]medicineRef, 0, len(cs.AddItems)+len(cs.UpdatePrices))
	for i, item := range cs.AddItems {
		refs = append(refs, medicineRef{id: item.MedicineID, field: fmt.Sprintf("add_items[%d]", i), annex: code})
	}
	for i, item := range cs.UpdatePrices {
		refs = append(refs, medicineRef{id: item.MedicineID, field: fmt.Sprintf("update_prices[%d]", i), annex: code})
	}
	return refs
}

// unknownMedicines asks the catalog about every referenced id and reports
// the ones it does not know. Empty ids are left to the ledger validators.
func (s *ContractService) unknownMedicines(ctx context.Context, refs []medicineRef) ([]ledger.Violation, error) {
	ids := make([]model.MedicineID, 0, len(refs))
	asked := make(ledger.ItemSet, len(refs))
	for _, ref := range refs {
		if ref.id == "" || asked.Has(ref.id) {
			continue
		}
		asked[ref.id] = struct{}{}
		ids = append(ids, ref.id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := s.medicines.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("medicine lookup: %w", err)
	}
	known := ledger.NewItemSet(found...)

	var out []ledger.Violation
	for _, ref := range refs {
		if ref.id == "" || known.Has(ref.id) {
			continue
		}
		out = append(out, ledger.Violation{
			Code:       ledger.CodeUnknownMedicine,
			Message:    fmt.Sprintf("%s is not a known medicine", ref.id),
			Field:      ref.field,
			MedicineID: ref.id,
			AnnexCode:  ref.annex,
		})
	}
	return out, nil
}
