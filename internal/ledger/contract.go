package ledger

import (
	"fmt"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// ValidateContract checks the base terms of a contract and, for principal
// contracts, its bundled annexes.
func ValidateContract(c *model.Contract) []Violation {
	var out []Violation

	if c.Code == "" {
		out = append(out, Violation{Code: CodeMissingCode, Message: "contract code is required", Field: "code"})
	}
	switch c.Kind {
	case model.ContractKindEconomic, model.ContractKindPrincipal:
	default:
		out = append(out, Violation{Code: CodeInvalidKind, Message: fmt.Sprintf("unknown contract kind %q", c.Kind), Field: "kind"})
	}
	switch c.CounterpartyKind {
	case model.CounterpartySupplier, model.CounterpartyRetailer:
	default:
		out = append(out, Violation{Code: CodeInvalidKind, Message: fmt.Sprintf("unknown counterparty kind %q", c.CounterpartyKind), Field: "counterparty_kind"})
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() || !DateOnly(c.EndDate).After(DateOnly(c.StartDate)) {
		out = append(out, Violation{Code: CodeInvalidDates, Message: "end_date must be after start_date", Field: "end_date"})
	}

	seen := make(ItemSet, len(c.Items))
	for i, item := range c.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item.MedicineID == "" {
			out = append(out, Violation{Code: CodeMissingMedicine, Message: field + ": medicine_id is required", Field: field})
			continue
		}
		if seen.Has(item.MedicineID) {
			out = append(out, duplicate(field, item.MedicineID, "items"))
			continue
		}
		seen[item.MedicineID] = struct{}{}
		if !item.UnitPrice.IsPositive() {
			out = append(out, invalidPrice(field, item.MedicineID))
		}
		if c.Kind == model.ContractKindEconomic && (item.Quantity == nil || *item.Quantity <= 0) {
			out = append(out, Violation{
				Code:       CodeInvalidQuantity,
				Message:    fmt.Sprintf("%s: quantity must be positive for economic contracts", item.MedicineID),
				Field:      field,
				MedicineID: item.MedicineID,
			})
		}
	}

	if len(c.Annexes) > 0 {
		if c.Kind == model.ContractKindEconomic {
			out = append(out, economicAnnex())
		} else {
			out = append(out, ValidateBundle(c)...)
		}
	}
	return out
}

// CanEdit guards the general update path: only the owner edits, and only
// while the contract is draft or rejected.
func CanEdit(c *model.Contract, actor model.Principal) error {
	if !c.IsOwnedBy(actor.UserID) {
		return fmt.Errorf("%w: only the contract owner may modify it", ErrPermissionDenied)
	}
	if c.Status != model.ContractStatusDraft && c.Status != model.ContractStatusRejected {
		return fmt.Errorf("%w: contract is %s", ErrInvalidState, c.Status)
	}
	return nil
}

func economicAnnex() Violation {
	return Violation{
		Code:    CodeEconomicContract,
		Message: "economic contracts do not accept annexes",
		Field:   "annexes",
	}
}
