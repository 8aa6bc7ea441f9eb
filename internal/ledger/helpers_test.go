package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/pharma-contracts/internal/model"
)

var (
	ownerID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	managerID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	owner     = model.Principal{UserID: ownerID, Role: model.RoleEmployee}
	manager   = model.Principal{UserID: managerID, Role: model.RoleManager}
	now       = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func dayPtr(t *testing.T, s string) *time.Time {
	d := day(t, s)
	return &d
}

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func priced(id string, v int64) model.PricedItem {
	return model.PricedItem{MedicineID: model.MedicineID(id), UnitPrice: price(v)}
}

func ref(id string) model.MedicineRef {
	return model.MedicineRef{MedicineID: model.MedicineID(id)}
}

// principalContract returns an active principal contract with base items
// [(M1, 100)] running from 2025-01-01 to 2025-12-31.
func principalContract(t *testing.T) *model.Contract {
	t.Helper()
	return &model.Contract{
		ID:               uuid.New(),
		Code:             "PC-1",
		Kind:             model.ContractKindPrincipal,
		CounterpartyID:   uuid.New(),
		CounterpartyKind: model.CounterpartySupplier,
		StartDate:        day(t, "2025-01-01"),
		EndDate:          day(t, "2025-12-31"),
		Items:            []model.ContractItem{{MedicineID: "M1", UnitPrice: price(100)}},
		Status:           model.ContractStatusActive,
		OwnerID:          ownerID,
	}
}

func annex(t *testing.T, code, signed string, status model.AnnexStatus, cs model.ChangeSet) model.Annex {
	t.Helper()
	return model.Annex{
		ID:         uuid.New(),
		Code:       code,
		SignedDate: day(t, signed),
		Changes:    cs,
		Status:     status,
		OwnerID:    ownerID,
	}
}

func hasCode(vs []Violation, code string) bool {
	for _, v := range vs {
		if v.Code == code {
			return true
		}
	}
	return false
}

func itemPrice(t *testing.T, s State, id string) int64 {
	t.Helper()
	p, ok := s.Price(model.MedicineID(id))
	if !ok {
		t.Fatalf("medicine %s not in effective state %+v", id, s.Items)
	}
	return p.IntPart()
}
