package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ContractKind string

const (
	// ContractKindEconomic contracts carry quantities and never accept annexes.
	ContractKindEconomic  ContractKind = "economic"
	ContractKindPrincipal ContractKind = "principal"
)

type CounterpartyKind string

const (
	CounterpartySupplier CounterpartyKind = "Supplier"
	CounterpartyRetailer CounterpartyKind = "Retailer"
)

type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "draft"
	ContractStatusActive    ContractStatus = "active"
	ContractStatusRejected  ContractStatus = "rejected"
	ContractStatusCancelled ContractStatus = "cancelled"
	ContractStatusExpired   ContractStatus = "expired"
)

// MedicineID references an entry of the medicine catalog.
type MedicineID string

type ContractItem struct {
	MedicineID MedicineID      `json:"medicine_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   *int64          `json:"quantity,omitempty"` // economic contracts only
}

type Contract struct {
	ID               uuid.UUID
	Code             string
	Kind             ContractKind
	CounterpartyID   uuid.UUID
	CounterpartyKind CounterpartyKind
	StartDate        time.Time
	EndDate          time.Time
	Items            []ContractItem
	Status           ContractStatus
	Annexes          []Annex
	OwnerID          uuid.UUID
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy so callers can mutate a candidate state and
// discard it when validation fails.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = CloneItems(c.Items)
	out.Annexes = make([]Annex, len(c.Annexes))
	for i := range c.Annexes {
		out.Annexes[i] = c.Annexes[i].Clone()
	}
	return &out
}

func (c *Contract) IsOwnedBy(userID uuid.UUID) bool {
	return c.OwnerID != uuid.Nil && c.OwnerID == userID
}

// AnnexIndex returns the position of the annex with the given code or -1.
func (c *Contract) AnnexIndex(code string) int {
	for i := range c.Annexes {
		if c.Annexes[i].Code == code {
			return i
		}
	}
	return -1
}

func CloneItems(items []ContractItem) []ContractItem {
	out := make([]ContractItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Quantity != nil {
			q := *item.Quantity
			out[i].Quantity = &q
		}
	}
	return out
}
