package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AnnexStatus string

const (
	AnnexStatusDraft    AnnexStatus = "draft"
	AnnexStatusActive   AnnexStatus = "active"
	AnnexStatusRejected AnnexStatus = "rejected"
)

type PricedItem struct {
	MedicineID MedicineID      `json:"medicine_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type MedicineRef struct {
	MedicineID MedicineID `json:"medicine_id"`
}

// ChangeSet is the delta an annex applies to the effective terms.
type ChangeSet struct {
	AddItems      []PricedItem  `json:"add_items,omitempty"`
	RemoveItems   []MedicineRef `json:"remove_items,omitempty"`
	UpdatePrices  []PricedItem  `json:"update_prices,omitempty"`
	EndDateChange *time.Time    `json:"end_date_change,omitempty"`
}

// IsEmpty reports whether the change-set would leave the contract untouched.
func (cs ChangeSet) IsEmpty() bool {
	return len(cs.AddItems) == 0 &&
		len(cs.RemoveItems) == 0 &&
		len(cs.UpdatePrices) == 0 &&
		cs.EndDateChange == nil
}

func (cs ChangeSet) Clone() ChangeSet {
	out := ChangeSet{
		AddItems:     append([]PricedItem(nil), cs.AddItems...),
		RemoveItems:  append([]MedicineRef(nil), cs.RemoveItems...),
		UpdatePrices: append([]PricedItem(nil), cs.UpdatePrices...),
	}
	if cs.EndDateChange != nil {
		end := *cs.EndDateChange
		out.EndDateChange = &end
	}
	return out
}

type Annex struct {
	ID         uuid.UUID
	Code       string
	SignedDate time.Time
	Changes    ChangeSet
	Status     AnnexStatus
	// Bundled annexes were attached when the contract was created and are
	// activated together with it.
	Bundled   bool
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Annex) Clone() Annex {
	a.Changes = a.Changes.Clone()
	return a
}

func (a Annex) IsPending() bool {
	return a.Status == AnnexStatusDraft || a.Status == AnnexStatusRejected
}

// AnnexDraft is the caller-supplied content of a new or revised annex.
type AnnexDraft struct {
	Code       string
	SignedDate time.Time
	Changes    ChangeSet
}
