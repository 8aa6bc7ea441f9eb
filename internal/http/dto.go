package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/pharma-contracts/internal/model"
	"github.com/nurpe/pharma-contracts/internal/service"
)

type itemRequest struct {
	MedicineID string          `json:"medicine_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   *int64          `json:"quantity"`
}

type pricedRequest struct {
	MedicineID string          `json:"medicine_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type medicineRefRequest struct {
	MedicineID string `json:"medicine_id"`
}

type changeSetRequest struct {
	AddItems      []pricedRequest      `json:"add_items"`
	RemoveItems   []medicineRefRequest `json:"remove_items"`
	UpdatePrices  []pricedRequest      `json:"update_prices"`
	EndDateChange *string              `json:"end_date_change" binding:"omitempty,date"`
}

type annexRequest struct {
	Code       string `json:"code"`
	SignedDate string `json:"signed_date" binding:"required,date"`
	changeSetRequest
}

type contractRequest struct {
	Code             string         `json:"code" binding:"required"`
	Kind             string         `json:"kind" binding:"required,oneof=economic principal"`
	CounterpartyID   string         `json:"counterparty_id" binding:"required,uuid"`
	CounterpartyKind string         `json:"counterparty_kind" binding:"required,oneof=Supplier Retailer"`
	StartDate        string         `json:"start_date" binding:"required,date"`
	EndDate          string         `json:"end_date" binding:"required,date"`
	Items            []itemRequest  `json:"items"`
	Annexes          []annexRequest `json:"annexes" binding:"omitempty,dive"`
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

type expireRequest struct {
	AsOf string `json:"as_of" binding:"omitempty,date"`
}

type listContractsQuery struct {
	Status         string `form:"status" binding:"omitempty,oneof=draft active rejected cancelled expired"`
	Kind           string `form:"kind" binding:"omitempty,oneof=economic principal"`
	CounterpartyID string `form:"counterparty_id" binding:"omitempty,uuid"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
}

// Binding has already checked the date layouts, so parse errors are not
// possible past this point.
func mustDate(raw string) time.Time {
	t, _ := time.Parse(dateLayout, raw)
	return t
}

func (r contractRequest) toInput() service.ContractInput {
	input := service.ContractInput{
		Code:             r.Code,
		Kind:             model.ContractKind(r.Kind),
		CounterpartyID:   uuid.MustParse(r.CounterpartyID),
		CounterpartyKind: model.CounterpartyKind(r.CounterpartyKind),
		StartDate:        mustDate(r.StartDate),
		EndDate:          mustDate(r.EndDate),
		Items:            make([]model.ContractItem, len(r.Items)),
		Annexes:          make([]model.AnnexDraft, len(r.Annexes)),
	}
	for i, item := range r.Items {
		input.Items[i] = model.ContractItem{
			MedicineID: model.MedicineID(item.MedicineID),
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}
	for i, annex := range r.Annexes {
		input.Annexes[i] = annex.toDraft()
	}
	return input
}

func (r annexRequest) toDraft() model.AnnexDraft {
	return model.AnnexDraft{
		Code:       r.Code,
		SignedDate: mustDate(r.SignedDate),
		Changes:    r.changeSetRequest.toChangeSet(),
	}
}

func (r changeSetRequest) toChangeSet() model.ChangeSet {
	var cs model.ChangeSet
	for _, item := range r.AddItems {
		cs.AddItems = append(cs.AddItems, model.PricedItem{MedicineID: model.MedicineID(item.MedicineID), UnitPrice: item.UnitPrice})
	}
	for _, item := range r.RemoveItems {
		cs.RemoveItems = append(cs.RemoveItems, model.MedicineRef{MedicineID: model.MedicineID(item.MedicineID)})
	}
	for _, item := range r.UpdatePrices {
		cs.UpdatePrices = append(cs.UpdatePrices, model.PricedItem{MedicineID: model.MedicineID(item.MedicineID), UnitPrice: item.UnitPrice})
	}
	if r.EndDateChange != nil {
		end := mustDate(*r.EndDateChange)
		cs.EndDateChange = &end
	}
	return cs
}

type annexResponse struct {
	ID         uuid.UUID       `json:"id"`
	Code       string          `json:"code"`
	SignedDate string          `json:"signed_date"`
	Status     string          `json:"status"`
	Bundled    bool            `json:"bundled"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Changes    model.ChangeSet `json:"changes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type contractResponse struct {
	ID               uuid.UUID            `json:"id"`
	Code             string               `json:"code"`
	Kind             string               `json:"kind"`
	CounterpartyID   uuid.UUID            `json:"counterparty_id"`
	CounterpartyKind string               `json:"counterparty_kind"`
	StartDate        string               `json:"start_date"`
	EndDate          string               `json:"end_date"`
	Status           string               `json:"status"`
	Items            []model.ContractItem `json:"items"`
	Annexes          []annexResponse      `json:"annexes"`
	OwnerID          uuid.UUID            `json:"owner_id"`
	Version          int64                `json:"version"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type effectiveStateResponse struct {
	ContractID     uuid.UUID            `json:"contract_id"`
	AsOf           *string              `json:"as_of"`
	Items          []model.ContractItem `json:"items"`
	EndDate        string               `json:"end_date"`
	AppliedAnnexes []string             `json:"applied_annexes"`
}

func newAnnexResponse(a model.Annex) annexResponse {
	return annexResponse{
		ID:         a.ID,
		Code:       a.Code,
		SignedDate: a.SignedDate.Format(dateLayout),
		Status:     string(a.Status),
		Bundled:    a.Bundled,
		OwnerID:    a.OwnerID,
		Changes:    a.Changes,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func newContractResponse(c *model.Contract) contractResponse {
	resp := contractResponse{
		ID:               c.ID,
		Code:             c.Code,
		Kind:             string(c.Kind),
		CounterpartyID:   c.CounterpartyID,
		CounterpartyKind: string(c.CounterpartyKind),
		StartDate:        c.StartDate.Format(dateLayout),
		EndDate:          c.EndDate.Format(dateLayout),
		Status:           string(c.Status),
		Items:            c.Items,
		Annexes:          make([]annexResponse, len(c.Annexes)),
		OwnerID:          c.OwnerID,
		Version:          c.Version,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if resp.Items == nil {
		resp.Items = []model.ContractItem{}
	}
	for i, a := range c.Annexes {
		resp.Annexes[i] = newAnnexResponse(a)
	}
	return resp
}

func newEffectiveStateResponse(s *service.EffectiveState) effectiveStateResponse {
	resp := effectiveStateResponse{
		ContractID:     s.ContractID,
		Items:          s.Items,
		EndDate:        s.EndDate.Format(dateLayout),
		AppliedAnnexes: s.Applied,
	}
	if s.AsOf != nil {
		asOf := s.AsOf.Format(dateLayout)
		resp.AsOf = &asOf
	}
	if resp.Items == nil {
		resp.Items = []model.ContractItem{}
	}
	if resp.AppliedAnnexes == nil {
		resp.AppliedAnnexes = []string{}
	}
	return resp
}
