package repository

import (
	"github.com/google/uuid"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// ContractFilter narrows List queries. Zero fields match everything.
type ContractFilter struct {
	Status         model.ContractStatus
	Kind           model.ContractKind
	CounterpartyID uuid.UUID
	Limit          int
	Offset         int
}

func (f ContractFilter) matches(c *model.Contract) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Kind != "" && c.Kind != f.Kind {
		return false
	}
	if f.CounterpartyID != uuid.Nil && c.CounterpartyID != f.CounterpartyID {
		return false
	}
	return true
}
