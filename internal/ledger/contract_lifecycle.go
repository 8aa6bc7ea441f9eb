package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// contractTransitions is the contract state machine. A rejected contract
// returns to draft through an owner update, not through a decision.
var contractTransitions = map[model.ContractStatus][]model.ContractStatus{
	model.ContractStatusDraft:  {model.ContractStatusActive, model.ContractStatusRejected},
	model.ContractStatusActive: {model.ContractStatusCancelled, model.ContractStatusExpired},
}

// ContractTransition reports whether a contract may move from one status
// to another.
func ContractTransition(from, to model.ContractStatus) error {
	if from == to {
		return fmt.Errorf("%w: contract is already %s", ErrInvalidState, from)
	}
	if !slices.Contains(contractTransitions[from], to) {
		return fmt.Errorf("%w: contract cannot move from %s to %s", ErrInvalidState, from, to)
	}
	return nil
}

// DecideContract applies a manager decision and returns the resulting
// contract. c is never modified. Approving a draft re-validates the whole
// annex bundle and activates every attached annex in the same result; if
// any annex fails, nothing changes.
func DecideContract(c *model.Contract, decision model.ContractStatus, actor model.Principal, now time.Time) (*model.Contract, error) {
	switch decision {
	case model.ContractStatusActive, model.ContractStatusRejected, model.ContractStatusCancelled:
	default:
		return nil, Invalid([]Violation{{
			Code:    CodeInvalidDecision,
			Message: fmt.Sprintf("decision must be active, rejected or cancelled, got %q", decision),
			Field:   "decision",
		}})
	}
	if !actor.IsManager() {
		return nil, fmt.Errorf("%w: role %s required to decide a contract", ErrPermissionDenied, model.RoleManager)
	}
	if err := ContractTransition(c.Status, decision); err != nil {
		return nil, err
	}

	next := c.Clone()
	if decision == model.ContractStatusActive {
		if err := activateBundle(next, now); err != nil {
			return nil, err
		}
	}
	next.Status = decision
	next.UpdatedAt = now
	return next, nil
}

// activateBundle validates and activates the annexes attached to a draft
// contract. It mutates c only when the whole bundle is valid.
func activateBundle(c *model.Contract, now time.Time) error {
	if c.Status != model.ContractStatusDraft {
		return fmt.Errorf("%w: bundle activation requires a draft contract, got %s", ErrInvalidState, c.Status)
	}
	if len(c.Annexes) == 0 {
		return nil
	}
	if c.Kind == model.ContractKindEconomic {
		return Invalid([]Violation{economicAnnex()})
	}
	if vs := ValidateBundle(c); len(vs) > 0 {
		return Invalid(vs)
	}
	for i := range c.Annexes {
		c.Annexes[i].Status = model.AnnexStatusActive
		c.Annexes[i].UpdatedAt = now
	}
	return nil
}

// Expire moves an active contract to expired once its effective end date
// lies before asOf. It reports whether the contract changed.
func Expire(c *model.Contract, asOf time.Time) (*model.Contract, bool) {
	if c.Status != model.ContractStatusActive {
		return c, false
	}
	if !Current(c).EndDate.Before(DateOnly(asOf)) {
		return c, false
	}
	next := c.Clone()
	next.Status = model.ContractStatusExpired
	next.UpdatedAt = asOf
	return next, true
}
