package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// annexTransitions is the individual annex state machine. Bundle
// activation bypasses it on purpose: see activateBundle.
var annexTransitions = map[model.AnnexStatus][]model.AnnexStatus{
	model.AnnexStatusDraft:    {model.AnnexStatusActive, model.AnnexStatusRejected},
	model.AnnexStatusRejected: {model.AnnexStatusDraft},
}

func AnnexTransition(from, to model.AnnexStatus) error {
	if from == to {
		return fmt.Errorf("%w: annex is already %s", ErrInvalidState, from)
	}
	if !slices.Contains(annexTransitions[from], to) {
		return fmt.Errorf("%w: annex cannot move from %s to %s", ErrInvalidState, from, to)
	}
	return nil
}

// acceptsAnnexes is true for contracts whose annexes can be decided.
func acceptsAnnexes(status model.ContractStatus) bool {
	return status == model.ContractStatusActive || status == model.ContractStatusExpired
}

// DecideAnnex records a manager decision on a draft annex. An activated
// annex takes part in reconstruction immediately.
func DecideAnnex(c *model.Contract, code string, decision model.AnnexStatus, actor model.Principal, now time.Time) (*model.Contract, error) {
	if decision != model.AnnexStatusActive && decision != model.AnnexStatusRejected {
		return nil, Invalid([]Violation{{
			Code:      CodeInvalidDecision,
			Message:   fmt.Sprintf("decision must be active or rejected, got %q", decision),
			Field:     "decision",
			AnnexCode: code,
		}})
	}
	idx := c.AnnexIndex(code)
	if idx < 0 {
		return nil, fmt.Errorf("%w: annex %s", ErrNotFound, code)
	}
	if !actor.IsManager() {
		return nil, fmt.Errorf("%w: role %s required to decide annex %s", ErrPermissionDenied, model.RoleManager, code)
	}
	if !acceptsAnnexes(c.Status) {
		return nil, fmt.Errorf("%w: annexes of a %s contract cannot be decided", ErrInvalidState, c.Status)
	}
	if err := AnnexTransition(c.Annexes[idx].Status, decision); err != nil {
		return nil, fmt.Errorf("annex %s: %w", code, err)
	}

	next := c.Clone()
	next.Annexes[idx].Status = decision
	next.Annexes[idx].UpdatedAt = now
	next.UpdatedAt = now
	return next, nil
}

// checkCanPropose enforces the preconditions of a new proposal: a
// principal contract that is active or expired, with no pending annex.
func checkCanPropose(c *model.Contract) error {
	if c.Kind == model.ContractKindEconomic {
		return Invalid([]Violation{economicAnnex()})
	}
	if !acceptsAnnexes(c.Status) {
		return fmt.Errorf("%w: annexes cannot be proposed on a %s contract", ErrInvalidState, c.Status)
	}
	var out []Violation
	for _, annex := range c.Annexes {
		if annex.Status != model.AnnexStatusActive {
			out = append(out, Violation{
				Code:      CodePendingAnnex,
				Message:   fmt.Sprintf("annex %s is still %s", annex.Code, annex.Status),
				AnnexCode: annex.Code,
			})
		}
	}
	return Invalid(out)
}

// checkCanModify guards revise and withdraw of the annex at idx.
func checkCanModify(c *model.Contract, idx int, actor model.Principal) error {
	annex := c.Annexes[idx]
	if annex.OwnerID != actor.UserID {
		return fmt.Errorf("%w: only the owner of annex %s may modify it", ErrPermissionDenied, annex.Code)
	}
	if annex.Bundled && !acceptsAnnexes(c.Status) {
		return Invalid([]Violation{{
			Code:      CodeBundledAnnex,
			Message:   fmt.Sprintf("annex %s is bundled with the contract and changes only through the contract", annex.Code),
			AnnexCode: annex.Code,
		}})
	}
	if !annex.IsPending() {
		return fmt.Errorf("%w: annex %s is %s", ErrInvalidState, annex.Code, annex.Status)
	}
	return nil
}
