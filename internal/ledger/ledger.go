// Package ledger holds the contract amendment rules: change-set and
// temporal validation, the contract and annex state machines, and the fold
// that derives effective terms from a base contract plus its active
// annexes.
//
// Every function here is pure. Functions that change a contract return a
// new value and leave their input untouched, so a caller can discard the
// result when a later step fails.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// Propose validates draft against the current effective state of c and
// appends it as a draft annex owned by actor.
func Propose(c *model.Contract, draft model.AnnexDraft, actor model.Principal, now time.Time) (*model.Contract, model.Annex, error) {
	if err := checkCanPropose(c); err != nil {
		return nil, model.Annex{}, err
	}

	var vs []Violation
	vs = append(vs, validateAnnexCode(c, draft.Code, -1)...)
	vs = append(vs, ValidateSignedDate(draft.SignedDate, c.StartDate, lastSignedDate(c.Annexes, -1))...)
	vs = append(vs, validateDraftChanges(c, draft.Changes)...)
	if err := Invalid(withAnnex(vs, draft.Code)); err != nil {
		return nil, model.Annex{}, err
	}

	annex := model.Annex{
		ID:         uuid.New(),
		Code:       draft.Code,
		SignedDate: DateOnly(draft.SignedDate),
		Changes:    draft.Changes.Clone(),
		Status:     model.AnnexStatusDraft,
		OwnerID:    actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	next := c.Clone()
	next.Annexes = append(next.Annexes, annex)
	next.UpdatedAt = now
	return next, annex, nil
}

// Revise replaces the content of the most recently signed annex while it
// is pending. A rejected annex returns to draft.
func Revise(c *model.Contract, code string, draft model.AnnexDraft, actor model.Principal, now time.Time) (*model.Contract, model.Annex, error) {
	idx := c.AnnexIndex(code)
	if idx < 0 {
		return nil, model.Annex{}, fmt.Errorf("%w: annex %s", ErrNotFound, code)
	}
	if err := checkCanModify(c, idx, actor); err != nil {
		return nil, model.Annex{}, err
	}
	if !acceptsAnnexes(c.Status) {
		return nil, model.Annex{}, fmt.Errorf("%w: annexes of a %s contract cannot be revised", ErrInvalidState, c.Status)
	}
	if latest := LatestAnnex(c); latest != idx {
		return nil, model.Annex{}, Invalid([]Violation{{
			Code:      CodeNotLatestAnnex,
			Message:   fmt.Sprintf("annex %s is superseded by %s and can no longer be edited", code, c.Annexes[latest].Code),
			AnnexCode: code,
		}})
	}

	newCode := draft.Code
	if newCode == "" {
		newCode = code
	}

	var vs []Violation
	vs = append(vs, validateAnnexCode(c, newCode, idx)...)
	vs = append(vs, ValidateSignedDate(draft.SignedDate, c.StartDate, lastSignedDate(c.Annexes, idx))...)
	// The annex under revision is pending, so it contributes nothing to
	// the current state.
	vs = append(vs, validateDraftChanges(c, draft.Changes)...)
	if err := Invalid(withAnnex(vs, code)); err != nil {
		return nil, model.Annex{}, err
	}

	next := c.Clone()
	annex := &next.Annexes[idx]
	if annex.Status == model.AnnexStatusRejected {
		if err := AnnexTransition(annex.Status, model.AnnexStatusDraft); err != nil {
			return nil, model.Annex{}, err
		}
		annex.Status = model.AnnexStatusDraft
	}
	annex.Code = newCode
	annex.SignedDate = DateOnly(draft.SignedDate)
	annex.Changes = draft.Changes.Clone()
	annex.UpdatedAt = now
	next.UpdatedAt = now
	return next, *annex, nil
}

// Withdraw removes a pending annex at its owner's request.
func Withdraw(c *model.Contract, code string, actor model.Principal, now time.Time) (*model.Contract, error) {
	idx := c.AnnexIndex(code)
	if idx < 0 {
		return nil, fmt.Errorf("%w: annex %s", ErrNotFound, code)
	}
	if err := checkCanModify(c, idx, actor); err != nil {
		return nil, err
	}

	next := c.Clone()
	next.Annexes = append(next.Annexes[:idx], next.Annexes[idx+1:]...)
	next.UpdatedAt = now
	return next, nil
}

func validateDraftChanges(c *model.Contract, cs model.ChangeSet) []Violation {
	var vs []Violation
	vs = append(vs, ValidateNotEmpty(cs)...)
	vs = append(vs, ValidateEntries(cs)...)
	vs = append(vs, ValidateEndDateChange(cs.EndDateChange, c.StartDate)...)
	vs = append(vs, ValidateChangeSet(cs, Current(c).ItemIDs())...)
	return vs
}

func validateAnnexCode(c *model.Contract, code string, self int) []Violation {
	if code == "" {
		return []Violation{{Code: CodeMissingCode, Message: "annex code is required", Field: "code"}}
	}
	if idx := c.AnnexIndex(code); idx >= 0 && idx != self {
		return []Violation{{
			Code:    CodeDuplicateCode,
			Message: fmt.Sprintf("annex code %s already exists on contract %s", code, c.Code),
			Field:   "code",
		}}
	}
	return nil
}
