package ledger

import (
	"fmt"
	"time"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// ValidateBundle validates the annexes attached to c as one unit: signed
// dates form a strictly increasing chain in append order starting no
// earlier than the contract start, and every annex is checked against the
// state produced by folding all prior annexes of the bundle.
func ValidateBundle(c *model.Contract) []Violation {
	var out []Violation

	codes := make(map[string]struct{}, len(c.Annexes))
	var last *time.Time
	for _, annex := range c.Annexes {
		if annex.Code == "" {
			out = append(out, Violation{Code: CodeMissingCode, Message: "annex code is required", Field: "annexes"})
		} else if _, dup := codes[annex.Code]; dup {
			out = append(out, Violation{
				Code:      CodeDuplicateCode,
				Message:   fmt.Sprintf("annex code %s is used more than once", annex.Code),
				Field:     "annexes",
				AnnexCode: annex.Code,
			})
		}
		codes[annex.Code] = struct{}{}

		out = append(out, withAnnex(ValidateSignedDate(annex.SignedDate, c.StartDate, last), annex.Code)...)
		if !annex.SignedDate.IsZero() {
			signed := DateOnly(annex.SignedDate)
			last = &signed
		}
	}

	ordered := make([]model.Annex, len(c.Annexes))
	copy(ordered, c.Annexes)
	sortBySignedDate(ordered)

	state := State{Items: model.CloneItems(c.Items), EndDate: DateOnly(c.EndDate)}
	for _, annex := range ordered {
		var vs []Violation
		vs = append(vs, ValidateNotEmpty(annex.Changes)...)
		vs = append(vs, ValidateEntries(annex.Changes)...)
		vs = append(vs, ValidateEndDateChange(annex.Changes.EndDateChange, c.StartDate)...)
		vs = append(vs, ValidateChangeSet(annex.Changes, state.ItemIDs())...)
		out = append(out, withAnnex(vs, annex.Code)...)
		state.apply(annex.Changes)
		state.Applied = append(state.Applied, annex.Code)
	}
	return out
}
