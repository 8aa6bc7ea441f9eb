package ledger

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateSignedDate checks an annex signing date against the contract
// start and the most recently signed annex: signed >= start, and signed is
// strictly after lastSigned when there is one.
func ValidateSignedDate(signed, contractStart time.Time, lastSigned *time.Time) []Violation {
	if signed.IsZero() {
		return []Violation{{
			Code:    CodeMissingSignedDate,
			Message: "signed_date is required",
			Field:   "signed_date",
		}}
	}
	signed = DateOnly(signed)

	var out []Violation
	if signed.Before(DateOnly(contractStart)) {
		out = append(out, Violation{
			Code:    CodeSignedBeforeStart,
			Message: fmt.Sprintf("signed date %s is before contract start %s", signed.Format(dateLayout), DateOnly(contractStart).Format(dateLayout)),
			Field:   "signed_date",
		})
	}
	if lastSigned != nil && !signed.After(DateOnly(*lastSigned)) {
		out = append(out, Violation{
			Code:    CodeSignedNotIncreased,
			Message: fmt.Sprintf("signed date %s must be after the last annex signed %s", signed.Format(dateLayout), DateOnly(*lastSigned).Format(dateLayout)),
			Field:   "signed_date",
		})
	}
	return out
}

// ValidateEndDateChange requires an extended end date to stay after the
// contract start.
func ValidateEndDateChange(newEnd *time.Time, contractStart time.Time) []Violation {
	if newEnd == nil {
		return nil
	}
	if !DateOnly(*newEnd).After(DateOnly(contractStart)) {
		return []Violation{{
			Code:    CodeInvalidEndDate,
			Message: fmt.Sprintf("end date %s must be after contract start %s", DateOnly(*newEnd).Format(dateLayout), DateOnly(contractStart).Format(dateLayout)),
			Field:   "end_date_change",
		}}
	}
	return nil
}
