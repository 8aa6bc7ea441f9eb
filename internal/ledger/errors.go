package ledger

import (
	"errors"
	"strings"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// Error kinds surfaced by the ledger. Match them with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotFound         = errors.New("not found")
	ErrConcurrentUpdate = errors.New("concurrent update")
)

const (
	CodeDuplicateMedicine  = "duplicate_medicine"
	CodeMedicinePresent    = "medicine_already_present"
	CodeMedicineNotPresent = "medicine_not_present"
	CodeUnknownMedicine    = "unknown_medicine"
	CodeMissingMedicine    = "missing_medicine_id"
	CodeInvalidPrice       = "invalid_price"
	CodeInvalidQuantity    = "invalid_quantity"
	CodeEmptyChangeSet     = "empty_change_set"
	CodeSignedBeforeStart  = "signed_before_start"
	CodeSignedNotIncreased = "signed_not_increasing"
	CodeMissingSignedDate  = "missing_signed_date"
	CodeInvalidEndDate     = "invalid_end_date"
	CodeInvalidDates       = "invalid_dates"
	CodeEconomicContract   = "economic_contract"
	CodeNotLatestAnnex     = "not_latest_annex"
	CodePendingAnnex       = "pending_annex_exists"
	CodeBundledAnnex       = "bundled_annex"
	CodeMissingCode        = "missing_code"
	CodeDuplicateCode      = "duplicate_code"
	CodeInvalidKind        = "invalid_kind"
	CodeInvalidDecision    = "invalid_decision"
)

// Violation is one client-correctable problem with a request.
type Violation struct {
	Code       string           `json:"code"`
	Message    string           `json:"message"`
	Field      string           `json:"field,omitempty"`
	MedicineID model.MedicineID `json:"medicine_id,omitempty"`
	AnnexCode  string           `json:"annex_code,omitempty"`
}

// ValidationError carries every violation found by a validation pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid wraps violations into a *ValidationError, or returns nil when
// there are none.
func Invalid(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// Violations extracts the violation list from err, if any.
func Violations(err error) []Violation {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}

func withAnnex(violations []Violation, code string) []Violation {
	for i := range violations {
		violations[i].AnnexCode = code
	}
	return violations
}
