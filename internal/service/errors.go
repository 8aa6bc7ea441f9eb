package service

import "github.com/nurpe/pharma-contracts/internal/ledger"

var (
	ErrNotFound         = ledger.ErrNotFound
	ErrPermissionDenied = ledger.ErrPermissionDenied
	ErrInvalidInput     = ledger.ErrValidation
	ErrInvalidState     = ledger.ErrInvalidState
	ErrConcurrentUpdate = ledger.ErrConcurrentUpdate
)
