package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = gorm.ErrRecordNotFound
	ErrVersionConflict = errors.New("contract version changed since it was read")
	ErrDuplicateCode   = errors.New("contract code already exists")
)

func mapWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	return err
}
