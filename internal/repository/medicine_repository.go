package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nurpe/pharma-contracts/internal/model"
)

type MedicineRepository struct {
	db *gorm.DB
}

func NewMedicineRepository(db *gorm.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// ExistingIDs returns the subset of ids that name active catalog entries.
func (r *MedicineRepository) ExistingIDs(ctx context.Context, ids []model.MedicineID) ([]model.MedicineID, error) {
	if len(ids) == 0 {
		return []model.MedicineID{}, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	var found []string
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id
		FROM medicines
		WHERE active AND id IN ?
	`, raw).Scan(&found).Error; err != nil {
		return nil, err
	}

	result := make([]model.MedicineID, len(found))
	for i, id := range found {
		result[i] = model.MedicineID(id)
	}
	return result, nil
}
