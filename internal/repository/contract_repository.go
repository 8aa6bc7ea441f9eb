package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nurpe/pharma-contracts/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

type contractRow struct {
	ID               uuid.UUID
	Code             string
	Kind             string
	CounterpartyID   uuid.UUID
	CounterpartyKind string
	StartDate        time.Time
	EndDate          time.Time
	Status           string
	OwnerID          uuid.UUID
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type itemRow struct {
	ContractID uuid.UUID
	Position   int
	MedicineID string
	UnitPrice  decimal.Decimal
	Quantity   *int64
}

type annexRow struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	Position   int
	Code       string
	SignedDate time.Time
	Status     string
	Bundled    bool
	OwnerID    uuid.UUID
	Changes    datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const contractColumns = `
	id,
	code,
	kind,
	counterparty_id,
	counterparty_kind,
	start_date,
	end_date,
	status,
	owner_id,
	version,
	created_at,
	updated_at
`

var readSnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// Get loads the full aggregate: base terms, items and annexes in append
// order, read from one snapshot.
func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract *model.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row contractRow
		if err := tx.Raw(`SELECT `+contractColumns+` FROM contracts WHERE id = ? LIMIT 1`, id).Scan(&row).Error; err != nil {
			return err
		}
		if row.ID == uuid.Nil {
			return gorm.ErrRecordNotFound
		}
		loaded, err := r.hydrate(tx, []contractRow{row})
		if err != nil {
			return err
		}
		contract = &loaded[0]
		return nil
	}, readSnapshot)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (r *ContractRepository) List(ctx context.Context, filter ContractFilter) ([]model.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts`
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.CounterpartyID != uuid.Nil {
		conds = append(conds, "counterparty_id = ?")
		args = append(args, filter.CounterpartyID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, code ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	var contracts []model.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []contractRow
		if err := tx.Raw(query, args...).Scan(&rows).Error; err != nil {
			return err
		}
		loaded, err := r.hydrate(tx, rows)
		if err != nil {
			return err
		}
		contracts = loaded
		return nil
	}, readSnapshot)
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *ContractRepository) ListByStatus(ctx context.Context, status model.ContractStatus) ([]model.Contract, error) {
	return r.List(ctx, ContractFilter{Status: status})
}

// Create inserts a new aggregate with version 1.
func (r *ContractRepository) Create(ctx context.Context, c *model.Contract) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			INSERT INTO contracts (`+contractColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`,
			c.ID,
			c.Code,
			string(c.Kind),
			c.CounterpartyID,
			string(c.CounterpartyKind),
			c.StartDate,
			c.EndDate,
			string(c.Status),
			c.OwnerID,
			c.CreatedAt,
			c.UpdatedAt,
		).Error
		if err != nil {
			return mapWriteError(err)
		}
		return writeChildren(tx, c)
	})
	if err != nil {
		return err
	}
	c.Version = 1
	return nil
}

// Save commits c if the stored version still equals c.Version, rewriting
// its items and annexes in the same transaction. On success c.Version is
// advanced.
func (r *ContractRepository) Save(ctx context.Context, c *model.Contract) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE contracts
			SET
				code = ?,
				kind = ?,
				counterparty_id = ?,
				counterparty_kind = ?,
				start_date = ?,
				end_date = ?,
				status = ?,
				version = version + 1,
				updated_at = ?
			WHERE id = ? AND version = ?
		`,
			c.Code,
			string(c.Kind),
			c.CounterpartyID,
			string(c.CounterpartyKind),
			c.StartDate,
			c.EndDate,
			string(c.Status),
			c.UpdatedAt,
			c.ID,
			c.Version,
		)
		if res.Error != nil {
			return mapWriteError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if err := tx.Exec(`DELETE FROM contract_items WHERE contract_id = ?`, c.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM contract_annexes WHERE contract_id = ?`, c.ID).Error; err != nil {
			return err
		}
		return writeChildren(tx, c)
	})
	if err != nil {
		return err
	}
	c.Version++
	return nil
}

// Delete removes a contract at the given version; items and annexes
// cascade.
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID, version int64) error {
	res := r.db.WithContext(ctx).Exec(`DELETE FROM contracts WHERE id = ? AND version = ?`, id, version)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func writeChildren(tx *gorm.DB, c *model.Contract) error {
	for i, item := range c.Items {
		if err := tx.Exec(`
			INSERT INTO contract_items (contract_id, position, medicine_id, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, i, string(item.MedicineID), item.UnitPrice, item.Quantity).Error; err != nil {
			return fmt.Errorf("insert item %s: %w", item.MedicineID, err)
		}
	}
	for i, annex := range c.Annexes {
		changes, err := json.Marshal(annex.Changes)
		if err != nil {
			return fmt.Errorf("marshal annex %s: %w", annex.Code, err)
		}
		if err := tx.Exec(`
			INSERT INTO contract_annexes (
				id,
				contract_id,
				position,
				code,
				signed_date,
				status,
				bundled,
				owner_id,
				changes,
				created_at,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			annex.ID,
			c.ID,
			i,
			annex.Code,
			annex.SignedDate,
			string(annex.Status),
			annex.Bundled,
			annex.OwnerID,
			datatypes.JSON(changes),
			annex.CreatedAt,
			annex.UpdatedAt,
		).Error; err != nil {
			return fmt.Errorf("insert annex %s: %w", annex.Code, err)
		}
	}
	return nil
}

func (r *ContractRepository) hydrate(tx *gorm.DB, rows []contractRow) ([]model.Contract, error) {
	if len(rows) == 0 {
		return []model.Contract{}, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var items []itemRow
	if err := tx.Raw(`
		SELECT contract_id, position, medicine_id, unit_price, quantity
		FROM contract_items
		WHERE contract_id IN ?
		ORDER BY contract_id, position ASC
	`, ids).Scan(&items).Error; err != nil {
		return nil, err
	}

	var annexes []annexRow
	if err := tx.Raw(`
		SELECT id, contract_id, position, code, signed_date, status, bundled, owner_id, changes, created_at, updated_at
		FROM contract_annexes
		WHERE contract_id IN ?
		ORDER BY contract_id, position ASC
	`, ids).Scan(&annexes).Error; err != nil {
		return nil, err
	}

	itemsByContract := make(map[uuid.UUID][]model.ContractItem, len(rows))
	for _, item := range items {
		itemsByContract[item.ContractID] = append(itemsByContract[item.ContractID], model.ContractItem{
			MedicineID: model.MedicineID(item.MedicineID),
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	annexesByContract := make(map[uuid.UUID][]model.Annex, len(rows))
	for _, row := range annexes {
		var changes model.ChangeSet
		if len(row.Changes) > 0 {
			if err := json.Unmarshal(row.Changes, &changes); err != nil {
				return nil, fmt.Errorf("decode annex %s: %w", row.Code, err)
			}
		}
		annexesByContract[row.ContractID] = append(annexesByContract[row.ContractID], model.Annex{
			ID:         row.ID,
			Code:       row.Code,
			SignedDate: row.SignedDate.UTC(),
			Changes:    changes,
			Status:     model.AnnexStatus(row.Status),
			Bundled:    row.Bundled,
			OwnerID:    row.OwnerID,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}

	contracts := make([]model.Contract, len(rows))
	for i, row := range rows {
		contracts[i] = model.Contract{
			ID:               row.ID,
			Code:             row.Code,
			Kind:             model.ContractKind(row.Kind),
			CounterpartyID:   row.CounterpartyID,
			CounterpartyKind: model.CounterpartyKind(row.CounterpartyKind),
			StartDate:        row.StartDate.UTC(),
			EndDate:          row.EndDate.UTC(),
			Items:            itemsByContract[row.ID],
			Status:           model.ContractStatus(row.Status),
			Annexes:          annexesByContract[row.ID],
			OwnerID:          row.OwnerID,
			Version:          row.Version,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		}
	}
	return contracts, nil
}
