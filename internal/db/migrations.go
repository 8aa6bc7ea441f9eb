package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('draft', 'active', 'rejected', 'cancelled', 'expired');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'annex_status') THEN
			CREATE TYPE annex_status AS ENUM ('draft', 'active', 'rejected');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS medicines (
		id VARCHAR(64) PRIMARY KEY,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY,
		code VARCHAR(64) NOT NULL,
		kind VARCHAR(16) NOT NULL CHECK (kind IN ('economic', 'principal')),
		counterparty_id UUID NOT NULL,
		counterparty_kind VARCHAR(16) NOT NULL CHECK (counterparty_kind IN ('Supplier', 'Retailer')),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status contract_status NOT NULL DEFAULT 'draft',
		owner_id UUID NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_code ON contracts (code);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_counterparty_id ON contracts (counterparty_id);`,
	`CREATE TABLE IF NOT EXISTS contract_items (
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		position INT NOT NULL,
		medicine_id VARCHAR(64) NOT NULL REFERENCES medicines(id),
		unit_price NUMERIC(18,4) NOT NULL,
		quantity BIGINT,
		PRIMARY KEY (contract_id, position)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contract_items_medicine ON contract_items (contract_id, medicine_id);`,
	`CREATE TABLE IF NOT EXISTS contract_annexes (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		position INT NOT NULL,
		code VARCHAR(64) NOT NULL,
		signed_date DATE NOT NULL,
		status annex_status NOT NULL DEFAULT 'draft',
		bundled BOOLEAN NOT NULL DEFAULT FALSE,
		owner_id UUID NOT NULL,
		changes JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contract_annexes_code ON contract_annexes (contract_id, code);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_annexes_status ON contract_annexes (contract_id, status);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
