package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM (
				'PENDING', 'ACCEPTED', 'IN_PROGRESS', 'COMPLETED',
				'CANCELLED_BY_BUYER', 'CANCELLED_BY_PROVIDER', 'DISPUTED'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'negotiation_status') THEN
			CREATE TYPE negotiation_status AS ENUM (
				'STARTED', 'AWAITING_PROVIDER', 'AWAITING_BUYER',
				'ACCEPTED', 'REJECTED', 'CANCELLED'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'negotiation_entry_type') THEN
			CREATE TYPE negotiation_entry_type AS ENUM (
				'BUYER_PROPOSAL', 'PROVIDER_RESPONSE', 'PLAIN_MESSAGE'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'offer_status') THEN
			CREATE TYPE offer_status AS ENUM ('AVAILABLE', 'PAUSED', 'WITHDRAWN');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS offer (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		provider_id UUID NOT NULL,
		title VARCHAR(255) NOT NULL,
		price NUMERIC(18,2) NOT NULL CHECK (price >= 0),
		status offer_status NOT NULL DEFAULT 'AVAILABLE',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contract (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		buyer_id UUID NOT NULL,
		provider_id UUID NOT NULL,
		offer_id UUID NOT NULL REFERENCES offer(id),
		status contract_status NOT NULL DEFAULT 'PENDING',
		total_value NUMERIC(18,2) NOT NULL CHECK (total_value >= 0),
		service_deadline TIMESTAMPTZ,
		service_started_at TIMESTAMPTZ,
		service_ended_at TIMESTAMPTZ,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (
			service_started_at IS NULL
			OR service_ended_at IS NULL
			OR service_ended_at >= service_started_at
		)
	);`,
	// Closes the check-then-insert race on contract creation: two concurrent
	// requests for the same (buyer, offer) cannot both insert a live row.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contract_live_engagement
		ON contract (buyer_id, offer_id)
		WHERE status IN ('PENDING', 'ACCEPTED', 'IN_PROGRESS');`,
	`CREATE INDEX IF NOT EXISTS idx_contract_buyer_id ON contract (buyer_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_provider_id ON contract (provider_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_status ON contract (status);`,
	`CREATE TABLE IF NOT EXISTS negotiation (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contract(id),
		buyer_id UUID NOT NULL,
		provider_id UUID NOT NULL,
		status negotiation_status NOT NULL DEFAULT 'STARTED',
		final_price NUMERIC(18,2) CHECK (final_price IS NULL OR final_price >= 0),
		final_deadline TIMESTAMPTZ,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_negotiation_contract_id ON negotiation (contract_id);`,
	`CREATE TABLE IF NOT EXISTS negotiation_entry (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		negotiation_id UUID NOT NULL REFERENCES negotiation(id) ON DELETE CASCADE,
		seq INT NOT NULL,
		author_id UUID NOT NULL,
		entry_type negotiation_entry_type NOT NULL,
		proposed_price NUMERIC(18,2) CHECK (proposed_price IS NULL OR proposed_price >= 0),
		proposed_deadline TIMESTAMPTZ,
		notes TEXT NOT NULL CHECK (length(notes) > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_negotiation_entry_seq
		ON negotiation_entry (negotiation_id, seq);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
