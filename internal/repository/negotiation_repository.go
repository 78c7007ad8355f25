package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/contracts-service/internal/model"
)

const negotiationColumns = `
	id,
	contract_id,
	buyer_id,
	provider_id,
	status,
	final_price,
	final_deadline,
	version,
	created_at,
	updated_at
`

const entryColumns = `
	id,
	negotiation_id,
	seq,
	author_id,
	entry_type,
	proposed_price,
	proposed_deadline,
	notes,
	created_at
`

type NegotiationRepository struct {
	db *gorm.DB
}

func NewNegotiationRepository(db *gorm.DB) *NegotiationRepository {
	return &NegotiationRepository{db: db}
}

// Create inserts the negotiation together with its seed entry so a thread can
// never exist with an empty history.
func (r *NegotiationRepository) Create(
	ctx context.Context,
	negotiation *model.Negotiation,
	seed model.NegotiationEntry,
) (*model.Negotiation, error) {
	var saved model.Negotiation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(`
			INSERT INTO negotiation (contract_id, buyer_id, provider_id, status)
			VALUES (?, ?, ?, ?)
			RETURNING `+negotiationColumns,
			negotiation.ContractID,
			negotiation.BuyerID,
			negotiation.ProviderID,
			negotiation.Status,
		).Scan(&saved).Error; err != nil {
			return err
		}

		var entry model.NegotiationEntry
		if err := tx.Raw(`
			INSERT INTO negotiation_entry
				(negotiation_id, seq, author_id, entry_type, proposed_price, proposed_deadline, notes, created_at)
			VALUES (?, 1, ?, ?, ?, ?, ?, ?)
			RETURNING `+entryColumns,
			saved.ID,
			seed.AuthorID,
			seed.EntryType,
			seed.ProposedPrice,
			seed.ProposedDeadline,
			seed.Notes,
			seed.CreatedAt,
		).Scan(&entry).Error; err != nil {
			return err
		}

		saved.Entries = []model.NegotiationEntry{entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *NegotiationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Negotiation, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *NegotiationRepository) getByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*model.Negotiation, error) {
	var negotiation model.Negotiation
	err := db.WithContext(ctx).Raw(`
		SELECT `+negotiationColumns+`
		FROM negotiation
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&negotiation).Error
	if err != nil {
		return nil, err
	}
	if negotiation.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	if err := db.WithContext(ctx).Raw(`
		SELECT `+entryColumns+`
		FROM negotiation_entry
		WHERE negotiation_id = ?
		ORDER BY seq ASC
	`, id).Scan(&negotiation.Entries).Error; err != nil {
		return nil, err
	}
	return &negotiation, nil
}

func (r *NegotiationRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Negotiation, error) {
	var negotiations []model.Negotiation
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+negotiationColumns+`
		FROM negotiation
		WHERE contract_id = ?
		ORDER BY created_at DESC
	`, contractID).Scan(&negotiations).Error
	if err != nil {
		return nil, err
	}

	for i := range negotiations {
		if err := r.db.WithContext(ctx).Raw(`
			SELECT `+entryColumns+`
			FROM negotiation_entry
			WHERE negotiation_id = ?
			ORDER BY seq ASC
		`, negotiations[i].ID).Scan(&negotiations[i].Entries).Error; err != nil {
			return nil, err
		}
	}
	return negotiations, nil
}

// AppendEntry flips the turn and appends in one transaction. The version
// predicate on the status flip is what rejects the second of two concurrent
// entries from the same party.
func (r *NegotiationRepository) AppendEntry(
	ctx context.Context,
	negotiation *model.Negotiation,
	entry model.NegotiationEntry,
	newStatus model.NegotiationStatus,
) (*model.Negotiation, error) {
	var saved *model.Negotiation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var flipped struct{ ID uuid.UUID }
		if err := tx.Raw(`
			UPDATE negotiation
			SET status = ?, version = version + 1, updated_at = NOW()
			WHERE id = ? AND version = ?
			RETURNING id
		`, newStatus, negotiation.ID, negotiation.Version).Scan(&flipped).Error; err != nil {
			return err
		}
		if flipped.ID == uuid.Nil {
			return ErrStaleVersion
		}

		if err := tx.Exec(`
			INSERT INTO negotiation_entry
				(negotiation_id, seq, author_id, entry_type, proposed_price, proposed_deadline, notes, created_at)
			SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?
			FROM negotiation_entry
			WHERE negotiation_id = ?
		`,
			negotiation.ID,
			entry.AuthorID,
			entry.EntryType,
			entry.ProposedPrice,
			entry.ProposedDeadline,
			entry.Notes,
			entry.CreatedAt,
			negotiation.ID,
		).Error; err != nil {
			return err
		}

		loaded, err := r.getByID(ctx, tx, negotiation.ID)
		if err != nil {
			return err
		}
		saved = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SetStatus moves a negotiation to a terminal status (reject or cancel)
// conditionally on the loaded version. The contract is untouched.
func (r *NegotiationRepository) SetStatus(
	ctx context.Context,
	negotiation *model.Negotiation,
	status model.NegotiationStatus,
) (*model.Negotiation, error) {
	var saved model.Negotiation
	err := r.db.WithContext(ctx).Raw(`
		UPDATE negotiation
		SET status = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?
		RETURNING `+negotiationColumns,
		status, negotiation.ID, negotiation.Version,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == uuid.Nil {
		return nil, ErrStaleVersion
	}
	saved.Entries = negotiation.Entries
	return &saved, nil
}

// FinalizeAccept applies an accepted negotiation as one unit of work: it
// locks the parent contract, re-validates that the parties still match and
// the contract is still negotiable, marks the negotiation accepted with its
// final terms, and rewrites the contract's value and deadline. Any check or
// predicate miss rolls the whole thing back.
func (r *NegotiationRepository) FinalizeAccept(
	ctx context.Context,
	negotiation *model.Negotiation,
	finalPrice *float64,
	finalDeadline *time.Time,
) (*model.Negotiation, *model.Contract, error) {
	var savedNegotiation *model.Negotiation
	var savedContract model.Contract

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contract model.Contract
		if err := tx.Raw(`
			SELECT `+contractColumns+`
			FROM contract
			WHERE id = ?
			FOR UPDATE
		`, negotiation.ContractID).Scan(&contract).Error; err != nil {
			return err
		}
		if contract.ID == uuid.Nil {
			return ErrContractChanged
		}
		if contract.BuyerID != negotiation.BuyerID || contract.ProviderID != negotiation.ProviderID {
			return ErrContractChanged
		}
		if !contract.Status.Negotiable() {
			return ErrContractChanged
		}

		var accepted struct{ ID uuid.UUID }
		if err := tx.Raw(`
			UPDATE negotiation
			SET
				status = ?,
				final_price = ?,
				final_deadline = ?,
				version = version + 1,
				updated_at = NOW()
			WHERE id = ? AND version = ? AND status IN ('AWAITING_BUYER', 'AWAITING_PROVIDER')
			RETURNING id
		`,
			model.NegotiationStatusAccepted,
			finalPrice,
			finalDeadline,
			negotiation.ID,
			negotiation.Version,
		).Scan(&accepted).Error; err != nil {
			return err
		}
		if accepted.ID == uuid.Nil {
			return ErrStaleVersion
		}

		if err := tx.Raw(`
			UPDATE contract
			SET
				total_value = COALESCE(?, total_value),
				service_deadline = COALESCE(?, service_deadline),
				version = version + 1,
				updated_at = NOW()
			WHERE id = ? AND version = ?
			RETURNING `+contractColumns,
			finalPrice,
			finalDeadline,
			contract.ID,
			contract.Version,
		).Scan(&savedContract).Error; err != nil {
			return err
		}
		if savedContract.ID == uuid.Nil {
			return ErrStaleVersion
		}

		loaded, err := r.getByID(ctx, tx, negotiation.ID)
		if err != nil {
			return err
		}
		savedNegotiation = loaded
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return savedNegotiation, &savedContract, nil
}
