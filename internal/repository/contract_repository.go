package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/nurpe/contracts-service/internal/model"
)

const contractColumns = `
	id,
	buyer_id,
	provider_id,
	offer_id,
	status,
	total_value,
	service_deadline,
	service_started_at,
	service_ended_at,
	version,
	created_at,
	updated_at
`

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO contract (buyer_id, provider_id, offer_id, status, total_value, service_deadline)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+contractColumns,
		contract.BuyerID,
		contract.ProviderID,
		contract.OfferID,
		contract.Status,
		contract.TotalValue,
		contract.ServiceDeadline,
	).Scan(&saved).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: live contract for (buyer, offer) exists", gorm.ErrDuplicatedKey)
		}
		return nil, err
	}
	return &saved, nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contract
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

func (r *ContractRepository) ListForParticipant(
	ctx context.Context,
	userID uuid.UUID,
	status *model.ContractStatus,
) ([]model.Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contract
		WHERE (buyer_id = ? OR provider_id = ?)
	`
	args := []interface{}{userID, userID}
	if status != nil {
		query += " AND status = ?"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	var contracts []model.Contract
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *ContractRepository) CountLive(ctx context.Context, buyerID, offerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM contract
		WHERE buyer_id = ?
			AND offer_id = ?
			AND status IN ('PENDING', 'ACCEPTED', 'IN_PROGRESS')
	`, buyerID, offerID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatus writes the transitioned contract conditionally on the version
// the caller loaded. A miss means a concurrent transition won.
func (r *ContractRepository) UpdateStatus(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Raw(`
		UPDATE contract
		SET
			status = ?,
			service_started_at = ?,
			service_ended_at = ?,
			version = version + 1,
			updated_at = NOW()
		WHERE id = ? AND version = ?
		RETURNING `+contractColumns,
		contract.Status,
		contract.ServiceStartedAt,
		contract.ServiceEndedAt,
		contract.ID,
		contract.Version,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == uuid.Nil {
		return nil, ErrStaleVersion
	}
	return &saved, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
