package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/contracts-service/internal/metrics"
	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/repository"
)

// StatementGenerator renders the printable statement for one contract.
type StatementGenerator interface {
	Generate(statement model.ContractStatement) ([]byte, error)
}

// ExportGenerator renders the engagement list workbook.
type ExportGenerator interface {
	Generate(export model.EngagementExport) ([]byte, error)
}

type ContractService struct {
	contracts    ContractStore
	offers       OfferStore
	negotiations NegotiationStore
	statement    StatementGenerator
	export       ExportGenerator
	events       Publisher
	now          func() time.Time
}

func NewContractService(
	contracts ContractStore,
	offers OfferStore,
	negotiations NegotiationStore,
	statement StatementGenerator,
	export ExportGenerator,
	events Publisher,
) *ContractService {
	return &ContractService{
		contracts:    contracts,
		offers:       offers,
		negotiations: negotiations,
		statement:    statement,
		export:       export,
		events:       events,
		now:          time.Now,
	}
}

type CreateContractInput struct {
	OfferID   uuid.UUID
	Principal model.Principal
}

type ChangeStatusInput struct {
	ContractID uuid.UUID
	Requested  model.ContractStatus
	Principal  model.Principal
}

type ExportInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Principal   model.Principal
}

type FileResult struct {
	FileName string
	Content  []byte
}

type contractStatusChangedEvent struct {
	Contract *model.Contract      `json:"contract"`
	From     model.ContractStatus `json:"from"`
	To       model.ContractStatus `json:"to"`
	ActorID  uuid.UUID            `json:"actor_id"`
}

// Create opens a new engagement in PENDING after the duplicate-engagement
// guard. The pre-check keeps the common path friendly; the race between two
// concurrent creations for the same (buyer, offer) is closed by the partial
// unique index over live statuses, surfaced here as a duplicate-key error.
func (s *ContractService) Create(ctx context.Context, input CreateContractInput) (*model.Contract, error) {
	if !input.Principal.IsBuyer() {
		return nil, fmt.Errorf("%w: only a buyer may create a contract", ErrPermissionDenied)
	}
	if input.OfferID == uuid.Nil {
		return nil, fmt.Errorf("%w: offer_id is required", ErrInvalidInput)
	}

	offer, err := s.offers.GetByID(ctx, input.OfferID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: offer %s not found", ErrInvalidInput, input.OfferID)
		}
		return nil, err
	}
	if offer.Status != model.OfferStatusAvailable {
		return nil, fmt.Errorf("%w: offer %s is not available", ErrInvalidInput, offer.ID)
	}
	if offer.ProviderID == input.Principal.UserID {
		return nil, fmt.Errorf("%w: cannot engage your own offer", ErrInvalidInput)
	}

	live, err := s.contracts.CountLive(ctx, input.Principal.UserID, offer.ID)
	if err != nil {
		return nil, err
	}
	if live > 0 {
		return nil, fmt.Errorf("%w: a live contract already exists for this offer", ErrConflict)
	}

	created, err := s.contracts.Create(ctx, &model.Contract{
		BuyerID:    input.Principal.UserID,
		ProviderID: offer.ProviderID,
		OfferID:    offer.ID,
		Status:     model.ContractStatusPending,
		TotalValue: offer.Price,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: a live contract already exists for this offer", ErrConflict)
		}
		return nil, err
	}

	metrics.ContractsCreated.Inc()
	s.events.Publish(ctx, "contract.created", created)
	return created, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !contract.Participant(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	return contract, nil
}

func (s *ContractService) List(ctx context.Context, principal model.Principal, status *model.ContractStatus) ([]model.Contract, error) {
	return s.contracts.ListForParticipant(ctx, principal.UserID, status)
}

// ChangeStatus runs one transition through the table and persists it with the
// loaded version. There are no in-core retries: a concurrent transition makes
// the conditional update miss and the caller gets Conflict to re-fetch.
func (s *ContractService) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, input.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !validContractStatus(input.Requested) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Requested)
	}

	role := contract.RoleOf(input.Principal.UserID)
	if role == "" {
		return nil, ErrPermissionDenied
	}

	from := contract.Status
	if !allowedTransition(from, input.Requested, role) {
		return nil, fmt.Errorf("%w: %s may not move contract from %s to %s",
			ErrActionNotAllowed, role, from, input.Requested)
	}

	applyTransition(contract, input.Requested, s.now().UTC())

	updated, err := s.contracts.UpdateStatus(ctx, contract)
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, fmt.Errorf("%w: contract was modified concurrently", ErrConflict)
		}
		return nil, err
	}

	metrics.ContractTransitions.WithLabelValues(string(from), string(updated.Status)).Inc()
	s.events.Publish(ctx, "contract.status_changed", contractStatusChangedEvent{
		Contract: updated,
		From:     from,
		To:       updated.Status,
		ActorID:  input.Principal.UserID,
	})
	return updated, nil
}

// Statement renders the contract statement PDF for a participant.
func (s *ContractService) Statement(ctx context.Context, id uuid.UUID, principal model.Principal) (*FileResult, error) {
	contract, err := s.Get(ctx, id, principal)
	if err != nil {
		return nil, err
	}

	negotiations, err := s.negotiations.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	content, err := s.statement.Generate(model.ContractStatement{
		Contract:     *contract,
		Negotiations: negotiations,
		GeneratedAt:  s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &FileResult{
		FileName: fmt.Sprintf("contract_%s.pdf", contract.ID),
		Content:  content,
	}, nil
}

// Export renders the caller's engagements over a period as a workbook.
func (s *ContractService) Export(ctx context.Context, input ExportInput) (*FileResult, error) {
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}
	if input.PeriodStart.After(input.PeriodEnd) {
		return nil, fmt.Errorf("%w: period_start must be before or equal to period_end", ErrInvalidInput)
	}

	contracts, err := s.contracts.ListForParticipant(ctx, input.Principal.UserID, nil)
	if err != nil {
		return nil, err
	}

	filtered := contracts[:0:0]
	for _, contract := range contracts {
		if contract.CreatedAt.Before(input.PeriodStart) || contract.CreatedAt.After(input.PeriodEnd) {
			continue
		}
		filtered = append(filtered, contract)
	}

	content, err := s.export.Generate(model.EngagementExport{
		UserID:      input.Principal.UserID,
		Role:        input.Principal.Role,
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		Contracts:   filtered,
	})
	if err != nil {
		return nil, err
	}

	return &FileResult{
		FileName: fmt.Sprintf("engagements_%s_%s.xlsx",
			input.PeriodStart.Format("20060102"), input.PeriodEnd.Format("20060102")),
		Content: content,
	}, nil
}

func validContractStatus(s model.ContractStatus) bool {
	switch s {
	case model.ContractStatusPending,
		model.ContractStatusAccepted,
		model.ContractStatusInProgress,
		model.ContractStatusCompleted,
		model.ContractStatusCancelledByBuyer,
		model.ContractStatusCancelledByProvider,
		model.ContractStatusDisputed:
		return true
	}
	return false
}
