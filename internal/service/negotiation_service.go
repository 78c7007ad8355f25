package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/contracts-service/internal/metrics"
	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/repository"
)

type FinalizeAction string

const (
	FinalizeActionAccept FinalizeAction = "accept"
	FinalizeActionReject FinalizeAction = "reject"
)

// ProposalPayload is the body of one negotiation history entry.
type ProposalPayload struct {
	ProposedPrice    *float64
	ProposedDeadline *time.Time
	Notes            string
}

type NegotiationService struct {
	negotiations NegotiationStore
	contracts    ContractStore
	events       Publisher
	notesMax     int
	now          func() time.Time
}

func NewNegotiationService(
	negotiations NegotiationStore,
	contracts ContractStore,
	events Publisher,
	notesMax int,
) *NegotiationService {
	return &NegotiationService{
		negotiations: negotiations,
		contracts:    contracts,
		events:       events,
		notesMax:     notesMax,
		now:          time.Now,
	}
}

type OpenNegotiationInput struct {
	ContractID uuid.UUID
	Payload    ProposalPayload
	Principal  model.Principal
}

type RespondInput struct {
	NegotiationID uuid.UUID
	EntryType     model.NegotiationEntryType
	Payload       ProposalPayload
	Principal     model.Principal
}

type FinalizeInput struct {
	NegotiationID uuid.UUID
	Action        FinalizeAction
	Principal     model.Principal
}

// FinalizeResult carries both aggregates touched by a finalization so the
// handler can compose one response.
type FinalizeResult struct {
	Negotiation *model.Negotiation `json:"negotiation"`
	Contract    *model.Contract    `json:"contract"`
}

// Open starts a renegotiation thread on a negotiable contract, seeded with
// the buyer's opening proposal. The thread immediately awaits the provider.
func (s *NegotiationService) Open(ctx context.Context, input OpenNegotiationInput) (*model.Negotiation, error) {
	if !input.Principal.IsBuyer() {
		return nil, fmt.Errorf("%w: only a buyer may open a negotiation", ErrPermissionDenied)
	}

	contract, err := s.contracts.GetByID(ctx, input.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if contract.BuyerID != input.Principal.UserID {
		return nil, fmt.Errorf("%w: caller is not the buyer on this contract", ErrPermissionDenied)
	}
	if !contract.Status.Negotiable() {
		return nil, fmt.Errorf("%w: contract in status %s cannot be renegotiated",
			ErrActionNotAllowed, contract.Status)
	}

	if err := s.validatePayload(input.Payload); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.negotiations.Create(ctx, &model.Negotiation{
		ContractID: contract.ID,
		BuyerID:    contract.BuyerID,
		ProviderID: contract.ProviderID,
		Status:     model.NegotiationStatusAwaitingProvider,
	}, model.NegotiationEntry{
		AuthorID:         input.Principal.UserID,
		EntryType:        model.EntryTypeBuyerProposal,
		ProposedPrice:    input.Payload.ProposedPrice,
		ProposedDeadline: input.Payload.ProposedDeadline,
		Notes:            input.Payload.Notes,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}

	metrics.NegotiationsOpened.Inc()
	s.events.Publish(ctx, "negotiation.opened", created)
	return created, nil
}

func (s *NegotiationService) Get(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Negotiation, error) {
	negotiation, err := s.negotiations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !negotiation.Participant(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	return negotiation, nil
}

func (s *NegotiationService) ListByContract(ctx context.Context, contractID uuid.UUID, principal model.Principal) ([]model.Negotiation, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !contract.Participant(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	return s.negotiations.ListByContract(ctx, contractID)
}

// Respond appends one history entry under strict turn-taking and flips the
// turn to the other party. A PLAIN_MESSAGE consumes the turn the same way a
// substantive entry does; the protocol has no no-op move.
func (s *NegotiationService) Respond(ctx context.Context, input RespondInput) (*model.Negotiation, error) {
	negotiation, err := s.negotiations.GetByID(ctx, input.NegotiationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !negotiation.Participant(input.Principal.UserID) {
		return nil, ErrPermissionDenied
	}
	if negotiation.Status.Terminal() {
		return nil, fmt.Errorf("%w: negotiation is already %s", ErrActionNotAllowed, negotiation.Status)
	}

	switch input.EntryType {
	case model.EntryTypeBuyerProposal:
		if input.Principal.UserID != negotiation.BuyerID {
			return nil, fmt.Errorf("%w: %s entries must be authored by the buyer",
				ErrInvalidInput, input.EntryType)
		}
	case model.EntryTypeProviderResponse:
		if input.Principal.UserID != negotiation.ProviderID {
			return nil, fmt.Errorf("%w: %s entries must be authored by the provider",
				ErrInvalidInput, input.EntryType)
		}
	case model.EntryTypePlainMessage:
	default:
		return nil, fmt.Errorf("%w: unknown entry type %q", ErrInvalidInput, input.EntryType)
	}

	if negotiation.AwaitedParty() != input.Principal.UserID {
		return nil, fmt.Errorf("%w: negotiation is %s, it is not your turn",
			ErrActionNotAllowed, negotiation.Status)
	}

	if err := s.validatePayload(input.Payload); err != nil {
		return nil, err
	}

	newStatus := model.NegotiationStatusAwaitingProvider
	if negotiation.Status == model.NegotiationStatusAwaitingProvider {
		newStatus = model.NegotiationStatusAwaitingBuyer
	}

	updated, err := s.negotiations.AppendEntry(ctx, negotiation, model.NegotiationEntry{
		AuthorID:         input.Principal.UserID,
		EntryType:        input.EntryType,
		ProposedPrice:    input.Payload.ProposedPrice,
		ProposedDeadline: input.Payload.ProposedDeadline,
		Notes:            input.Payload.Notes,
		CreatedAt:        s.now().UTC(),
	}, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, fmt.Errorf("%w: negotiation was modified concurrently", ErrConflict)
		}
		return nil, err
	}

	s.events.Publish(ctx, "negotiation.responded", updated)
	return updated, nil
}

// Finalize closes a negotiation. Only the party the thread is currently
// awaiting may accept or reject, so the author of the latest proposal can
// never close their own move. Accept rewrites the parent contract's terms in
// the same transaction; any re-validation failure aborts with Conflict and
// leaves both aggregates untouched.
func (s *NegotiationService) Finalize(ctx context.Context, input FinalizeInput) (*FinalizeResult, error) {
	action := FinalizeAction(strings.ToLower(string(input.Action)))
	if action != FinalizeActionAccept && action != FinalizeActionReject {
		return nil, fmt.Errorf("%w: action must be %q or %q", ErrInvalidInput, FinalizeActionAccept, FinalizeActionReject)
	}

	negotiation, err := s.negotiations.GetByID(ctx, input.NegotiationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !negotiation.Participant(input.Principal.UserID) {
		return nil, ErrPermissionDenied
	}
	if negotiation.Status.Terminal() {
		return nil, fmt.Errorf("%w: negotiation is already %s", ErrActionNotAllowed, negotiation.Status)
	}
	if negotiation.AwaitedParty() != input.Principal.UserID {
		return nil, fmt.Errorf("%w: negotiation is %s, only the awaited party may finalize",
			ErrActionNotAllowed, negotiation.Status)
	}

	var result FinalizeResult

	switch action {
	case FinalizeActionReject:
		updated, err := s.negotiations.SetStatus(ctx, negotiation, model.NegotiationStatusRejected)
		if err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return nil, fmt.Errorf("%w: negotiation was modified concurrently", ErrConflict)
			}
			return nil, err
		}
		contract, err := s.contracts.GetByID(ctx, negotiation.ContractID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		result = FinalizeResult{Negotiation: updated, Contract: contract}

	case FinalizeActionAccept:
		finalPrice, finalDeadline := computeFinalTerms(negotiation.Entries)
		updatedNegotiation, updatedContract, err := s.negotiations.FinalizeAccept(ctx, negotiation, finalPrice, finalDeadline)
		if err != nil {
			if errors.Is(err, repository.ErrStaleVersion) || errors.Is(err, repository.ErrContractChanged) {
				return nil, fmt.Errorf("%w: contract or negotiation changed concurrently", ErrConflict)
			}
			return nil, err
		}
		result = FinalizeResult{Negotiation: updatedNegotiation, Contract: updatedContract}
	}

	metrics.NegotiationsFinalized.WithLabelValues(string(action)).Inc()
	s.events.Publish(ctx, "negotiation.finalized", result)
	return &result, nil
}

// Cancel withdraws an open negotiation. Only the buyer, as initiator, may
// cancel; the parent contract is untouched.
func (s *NegotiationService) Cancel(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Negotiation, error) {
	negotiation, err := s.negotiations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !negotiation.Participant(principal.UserID) {
		return nil, ErrPermissionDenied
	}
	if principal.UserID != negotiation.BuyerID {
		return nil, fmt.Errorf("%w: only the buyer may cancel a negotiation", ErrPermissionDenied)
	}
	if negotiation.Status.Terminal() {
		return nil, fmt.Errorf("%w: negotiation is already %s", ErrActionNotAllowed, negotiation.Status)
	}

	updated, err := s.negotiations.SetStatus(ctx, negotiation, model.NegotiationStatusCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, fmt.Errorf("%w: negotiation was modified concurrently", ErrConflict)
		}
		return nil, err
	}

	s.events.Publish(ctx, "negotiation.cancelled", updated)
	return updated, nil
}

func (s *NegotiationService) validatePayload(payload ProposalPayload) error {
	notes := strings.TrimSpace(payload.Notes)
	if notes == "" {
		return fmt.Errorf("%w: notes are required", ErrInvalidInput)
	}
	if s.notesMax > 0 && len([]rune(notes)) > s.notesMax {
		return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidInput, s.notesMax)
	}
	if payload.ProposedPrice != nil && *payload.ProposedPrice < 0 {
		return fmt.Errorf("%w: proposed_price must be non-negative", ErrInvalidInput)
	}
	return nil
}

// computeFinalTerms walks the history backwards and takes, independently, the
// most recent proposed price and the most recent proposed deadline. A closing
// entry without a price falls back to the latest entry that carried one.
func computeFinalTerms(entries []model.NegotiationEntry) (*float64, *time.Time) {
	var price *float64
	var deadline *time.Time
	for i := len(entries) - 1; i >= 0; i-- {
		if price == nil && entries[i].ProposedPrice != nil {
			v := *entries[i].ProposedPrice
			price = &v
		}
		if deadline == nil && entries[i].ProposedDeadline != nil {
			t := *entries[i].ProposedDeadline
			deadline = &t
		}
		if price != nil && deadline != nil {
			break
		}
	}
	return price, deadline
}
