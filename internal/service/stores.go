package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/contracts-service/internal/model"
)

// ContractStore persists contracts. Status updates carry the version the
// caller loaded; implementations must refuse the write when the stored
// version differs and surface that as repository.ErrStaleVersion.
type ContractStore interface {
	Create(ctx context.Context, contract *model.Contract) (*model.Contract, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ListForParticipant(ctx context.Context, userID uuid.UUID, status *model.ContractStatus) ([]model.Contract, error)
	CountLive(ctx context.Context, buyerID, offerID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, contract *model.Contract) (*model.Contract, error)
}

// OfferStore reads the externally-owned offer catalog.
type OfferStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
}

// NegotiationStore persists negotiations and their append-only history.
// FinalizeAccept must apply the negotiation terms and the contract rewrite in
// one transaction, re-validating the contract's parties and negotiable status
// inside it.
type NegotiationStore interface {
	Create(ctx context.Context, negotiation *model.Negotiation, seed model.NegotiationEntry) (*model.Negotiation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Negotiation, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Negotiation, error)
	AppendEntry(ctx context.Context, negotiation *model.Negotiation, entry model.NegotiationEntry, newStatus model.NegotiationStatus) (*model.Negotiation, error)
	SetStatus(ctx context.Context, negotiation *model.Negotiation, status model.NegotiationStatus) (*model.Negotiation, error)
	FinalizeAccept(ctx context.Context, negotiation *model.Negotiation, finalPrice *float64, finalDeadline *time.Time) (*model.Negotiation, *model.Contract, error)
}

// Publisher fans out state-change events to the notification dispatcher.
// Publishing is fire-and-forget: implementations log failures and never
// fail the request.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}
