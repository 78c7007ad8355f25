// Package testutils provides in-memory store and publisher implementations
// mirroring the repository layer's concurrency contract (version predicates,
// finalize-time re-validation) for service and handler tests.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/repository"
)

type InMemoryContractStore struct {
	mu        sync.Mutex
	Contracts map[uuid.UUID]*model.Contract
	UpdateErr error
}

func NewInMemoryContractStore() *InMemoryContractStore {
	return &InMemoryContractStore{Contracts: map[uuid.UUID]*model.Contract{}}
}

func (s *InMemoryContractStore) Create(_ context.Context, contract *model.Contract) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.Contracts {
		if existing.BuyerID == contract.BuyerID &&
			existing.OfferID == contract.OfferID &&
			existing.Status.Live() {
			return nil, gorm.ErrDuplicatedKey
		}
	}

	saved := *contract
	saved.ID = uuid.New()
	saved.Version = 1
	saved.CreatedAt = time.Now().UTC()
	saved.UpdatedAt = saved.CreatedAt
	s.Contracts[saved.ID] = &saved

	result := saved
	return &result, nil
}

func (s *InMemoryContractStore) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.Contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	result := *stored
	return &result, nil
}

func (s *InMemoryContractStore) ListForParticipant(
	_ context.Context,
	userID uuid.UUID,
	status *model.ContractStatus,
) ([]model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var contracts []model.Contract
	for _, stored := range s.Contracts {
		if stored.BuyerID != userID && stored.ProviderID != userID {
			continue
		}
		if status != nil && stored.Status != *status {
			continue
		}
		contracts = append(contracts, *stored)
	}
	return contracts, nil
}

func (s *InMemoryContractStore) CountLive(_ context.Context, buyerID, offerID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, stored := range s.Contracts {
		if stored.BuyerID == buyerID && stored.OfferID == offerID && stored.Status.Live() {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryContractStore) UpdateStatus(_ context.Context, contract *model.Contract) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return nil, s.UpdateErr
	}

	stored, ok := s.Contracts[contract.ID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if stored.Version != contract.Version {
		return nil, repository.ErrStaleVersion
	}

	stored.Status = contract.Status
	stored.ServiceStartedAt = contract.ServiceStartedAt
	stored.ServiceEndedAt = contract.ServiceEndedAt
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	result := *stored
	return &result, nil
}

type InMemoryOfferStore struct {
	Offers map[uuid.UUID]*model.Offer
}

func NewInMemoryOfferStore() *InMemoryOfferStore {
	return &InMemoryOfferStore{Offers: map[uuid.UUID]*model.Offer{}}
}

func (s *InMemoryOfferStore) GetByID(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	stored, ok := s.Offers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	result := *stored
	return &result, nil
}

type InMemoryNegotiationStore struct {
	mu           sync.Mutex
	Negotiations map[uuid.UUID]*model.Negotiation
	ContractSt   *InMemoryContractStore
}

func NewInMemoryNegotiationStore(contracts *InMemoryContractStore) *InMemoryNegotiationStore {
	return &InMemoryNegotiationStore{
		Negotiations: map[uuid.UUID]*model.Negotiation{},
		ContractSt:   contracts,
	}
}

func copyNegotiation(n *model.Negotiation) *model.Negotiation {
	result := *n
	result.Entries = append([]model.NegotiationEntry(nil), n.Entries...)
	return &result
}

func (s *InMemoryNegotiationStore) Create(
	_ context.Context,
	negotiation *model.Negotiation,
	seed model.NegotiationEntry,
) (*model.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *negotiation
	saved.ID = uuid.New()
	saved.Version = 1
	saved.CreatedAt = time.Now().UTC()
	saved.UpdatedAt = saved.CreatedAt

	seed.ID = uuid.New()
	seed.NegotiationID = saved.ID
	seed.Seq = 1
	saved.Entries = []model.NegotiationEntry{seed}

	s.Negotiations[saved.ID] = &saved
	return copyNegotiation(&saved), nil
}

func (s *InMemoryNegotiationStore) GetByID(_ context.Context, id uuid.UUID) (*model.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.Negotiations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyNegotiation(stored), nil
}

func (s *InMemoryNegotiationStore) ListByContract(_ context.Context, contractID uuid.UUID) ([]model.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var negotiations []model.Negotiation
	for _, stored := range s.Negotiations {
		if stored.ContractID == contractID {
			negotiations = append(negotiations, *copyNegotiation(stored))
		}
	}
	return negotiations, nil
}

func (s *InMemoryNegotiationStore) AppendEntry(
	_ context.Context,
	negotiation *model.Negotiation,
	entry model.NegotiationEntry,
	newStatus model.NegotiationStatus,
) (*model.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.Negotiations[negotiation.ID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if stored.Version != negotiation.Version {
		return nil, repository.ErrStaleVersion
	}

	entry.ID = uuid.New()
	entry.NegotiationID = stored.ID
	entry.Seq = len(stored.Entries) + 1
	stored.Entries = append(stored.Entries, entry)
	stored.Status = newStatus
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	return copyNegotiation(stored), nil
}

func (s *InMemoryNegotiationStore) SetStatus(
	_ context.Context,
	negotiation *model.Negotiation,
	status model.NegotiationStatus,
) (*model.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.Negotiations[negotiation.ID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if stored.Version != negotiation.Version {
		return nil, repository.ErrStaleVersion
	}

	stored.Status = status
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	return copyNegotiation(stored), nil
}

func (s *InMemoryNegotiationStore) FinalizeAccept(
	_ context.Context,
	negotiation *model.Negotiation,
	finalPrice *float64,
	finalDeadline *time.Time,
) (*model.Negotiation, *model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ContractSt.mu.Lock()
	defer s.ContractSt.mu.Unlock()

	contract, ok := s.ContractSt.Contracts[negotiation.ContractID]
	if !ok {
		return nil, nil, repository.ErrContractChanged
	}
	if contract.BuyerID != negotiation.BuyerID || contract.ProviderID != negotiation.ProviderID {
		return nil, nil, repository.ErrContractChanged
	}
	if !contract.Status.Negotiable() {
		return nil, nil, repository.ErrContractChanged
	}

	stored, ok := s.Negotiations[negotiation.ID]
	if !ok {
		return nil, nil, gorm.ErrRecordNotFound
	}
	if stored.Version != negotiation.Version || stored.Status.Terminal() {
		return nil, nil, repository.ErrStaleVersion
	}

	stored.Status = model.NegotiationStatusAccepted
	stored.FinalPrice = finalPrice
	stored.FinalDeadline = finalDeadline
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	if finalPrice != nil {
		contract.TotalValue = *finalPrice
	}
	if finalDeadline != nil {
		contract.ServiceDeadline = finalDeadline
	}
	contract.Version++
	contract.UpdatedAt = time.Now().UTC()

	savedContract := *contract
	return copyNegotiation(stored), &savedContract, nil
}

// RecordingPublisher captures published events for assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []RecordedEvent
}

type RecordedEvent struct {
	Type    string
	Payload any
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(_ context.Context, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, RecordedEvent{Type: eventType, Payload: payload})
}

// Types returns the event types in publish order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.Events))
	for _, event := range p.Events {
		types = append(types, event.Type)
	}
	return types
}
