package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/repository"
	"github.com/nurpe/contracts-service/internal/service"
	"github.com/nurpe/contracts-service/internal/testutils"
)

type contractFixture struct {
	contracts *testutils.InMemoryContractStore
	offers    *testutils.InMemoryOfferStore
	events    *testutils.RecordingPublisher
	svc       *service.ContractService
	buyer     model.Principal
	provider  model.Principal
	offer     *model.Offer
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()

	contracts := testutils.NewInMemoryContractStore()
	offers := testutils.NewInMemoryOfferStore()
	negotiations := testutils.NewInMemoryNegotiationStore(contracts)
	events := testutils.NewRecordingPublisher()

	buyer := model.Principal{UserID: uuid.New(), Role: model.RoleBuyer}
	provider := model.Principal{UserID: uuid.New(), Role: model.RoleProvider}

	offer := &model.Offer{
		ID:         uuid.New(),
		ProviderID: provider.UserID,
		Title:      "Garden maintenance",
		Price:      250,
		Status:     model.OfferStatusAvailable,
	}
	offers.Offers[offer.ID] = offer

	return &contractFixture{
		contracts: contracts,
		offers:    offers,
		events:    events,
		svc:       service.NewContractService(contracts, offers, negotiations, nil, nil, events),
		buyer:     buyer,
		provider:  provider,
		offer:     offer,
	}
}

func (f *contractFixture) createContract(t *testing.T) *model.Contract {
	t.Helper()
	contract, err := f.svc.Create(context.Background(), service.CreateContractInput{
		OfferID:   f.offer.ID,
		Principal: f.buyer,
	})
	require.NoError(t, err)
	return contract
}

func TestCreateContract(t *testing.T) {
	f := newContractFixture(t)

	contract := f.createContract(t)

	assert.Equal(t, model.ContractStatusPending, contract.Status)
	assert.Equal(t, f.buyer.UserID, contract.BuyerID)
	assert.Equal(t, f.provider.UserID, contract.ProviderID)
	assert.Equal(t, f.offer.Price, contract.TotalValue)
	assert.Equal(t, []string{"contract.created"}, f.events.Types())
}

func TestCreateContract_DuplicateEngagementGuard(t *testing.T) {
	f := newContractFixture(t)
	f.createContract(t)

	_, err := f.svc.Create(context.Background(), service.CreateContractInput{
		OfferID:   f.offer.ID,
		Principal: f.buyer,
	})
	require.ErrorIs(t, err, service.ErrConflict)

	live, err := f.contracts.CountLive(context.Background(), f.buyer.UserID, f.offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), live, "live contract count must stay at 1")
}

func TestCreateContract_AfterTerminalAllowed(t *testing.T) {
	f := newContractFixture(t)
	contract := f.createContract(t)

	_, err := f.svc.ChangeStatus(context.Background(), service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusCancelledByBuyer,
		Principal:  f.buyer,
	})
	require.NoError(t, err)

	// A cancelled engagement no longer blocks a fresh one.
	f.createContract(t)
}

func TestCreateContract_Rejections(t *testing.T) {
	f := newContractFixture(t)

	t.Run("provider role", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), service.CreateContractInput{
			OfferID:   f.offer.ID,
			Principal: f.provider,
		})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("missing offer", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), service.CreateContractInput{
			OfferID:   uuid.New(),
			Principal: f.buyer,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("self engagement", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), service.CreateContractInput{
			OfferID:   f.offer.ID,
			Principal: model.Principal{UserID: f.provider.UserID, Role: model.RoleBuyer},
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("paused offer", func(t *testing.T) {
		paused := &model.Offer{
			ID:         uuid.New(),
			ProviderID: f.provider.UserID,
			Price:      100,
			Status:     model.OfferStatusPaused,
		}
		f.offers.Offers[paused.ID] = paused

		_, err := f.svc.Create(context.Background(), service.CreateContractInput{
			OfferID:   paused.ID,
			Principal: f.buyer,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestChangeStatus_FullLifecycle(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.createContract(t)

	accepted, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusAccepted,
		Principal:  f.provider,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusAccepted, accepted.Status)

	// The buyer repeating the provider's move must be denied.
	_, err = f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusAccepted,
		Principal:  f.buyer,
	})
	require.ErrorIs(t, err, service.ErrActionNotAllowed)

	started, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusInProgress,
		Principal:  f.provider,
	})
	require.NoError(t, err)
	require.NotNil(t, started.ServiceStartedAt)

	completed, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusCompleted,
		Principal:  f.provider,
	})
	require.NoError(t, err)
	require.NotNil(t, completed.ServiceEndedAt)
	assert.False(t, completed.ServiceEndedAt.Before(*completed.ServiceStartedAt))
}

func TestChangeStatus_DeniedTransitionLeavesContractUnchanged(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.createContract(t)

	_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusCompleted,
		Principal:  f.provider,
	})
	require.ErrorIs(t, err, service.ErrActionNotAllowed)

	reloaded, err := f.svc.Get(ctx, contract.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusPending, reloaded.Status)
	assert.Nil(t, reloaded.ServiceStartedAt)
	assert.Nil(t, reloaded.ServiceEndedAt)
	assert.Equal(t, contract.Version, reloaded.Version)
}

func TestChangeStatus_StartTimeSetOnce(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.createContract(t)

	_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusAccepted,
		Principal:  f.provider,
	})
	require.NoError(t, err)

	started, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusInProgress,
		Principal:  f.provider,
	})
	require.NoError(t, err)
	firstStart := *started.ServiceStartedAt

	// A repeated IN_PROGRESS request is not in the table; the timestamp must
	// survive untouched.
	_, err = f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusInProgress,
		Principal:  f.provider,
	})
	require.ErrorIs(t, err, service.ErrActionNotAllowed)

	reloaded, err := f.svc.Get(ctx, contract.ID, f.provider)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ServiceStartedAt)
	assert.Equal(t, firstStart, *reloaded.ServiceStartedAt)
}

func TestChangeStatus_BackToPendingDenied(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.createContract(t)

	_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusAccepted,
		Principal:  f.provider,
	})
	require.NoError(t, err)

	// PENDING is a recognized status, so moving back to it is a table miss,
	// not malformed input: the caller gets ActionNotAllowed whichever party
	// asks.
	for _, principal := range []model.Principal{f.buyer, f.provider} {
		_, err = f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
			ContractID: contract.ID,
			Requested:  model.ContractStatusPending,
			Principal:  principal,
		})
		assert.ErrorIs(t, err, service.ErrActionNotAllowed)
	}

	reloaded, err := f.svc.Get(ctx, contract.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusAccepted, reloaded.Status)
}

func TestChangeStatus_Errors(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.createContract(t)

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
			ContractID: contract.ID,
			Requested:  model.ContractStatus("SHIPPED"),
			Principal:  f.provider,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("non participant", func(t *testing.T) {
		_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
			ContractID: contract.ID,
			Requested:  model.ContractStatusAccepted,
			Principal:  model.Principal{UserID: uuid.New(), Role: model.RoleProvider},
		})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("missing contract", func(t *testing.T) {
		_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
			ContractID: uuid.New(),
			Requested:  model.ContractStatusAccepted,
			Principal:  f.provider,
		})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("missing contract wins over bad status", func(t *testing.T) {
		_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
			ContractID: uuid.New(),
			Requested:  model.ContractStatus("SHIPPED"),
			Principal:  f.provider,
		})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("concurrent modification", func(t *testing.T) {
		f.contracts.UpdateErr = repository.ErrStaleVersion
		defer func() { f.contracts.UpdateErr = nil }()

		_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
			ContractID: contract.ID,
			Requested:  model.ContractStatusAccepted,
			Principal:  f.provider,
		})
		assert.ErrorIs(t, err, service.ErrConflict)
	})
}

func TestGetContract_NonParticipant(t *testing.T) {
	f := newContractFixture(t)
	contract := f.createContract(t)

	_, err := f.svc.Get(context.Background(), contract.ID, model.Principal{
		UserID: uuid.New(),
		Role:   model.RoleBuyer,
	})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestListContracts_StatusFilter(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.createContract(t)

	_, err := f.svc.ChangeStatus(ctx, service.ChangeStatusInput{
		ContractID: contract.ID,
		Requested:  model.ContractStatusAccepted,
		Principal:  f.provider,
	})
	require.NoError(t, err)

	pending := model.ContractStatusPending
	listed, err := f.svc.List(ctx, f.buyer, &pending)
	require.NoError(t, err)
	assert.Empty(t, listed)

	accepted := model.ContractStatusAccepted
	listed, err = f.svc.List(ctx, f.buyer, &accepted)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
