package pdf_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/pdf"
)

func TestGenerate(t *testing.T) {
	started := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	finalPrice := 180.0

	statement := model.ContractStatement{
		Contract: model.Contract{
			ID:               uuid.New(),
			BuyerID:          uuid.New(),
			ProviderID:       uuid.New(),
			OfferID:          uuid.New(),
			Status:           model.ContractStatusInProgress,
			TotalValue:       180,
			ServiceStartedAt: &started,
			CreatedAt:        started.Add(-72 * time.Hour),
		},
		Negotiations: []model.Negotiation{
			{
				ID:         uuid.New(),
				Status:     model.NegotiationStatusAccepted,
				FinalPrice: &finalPrice,
				CreatedAt:  started.Add(-48 * time.Hour),
				Entries:    make([]model.NegotiationEntry, 3),
			},
		},
		GeneratedAt: time.Now().UTC(),
	}

	content, err := pdf.NewGenerator().Generate(statement)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
	assert.Greater(t, len(content), 500)
}

func TestGenerate_NoNegotiations(t *testing.T) {
	statement := model.ContractStatement{
		Contract: model.Contract{
			ID:     uuid.New(),
			Status: model.ContractStatusPending,
		},
		GeneratedAt: time.Now().UTC(),
	}

	content, err := pdf.NewGenerator().Generate(statement)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}
