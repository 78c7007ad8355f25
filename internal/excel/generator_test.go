package excel_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/contracts-service/internal/excel"
	"github.com/nurpe/contracts-service/internal/model"
)

func TestGenerate(t *testing.T) {
	userID := uuid.New()
	created := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)

	export := model.EngagementExport{
		UserID:      userID,
		Role:        model.RoleBuyer,
		PeriodStart: created.AddDate(0, -1, 0),
		PeriodEnd:   created.AddDate(0, 1, 0),
		Contracts: []model.Contract{
			{
				ID:         uuid.New(),
				BuyerID:    userID,
				ProviderID: uuid.New(),
				OfferID:    uuid.New(),
				Status:     model.ContractStatusCompleted,
				TotalValue: 300,
				CreatedAt:  created,
			},
			{
				ID:         uuid.New(),
				BuyerID:    userID,
				ProviderID: uuid.New(),
				OfferID:    uuid.New(),
				Status:     model.ContractStatusPending,
				TotalValue: 120,
				CreatedAt:  created,
			},
		},
	}

	content, err := excel.NewGenerator().Generate(export)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	participant, err := file.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, userID.String(), participant)

	total, err := file.GetCellValue("Summary", "B6")
	require.NoError(t, err)
	assert.Equal(t, "420.00", total)

	status, err := file.GetCellValue("Engagements", "E2")
	require.NoError(t, err)
	assert.Equal(t, string(model.ContractStatusCompleted), status)

	status, err = file.GetCellValue("Engagements", "E3")
	require.NoError(t, err)
	assert.Equal(t, string(model.ContractStatusPending), status)
}
