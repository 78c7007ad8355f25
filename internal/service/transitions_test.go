package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/contracts-service/internal/model"
)

func TestAllowedTransition(t *testing.T) {
	cases := []struct {
		name string
		from model.ContractStatus
		to   model.ContractStatus
		role model.Role
		want bool
	}{
		{"provider accepts pending", model.ContractStatusPending, model.ContractStatusAccepted, model.RoleProvider, true},
		{"buyer cannot accept", model.ContractStatusPending, model.ContractStatusAccepted, model.RoleBuyer, false},
		{"provider starts accepted", model.ContractStatusAccepted, model.ContractStatusInProgress, model.RoleProvider, true},
		{"buyer cannot start", model.ContractStatusAccepted, model.ContractStatusInProgress, model.RoleBuyer, false},
		{"provider completes in-progress", model.ContractStatusInProgress, model.ContractStatusCompleted, model.RoleProvider, true},
		{"skip pending to completed denied", model.ContractStatusPending, model.ContractStatusCompleted, model.RoleProvider, false},
		{"skip pending to in-progress denied", model.ContractStatusPending, model.ContractStatusInProgress, model.RoleProvider, false},
		{"buyer cancels pending", model.ContractStatusPending, model.ContractStatusCancelledByBuyer, model.RoleBuyer, true},
		{"buyer cancels in-progress", model.ContractStatusInProgress, model.ContractStatusCancelledByBuyer, model.RoleBuyer, true},
		{"provider cannot cancel as buyer", model.ContractStatusPending, model.ContractStatusCancelledByBuyer, model.RoleProvider, false},
		{"provider cancels accepted", model.ContractStatusAccepted, model.ContractStatusCancelledByProvider, model.RoleProvider, true},
		{"buyer cannot cancel as provider", model.ContractStatusAccepted, model.ContractStatusCancelledByProvider, model.RoleBuyer, false},
		{"cancel from completed denied", model.ContractStatusCompleted, model.ContractStatusCancelledByBuyer, model.RoleBuyer, false},
		{"buyer disputes pending", model.ContractStatusPending, model.ContractStatusDisputed, model.RoleBuyer, true},
		{"provider disputes in-progress", model.ContractStatusInProgress, model.ContractStatusDisputed, model.RoleProvider, true},
		{"dispute from terminal denied", model.ContractStatusCompleted, model.ContractStatusDisputed, model.RoleBuyer, false},
		{"dispute from disputed denied", model.ContractStatusDisputed, model.ContractStatusDisputed, model.RoleBuyer, false},
		{"no self transition", model.ContractStatusInProgress, model.ContractStatusInProgress, model.RoleProvider, false},
		{"back to pending denied for provider", model.ContractStatusAccepted, model.ContractStatusPending, model.RoleProvider, false},
		{"back to pending denied for buyer", model.ContractStatusInProgress, model.ContractStatusPending, model.RoleBuyer, false},
		{"terminal stays terminal", model.ContractStatusCancelledByBuyer, model.ContractStatusAccepted, model.RoleProvider, false},
		{"unknown role denied", model.ContractStatusPending, model.ContractStatusAccepted, model.Role("ADMIN"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, allowedTransition(tc.from, tc.to, tc.role))
		})
	}
}

func TestApplyTransition_StartTimestampWriteOnce(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	contract := &model.Contract{Status: model.ContractStatusAccepted}
	applyTransition(contract, model.ContractStatusInProgress, first)
	require.NotNil(t, contract.ServiceStartedAt)
	assert.Equal(t, first, *contract.ServiceStartedAt)

	applyTransition(contract, model.ContractStatusInProgress, second)
	assert.Equal(t, first, *contract.ServiceStartedAt, "start time must never move once set")
}

func TestApplyTransition_CompletedStampsEnd(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(48 * time.Hour)

	contract := &model.Contract{
		Status:           model.ContractStatusInProgress,
		ServiceStartedAt: &started,
	}
	applyTransition(contract, model.ContractStatusCompleted, ended)

	require.NotNil(t, contract.ServiceEndedAt)
	assert.Equal(t, ended, *contract.ServiceEndedAt)
	assert.False(t, contract.ServiceEndedAt.Before(*contract.ServiceStartedAt))
}
