package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusPending             ContractStatus = "PENDING"
	ContractStatusAccepted            ContractStatus = "ACCEPTED"
	ContractStatusInProgress          ContractStatus = "IN_PROGRESS"
	ContractStatusCompleted           ContractStatus = "COMPLETED"
	ContractStatusCancelledByBuyer    ContractStatus = "CANCELLED_BY_BUYER"
	ContractStatusCancelledByProvider ContractStatus = "CANCELLED_BY_PROVIDER"
	ContractStatusDisputed            ContractStatus = "DISPUTED"
)

// Terminal reports whether the status ends the contract lifecycle.
// Terminal contracts are retained for audit and never transition again.
func (s ContractStatus) Terminal() bool {
	switch s {
	case ContractStatusCompleted,
		ContractStatusCancelledByBuyer,
		ContractStatusCancelledByProvider,
		ContractStatusDisputed:
		return true
	}
	return false
}

// Live reports whether the contract counts against the
// one-live-engagement-per-(buyer, offer) rule.
func (s ContractStatus) Live() bool {
	switch s {
	case ContractStatusPending, ContractStatusAccepted, ContractStatusInProgress:
		return true
	}
	return false
}

// Negotiable reports whether a negotiation may be opened, or an accepted
// negotiation applied, against a contract in this status.
func (s ContractStatus) Negotiable() bool {
	return s == ContractStatusPending || s == ContractStatusAccepted
}

type Contract struct {
	ID               uuid.UUID      `json:"id"`
	BuyerID          uuid.UUID      `json:"buyer_id"`
	ProviderID       uuid.UUID      `json:"provider_id"`
	OfferID          uuid.UUID      `json:"offer_id"`
	Status           ContractStatus `json:"status"`
	TotalValue       float64        `json:"total_value"`
	ServiceDeadline  *time.Time     `json:"service_deadline,omitempty"`
	ServiceStartedAt *time.Time     `json:"service_started_at,omitempty"`
	ServiceEndedAt   *time.Time     `json:"service_ended_at,omitempty"`
	Version          int64          `json:"version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Participant reports whether userID is one of the two contract parties.
func (c *Contract) Participant(userID uuid.UUID) bool {
	return c.BuyerID == userID || c.ProviderID == userID
}

// RoleOf returns the role userID plays on this contract, or "" for outsiders.
func (c *Contract) RoleOf(userID uuid.UUID) Role {
	switch userID {
	case c.BuyerID:
		return RoleBuyer
	case c.ProviderID:
		return RoleProvider
	}
	return ""
}
