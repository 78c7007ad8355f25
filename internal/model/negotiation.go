package model

import (
	"time"

	"github.com/google/uuid"
)

type NegotiationStatus string

const (
	NegotiationStatusStarted          NegotiationStatus = "STARTED"
	NegotiationStatusAwaitingProvider NegotiationStatus = "AWAITING_PROVIDER"
	NegotiationStatusAwaitingBuyer    NegotiationStatus = "AWAITING_BUYER"
	NegotiationStatusAccepted         NegotiationStatus = "ACCEPTED"
	NegotiationStatusRejected         NegotiationStatus = "REJECTED"
	NegotiationStatusCancelled        NegotiationStatus = "CANCELLED"
)

// Terminal reports whether the negotiation is closed. A terminal negotiation
// accepts no further entries and cannot be finalized again.
func (s NegotiationStatus) Terminal() bool {
	switch s {
	case NegotiationStatusAccepted, NegotiationStatusRejected, NegotiationStatusCancelled:
		return true
	}
	return false
}

type NegotiationEntryType string

const (
	EntryTypeBuyerProposal    NegotiationEntryType = "BUYER_PROPOSAL"
	EntryTypeProviderResponse NegotiationEntryType = "PROVIDER_RESPONSE"
	EntryTypePlainMessage     NegotiationEntryType = "PLAIN_MESSAGE"
)

// NegotiationEntry is one element of a negotiation's append-only history.
// Seq is dense and assigned by the store; entries are never mutated or
// reordered after append.
type NegotiationEntry struct {
	ID               uuid.UUID            `json:"id"`
	NegotiationID    uuid.UUID            `json:"negotiation_id"`
	Seq              int                  `json:"seq"`
	AuthorID         uuid.UUID            `json:"author_id"`
	EntryType        NegotiationEntryType `json:"entry_type"`
	ProposedPrice    *float64             `json:"proposed_price,omitempty"`
	ProposedDeadline *time.Time           `json:"proposed_deadline,omitempty"`
	Notes            string               `json:"notes"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Negotiation is one renegotiation thread tied to exactly one contract.
// BuyerID/ProviderID are denormalized from the contract at creation so
// authorization checks do not need a join; the finalizer re-validates them
// against the contract at commit time.
type Negotiation struct {
	ID            uuid.UUID          `json:"id"`
	ContractID    uuid.UUID          `json:"contract_id"`
	BuyerID       uuid.UUID          `json:"buyer_id"`
	ProviderID    uuid.UUID          `json:"provider_id"`
	Status        NegotiationStatus  `json:"status"`
	FinalPrice    *float64           `json:"final_price,omitempty"`
	FinalDeadline *time.Time         `json:"final_deadline,omitempty"`
	Version       int64              `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Entries       []NegotiationEntry `json:"entries,omitempty"`
}

// Participant reports whether userID is a party to the negotiation.
func (n *Negotiation) Participant(userID uuid.UUID) bool {
	return n.BuyerID == userID || n.ProviderID == userID
}

// AwaitedParty returns the user the negotiation is currently waiting on,
// or uuid.Nil when the negotiation is not awaiting anyone.
func (n *Negotiation) AwaitedParty() uuid.UUID {
	switch n.Status {
	case NegotiationStatusAwaitingBuyer:
		return n.BuyerID
	case NegotiationStatusAwaitingProvider:
		return n.ProviderID
	}
	return uuid.Nil
}
