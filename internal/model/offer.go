package model

import (
	"time"

	"github.com/google/uuid"
)

type OfferStatus string

const (
	OfferStatusAvailable OfferStatus = "AVAILABLE"
	OfferStatusPaused    OfferStatus = "PAUSED"
	OfferStatusWithdrawn OfferStatus = "WITHDRAWN"
)

// Offer is a provider's published service listing. The catalog is owned by an
// external service; this service only reads it to validate engagements.
type Offer struct {
	ID         uuid.UUID   `json:"id"`
	ProviderID uuid.UUID   `json:"provider_id"`
	Title      string      `json:"title"`
	Price      float64     `json:"price"`
	Status     OfferStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}
