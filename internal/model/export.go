package model

import (
	"time"

	"github.com/google/uuid"
)

// ContractStatement is the data behind the printable contract statement.
type ContractStatement struct {
	Contract     Contract
	Negotiations []Negotiation
	GeneratedAt  time.Time
}

// EngagementExport is the data behind the engagement list workbook for one
// participant over a period.
type EngagementExport struct {
	UserID      uuid.UUID
	Role        Role
	PeriodStart time.Time
	PeriodEnd   time.Time
	Contracts   []Contract
}
