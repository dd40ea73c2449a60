package models

import "time"

// EscrowLedgerEntry records a fund status transition. The ledger is
// append-only; the current status of a fund is its latest entry.
type EscrowLedgerEntry struct {
	ID         uint   `gorm:"primarykey"`
	FundID     uint   `gorm:"not null;index"`
	Status     string `gorm:"not null"`
	Reason     string `gorm:"not null"`
	DecisionID string `gorm:"not null"`
	Metadata   JSON   `gorm:"type:jsonb"`
	CreatedAt  time.Time
}
