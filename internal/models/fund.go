package models

import (
	"time"

	"gorm.io/gorm"
)

// Fund release states. Transitions are one-way:
// pending -> completed -> released.
const (
	FundStatusPending   = "pending"
	FundStatusCompleted = "completed"
	FundStatusReleased  = "released"
)

// Fund is a pooling campaign. CurrentAmount is monotonically non-decreasing
// except on explicit correction. Funds are archived, never destroyed here.
type Fund struct {
	gorm.Model
	Name          string  `gorm:"not null"`
	TargetAmount  float64 `gorm:"not null"`
	CurrentAmount float64 `gorm:"default:0"`
	Status        string  `gorm:"default:'pending'"`
	GoalDate      time.Time
}

// Contribution is immutable once recorded; it is appended to both the escrow
// ledger and the collusion graph.
type Contribution struct {
	ID        uint    `gorm:"primarykey"`
	UserID    uint    `gorm:"not null;index"`
	FundID    uint    `gorm:"not null;index"`
	Amount    float64 `gorm:"not null"`
	CreatedAt time.Time
}
