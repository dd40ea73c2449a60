package models

import (
	"time"

	"gorm.io/gorm"
)

// Credibility flags, banded from the fused score. Bands are closed-open:
// green >= 0.75, yellow [0.5, 0.75), red < 0.5.
const (
	FlagGreen  = "green"
	FlagYellow = "yellow"
	FlagRed    = "red"
)

// Risk levels derived from the flag.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// User is a fund contributor. Created on first contribution; score and flag
// are mutated only by the credibility service. Users are deactivated, never
// deleted.
type User struct {
	gorm.Model
	ExternalID       string  `gorm:"uniqueIndex;not null"`
	Name             string  `gorm:"not null"`
	CredibilityScore float64 `gorm:"default:0"`
	Flag             string  `gorm:"default:'red'"`
	RiskLevel        string  `gorm:"default:'high'"`
	Partial          bool    `gorm:"default:true"`
	DuplicateDevice  bool    `gorm:"default:false"`
	Active           bool    `gorm:"default:true"`
	LastScoredAt     time.Time
}
