package models

import "time"

// Feedback event types.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
	FeedbackNeutral  = "neutral"
)

// Feedback targets.
const (
	TargetKindUser = "user"
	TargetKindFund = "fund"
)

// FeedbackEvent is a moderator or user judgement on a user or fund. Replayed
// events with the same (source, target, occurred_at) are deduplicated by the
// composite unique index.
type FeedbackEvent struct {
	ID           uint      `gorm:"primarykey"`
	SourceUserID uint      `gorm:"not null;uniqueIndex:idx_feedback_dedupe"`
	TargetID     uint      `gorm:"not null;uniqueIndex:idx_feedback_dedupe"`
	TargetKind   string    `gorm:"not null"`
	Type         string    `gorm:"not null"`
	OccurredAt   time.Time `gorm:"not null;uniqueIndex:idx_feedback_dedupe"`
	CreatedAt    time.Time
}

// RetrainState is a singleton row holding the retrain watermark.
type RetrainState struct {
	ID              uint `gorm:"primarykey"`
	LastRetrainTime time.Time
	UpdatedAt       time.Time
}
