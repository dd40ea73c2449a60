package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"poolguard/internal/models"
)

// FeedbackRepository is the append-only feedback log plus the retrain
// watermark.
type FeedbackRepository interface {
	// Append stores one feedback event. A replayed event with the same
	// (source, target, occurred_at) key returns ErrDuplicateFeedback.
	Append(ctx context.Context, event *models.FeedbackEvent) error
	CountSince(ctx context.Context, t time.Time) (int64, error)
	RetrainState(ctx context.Context) (*models.RetrainState, error)
	SetRetrainTime(ctx context.Context, t time.Time) error
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a GORM-backed feedback repository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Append(ctx context.Context, event *models.FeedbackEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateFeedback
	}
	return err
}

func (r *feedbackRepository) CountSince(ctx context.Context, t time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FeedbackEvent{}).
		Where("occurred_at > ?", t).Count(&count).Error
	return count, err
}

// RetrainState returns the singleton watermark row, creating it at the zero
// time if missing.
func (r *feedbackRepository) RetrainState(ctx context.Context) (*models.RetrainState, error) {
	var state models.RetrainState
	err := r.db.WithContext(ctx).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.RetrainState{}
		if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *feedbackRepository) SetRetrainTime(ctx context.Context, t time.Time) error {
	state, err := r.RetrainState(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(state).
		Update("last_retrain_time", t).Error
}
