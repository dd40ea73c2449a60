package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"poolguard/internal/models"
)

// UserRepository is the contributor store. Scores and flags are written only
// through UpdateScore, by the credibility service.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByExternalID(externalID string) (*models.User, error)
	UpdateScore(ctx context.Context, id uint, res models.CredibilityResult) error
	SetDuplicateDevice(ctx context.Context, id uint, duplicate bool) error
	Deactivate(id uint) error
	ListActiveIDs(ctx context.Context) ([]uint, error)
	// CountRedContributors returns the number of distinct red-flagged users
	// who contributed to the fund.
	CountRedContributors(ctx context.Context, fundID uint) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByExternalID(externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("external_id = ?", externalID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateScore(ctx context.Context, id uint, res models.CredibilityResult) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"credibility_score": res.Score,
		"flag":              res.Flag,
		"risk_level":        res.RiskLevel,
		"partial":           res.Partial,
		"last_scored_at":    time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetDuplicateDevice(ctx context.Context, id uint, duplicate bool) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("duplicate_device", duplicate)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Deactivate(id uint) error {
	result := r.db.Model(&models.User{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("active = ?", true).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) CountRedContributors(ctx context.Context, fundID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN contributions ON contributions.user_id = users.id").
		Where("contributions.fund_id = ? AND users.flag = ?", fundID, models.FlagRed).
		Distinct("users.id").
		Count(&count).Error
	return count, err
}
