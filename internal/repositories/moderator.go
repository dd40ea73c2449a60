package repositories

import (
	"errors"

	"gorm.io/gorm"

	"poolguard/internal/models"
)

// ModeratorRepository is the operator account store.
type ModeratorRepository interface {
	Create(m *models.Moderator) error
	GetByID(id uint) (*models.Moderator, error)
	GetByEmail(email string) (*models.Moderator, error)
	Update(m *models.Moderator) error
	IncrementTokenVersion(id uint) error
}

type moderatorRepository struct {
	db *gorm.DB
}

// NewModeratorRepository creates a GORM-backed moderator repository.
func NewModeratorRepository(db *gorm.DB) ModeratorRepository {
	return &moderatorRepository{db: db}
}

func (r *moderatorRepository) Create(m *models.Moderator) error {
	return r.db.Create(m).Error
}

func (r *moderatorRepository) GetByID(id uint) (*models.Moderator, error) {
	var m models.Moderator
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModeratorNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *moderatorRepository) GetByEmail(email string) (*models.Moderator, error) {
	var m models.Moderator
	if err := r.db.Where("email = ?", email).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModeratorNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *moderatorRepository) Update(m *models.Moderator) error {
	return r.db.Save(m).Error
}

func (r *moderatorRepository) IncrementTokenVersion(id uint) error {
	return r.db.Model(&models.Moderator{}).Where("id = ?", id).
		Update("token_version", gorm.Expr("token_version + 1")).Error
}
