package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"poolguard/internal/models"
)

// FundRepository is the escrow ledger store. Ledger entries are append-only;
// ExecuteInTransaction runs a closure against a repository bound to one
// database transaction so fund mutations commit atomically.
type FundRepository interface {
	Create(fund *models.Fund) error
	GetByID(id uint) (*models.Fund, error)
	Update(fund *models.Fund) error
	CreateContribution(c *models.Contribution) error
	ListContributions(ctx context.Context, fundID uint) ([]models.Contribution, error)
	ListAllContributions(ctx context.Context) ([]models.Contribution, error)
	ListFundIDs(ctx context.Context) ([]uint, error)
	AppendLedger(entry *models.EscrowLedgerEntry) error
	LatestLedger(fundID uint) (*models.EscrowLedgerEntry, error)
	LedgerHistory(ctx context.Context, fundID uint) ([]models.EscrowLedgerEntry, error)
	ExecuteInTransaction(fn func(repo FundRepository) error) error
}

type fundRepository struct {
	db *gorm.DB
}

// NewFundRepository creates a GORM-backed fund repository.
func NewFundRepository(db *gorm.DB) FundRepository {
	return &fundRepository{db: db}
}

func (r *fundRepository) Create(fund *models.Fund) error {
	return r.db.Create(fund).Error
}

func (r *fundRepository) GetByID(id uint) (*models.Fund, error) {
	var fund models.Fund
	if err := r.db.First(&fund, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFundNotFound
		}
		return nil, err
	}
	return &fund, nil
}

func (r *fundRepository) Update(fund *models.Fund) error {
	return r.db.Save(fund).Error
}

func (r *fundRepository) CreateContribution(c *models.Contribution) error {
	return r.db.Create(c).Error
}

func (r *fundRepository) ListContributions(ctx context.Context, fundID uint) ([]models.Contribution, error) {
	var contributions []models.Contribution
	err := r.db.WithContext(ctx).Where("fund_id = ?", fundID).
		Order("id").Find(&contributions).Error
	return contributions, err
}

func (r *fundRepository) ListAllContributions(ctx context.Context) ([]models.Contribution, error) {
	var contributions []models.Contribution
	err := r.db.WithContext(ctx).Order("id").Find(&contributions).Error
	return contributions, err
}

func (r *fundRepository) ListFundIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Fund{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *fundRepository) AppendLedger(entry *models.EscrowLedgerEntry) error {
	return r.db.Create(entry).Error
}

// LatestLedger returns the newest ledger entry for a fund, or (nil, nil)
// when the fund has no entries yet.
func (r *fundRepository) LatestLedger(fundID uint) (*models.EscrowLedgerEntry, error) {
	var entry models.EscrowLedgerEntry
	err := r.db.Where("fund_id = ?", fundID).Order("id DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *fundRepository) LedgerHistory(ctx context.Context, fundID uint) ([]models.EscrowLedgerEntry, error) {
	var entries []models.EscrowLedgerEntry
	err := r.db.WithContext(ctx).Where("fund_id = ?", fundID).
		Order("id").Find(&entries).Error
	return entries, err
}

func (r *fundRepository) ExecuteInTransaction(fn func(repo FundRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&fundRepository{db: tx})
	})
}
