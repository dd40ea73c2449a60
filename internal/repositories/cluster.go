package repositories

import (
	"context"
	"strconv"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"poolguard/internal/models"
	"poolguard/internal/services/collusion"
)

// ClusterRepository persists collusion sweep results for audit.
type ClusterRepository interface {
	SaveSweep(ctx context.Context, sweepID string, res *collusion.Result, at time.Time) error
	LatestSweep(ctx context.Context) ([]models.CollusionCluster, error)
}

type clusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a GORM-backed cluster repository.
func NewClusterRepository(db *gorm.DB) ClusterRepository {
	return &clusterRepository{db: db}
}

func (r *clusterRepository) SaveSweep(ctx context.Context, sweepID string, res *collusion.Result, at time.Time) error {
	if len(res.Clusters) == 0 {
		return nil
	}
	rows := make([]models.CollusionCluster, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		members := make(pq.StringArray, 0, len(c.Members))
		for _, id := range c.Members {
			members = append(members, strconv.FormatUint(uint64(id), 10))
		}
		rows = append(rows, models.CollusionCluster{
			SweepID:    sweepID,
			Members:    members,
			Density:    c.Density,
			Partial:    res.Partial,
			DetectedAt: at,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *clusterRepository) LatestSweep(ctx context.Context) ([]models.CollusionCluster, error) {
	var latest models.CollusionCluster
	err := r.db.WithContext(ctx).Order("id DESC").First(&latest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	var rows []models.CollusionCluster
	err = r.db.WithContext(ctx).Where("sweep_id = ?", latest.SweepID).
		Order("id").Find(&rows).Error
	return rows, err
}
