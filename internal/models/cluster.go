package models

import (
	"time"

	"github.com/lib/pq"
)

// CollusionCluster persists one detected cluster from a sweep. Members hold
// the user IDs of the cluster, smallest first.
type CollusionCluster struct {
	ID         uint           `gorm:"primarykey"`
	SweepID    string         `gorm:"not null;index"`
	Members    pq.StringArray `gorm:"type:text[]"`
	Density    float64        `gorm:"default:0"`
	Partial    bool           `gorm:"default:false"`
	DetectedAt time.Time
}
