// Package collusion analyses the user-fund contribution graph for synthetic
// or colluding pools. It flags users connected to suspiciously many funds and
// partitions users into collusion clusters via greedy modularity
// maximisation. Detection only ever runs over graph snapshots.
package collusion

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"poolguard/internal/graph"
)

// DefaultMinConnections is the fund-neighbor threshold above which a user is
// considered highly connected.
const DefaultMinConnections = 3

// Detector runs batch collusion analysis over graph snapshots.
type Detector struct {
	minConnections int
	logger         *zap.Logger
}

// NewDetector creates a detector. minConnections <= 0 falls back to the
// default; a nil logger falls back to a no-op logger.
func NewDetector(minConnections int, logger *zap.Logger) *Detector {
	if minConnections <= 0 {
		minConnections = DefaultMinConnections
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{minConnections: minConnections, logger: logger}
}

// MinConnections returns the configured fund-neighbor threshold.
func (d *Detector) MinConnections() int { return d.minConnections }

// Detect produces the highly-connected user set and the collusion clusters
// for one snapshot. An empty snapshot yields an empty result, not an error.
//
// The pass honors the context deadline: the highly-connected scan is cheap
// and always completes; if the deadline expires during cluster search the
// result carries the communities merged so far and Partial=true.
func (d *Detector) Detect(ctx context.Context, snap *graph.Snapshot) (*Result, error) {
	res := &Result{}
	if snap == nil || snap.Empty() {
		return res, nil
	}

	res.HighlyConnected = d.highlyConnected(snap)

	clusters, partial := detectClusters(ctx, snap)
	res.Clusters = clusters
	res.Partial = partial
	if partial {
		d.logger.Warn("collusion cluster search hit deadline, returning partial result",
			zap.Int("clusters", len(clusters)),
			zap.Int("highly_connected", len(res.HighlyConnected)))
	} else {
		d.logger.Debug("collusion detection pass finished",
			zap.Int("clusters", len(clusters)),
			zap.Int("highly_connected", len(res.HighlyConnected)))
	}
	return res, nil
}

// highlyConnected flags users with at least minConnections distinct fund
// neighbors. O(V+E) over the snapshot; Users is sorted so output is
// deterministic.
func (d *Detector) highlyConnected(snap *graph.Snapshot) []uint {
	var flagged []uint
	for _, userID := range snap.Users {
		if snap.FundNeighborCount(userID) >= d.minConnections {
			flagged = append(flagged, userID)
		}
	}
	return flagged
}

// GraphScore maps one user's position in the snapshot to a [0,1] risk score:
// 1.0 for members of any cluster or of the highly-connected set, otherwise
// the continuous decay min(1, fundNeighborCount/minConnections).
func (d *Detector) GraphScore(snap *graph.Snapshot, res *Result, userID uint) float64 {
	if res != nil && (res.InCluster(userID) || res.IsHighlyConnected(userID)) {
		return 1.0
	}
	score := float64(snap.FundNeighborCount(userID)) / float64(d.minConnections)
	if score > 1 {
		score = 1
	}
	return score
}

// sortedMembers returns cluster member IDs sorted ascending.
func sortedMembers(members map[uint]struct{}) []uint {
	out := make([]uint, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
