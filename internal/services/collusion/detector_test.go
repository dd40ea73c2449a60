package collusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolguard/internal/graph"
)

// buildSnapshot wires users to funds with uniform edge weight 10.
func buildSnapshot(t *testing.T, edges map[uint][]uint) *graph.Snapshot {
	t.Helper()
	s := graph.NewStore()
	for userID, funds := range edges {
		s.AddUser(userID)
		for _, fundID := range funds {
			s.AddFund(fundID)
			require.NoError(t, s.AddContribution(graph.Edge{UserID: userID, FundID: fundID, Amount: 10}))
		}
	}
	return s.Snapshot()
}

func TestDetect_EmptyGraph(t *testing.T) {
	d := NewDetector(3, nil)
	res, err := d.Detect(context.Background(), graph.NewStore().Snapshot())
	require.NoError(t, err)
	assert.Empty(t, res.HighlyConnected)
	assert.Empty(t, res.Clusters)
	assert.False(t, res.Partial)
}

func TestDetect_DisjointGroupsFormSeparateClusters(t *testing.T) {
	// Two disconnected pools: users 1-3 share funds 101 and 102, users 4-5
	// share fund 201.
	snap := buildSnapshot(t, map[uint][]uint{
		1: {101, 102},
		2: {101, 102},
		3: {101, 102},
		4: {201},
		5: {201},
	})

	d := NewDetector(3, nil)
	res, err := d.Detect(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 2)
	assert.False(t, res.Partial)

	assert.Equal(t, []uint{1, 2, 3}, res.Clusters[0].Members)
	assert.Equal(t, []uint{4, 5}, res.Clusters[1].Members)
	for _, c := range res.Clusters {
		assert.Greater(t, c.Density, 0.0)
	}
}

func TestDetect_ClustersContainOnlyUsers(t *testing.T) {
	snap := buildSnapshot(t, map[uint][]uint{
		1: {101},
		2: {101},
	})

	d := NewDetector(3, nil)
	res, err := d.Detect(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	// Fund 101 bridges the pair but never appears as a member.
	assert.Equal(t, []uint{1, 2}, res.Clusters[0].Members)
}

func TestDetect_SingletonUsersAreNotClusters(t *testing.T) {
	snap := buildSnapshot(t, map[uint][]uint{
		1: {101},
	})

	d := NewDetector(3, nil)
	res, err := d.Detect(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, res.Clusters)
}

func TestDetect_Deterministic(t *testing.T) {
	d := NewDetector(3, nil)

	t.Run("stable across repeated runs", func(t *testing.T) {
		edges := map[uint][]uint{
			1: {101, 102},
			2: {101},
			3: {102, 103},
			4: {103},
			5: {104},
			6: {104},
		}
		first, err := d.Detect(context.Background(), buildSnapshot(t, edges))
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := d.Detect(context.Background(), buildSnapshot(t, edges))
			require.NoError(t, err)
			assert.Equal(t, first.Clusters, again.Clusters)
			assert.Equal(t, first.HighlyConnected, again.HighlyConnected)
		}
	})

	t.Run("symmetric gains break ties toward the lowest pair", func(t *testing.T) {
		// User 1 bridges funds 101 and 102, users 2 and 3 hang off one fund
		// each. The merge gains for (2,101) and (3,102) are exactly equal, as
		// are the follow-up gains pulling user 1 either way; the partition
		// must not depend on map iteration order.
		edges := map[uint][]uint{
			1: {101, 102},
			2: {101},
			3: {102},
		}
		for i := 0; i < 50; i++ {
			res, err := d.Detect(context.Background(), buildSnapshot(t, edges))
			require.NoError(t, err)
			require.Len(t, res.Clusters, 1)
			assert.Equal(t, []uint{1, 2}, res.Clusters[0].Members)
		}
	})
}

func TestDetect_HighlyConnected(t *testing.T) {
	snap := buildSnapshot(t, map[uint][]uint{
		1: {101, 102, 103},
		2: {101},
	})

	d := NewDetector(3, nil)
	res, err := d.Detect(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, res.HighlyConnected)
	assert.True(t, res.IsHighlyConnected(1))
	assert.False(t, res.IsHighlyConnected(2))
}

func TestDetect_ExpiredDeadlineYieldsPartial(t *testing.T) {
	snap := buildSnapshot(t, map[uint][]uint{
		1: {101, 102, 103},
		2: {101, 102},
		3: {102},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDetector(3, nil)
	res, err := d.Detect(ctx, snap)
	require.NoError(t, err)
	assert.True(t, res.Partial)
	// The cheap scan still completes under an expired deadline.
	assert.Equal(t, []uint{1}, res.HighlyConnected)
}

func TestGraphScore(t *testing.T) {
	snap := buildSnapshot(t, map[uint][]uint{
		1: {101, 102, 103}, // highly connected
		2: {999},           // isolated, 1 of 3 funds
		3: {101, 102},      // clustered with user 1
	})
	d := NewDetector(3, nil)
	res, err := d.Detect(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, 1.0, d.GraphScore(snap, res, 1))
	assert.InDelta(t, 1.0/3.0, d.GraphScore(snap, res, 2), 1e-9)

	// Cluster membership pins the score to 1 regardless of fund count.
	require.True(t, res.InCluster(3))
	assert.Equal(t, 1.0, d.GraphScore(snap, res, 3))

	// An unknown user has no neighbors and scores 0 when unflagged.
	assert.Equal(t, 0.0, d.GraphScore(snap, &Result{}, 99))
}

func TestNewDetector_Fallbacks(t *testing.T) {
	d := NewDetector(0, nil)
	assert.Equal(t, DefaultMinConnections, d.MinConnections())
}
