package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolguard/internal/apperr"
)

func edge(userID, fundID uint, amount float64) Edge {
	return Edge{UserID: userID, FundID: fundID, Amount: amount, At: time.Now()}
}

func TestStore_AddContribution(t *testing.T) {
	t.Run("accepts edge between registered nodes", func(t *testing.T) {
		s := NewStore()
		s.AddUser(1)
		s.AddFund(100)

		require.NoError(t, s.AddContribution(edge(1, 100, 50)))

		users, funds, edges := s.Size()
		assert.Equal(t, 1, users)
		assert.Equal(t, 1, funds)
		assert.Equal(t, 1, edges)
	})

	t.Run("rejects dangling user reference", func(t *testing.T) {
		s := NewStore()
		s.AddFund(100)

		err := s.AddContribution(edge(1, 100, 50))
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("rejects dangling fund reference", func(t *testing.T) {
		s := NewStore()
		s.AddUser(1)

		err := s.AddContribution(edge(1, 100, 50))
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		s := NewStore()
		s.AddUser(1)
		s.AddFund(100)

		assert.True(t, apperr.IsKind(s.AddContribution(edge(1, 100, 0)), apperr.KindValidation))
		assert.True(t, apperr.IsKind(s.AddContribution(edge(1, 100, -5)), apperr.KindValidation))
	})

	t.Run("repeated edges accumulate weight", func(t *testing.T) {
		s := NewStore()
		s.AddUser(1)
		s.AddFund(100)
		require.NoError(t, s.AddContribution(edge(1, 100, 30)))
		require.NoError(t, s.AddContribution(edge(1, 100, 20)))

		snap := s.Snapshot()
		assert.Equal(t, 50.0, snap.UserFunds[1][100])
		assert.Equal(t, 50.0, snap.TotalWeight)
	})
}

func TestStore_DuplicateNodesAreNoOps(t *testing.T) {
	s := NewStore()
	s.AddUser(1)
	s.AddUser(1)
	s.AddFund(100)
	s.AddFund(100)

	users, funds, _ := s.Size()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, funds)
}

func TestSnapshot_IsolatedFromLaterWrites(t *testing.T) {
	s := NewStore()
	s.AddUser(1)
	s.AddFund(100)
	require.NoError(t, s.AddContribution(edge(1, 100, 10)))

	snap := s.Snapshot()

	s.AddUser(2)
	require.NoError(t, s.AddContribution(edge(2, 100, 99)))

	assert.Equal(t, []uint{1}, snap.Users)
	assert.Equal(t, 10.0, snap.TotalWeight)
	assert.NotContains(t, snap.UserFunds, uint(2))
}

func TestSnapshot_DeterministicOrdering(t *testing.T) {
	s := NewStore()
	for _, id := range []uint{5, 3, 9, 1} {
		s.AddUser(id)
	}
	for _, id := range []uint{200, 100} {
		s.AddFund(id)
	}

	snap := s.Snapshot()
	assert.Equal(t, []uint{1, 3, 5, 9}, snap.Users)
	assert.Equal(t, []uint{100, 200}, snap.Funds)
}

func TestSnapshot_CoMembers(t *testing.T) {
	s := NewStore()
	s.AddUser(1)
	s.AddUser(2)
	s.AddUser(3)
	s.AddFund(100)
	require.NoError(t, s.AddContribution(edge(1, 100, 30)))
	require.NoError(t, s.AddContribution(edge(2, 100, 10)))

	snap := s.Snapshot()

	// Shared weight through a common fund is the pairwise minimum.
	co := snap.CoMembers(1)
	assert.Equal(t, map[uint]float64{2: 10}, co)

	// No common fund means no derived edge.
	assert.Empty(t, snap.CoMembers(3))
}

func TestSnapshot_Empty(t *testing.T) {
	assert.True(t, NewStore().Snapshot().Empty())
}
