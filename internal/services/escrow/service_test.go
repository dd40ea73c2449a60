package escrow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolguard/internal/apperr"
	"poolguard/internal/graph"
	"poolguard/internal/models"
	"poolguard/internal/repositories"
)

// memFundRepo is an in-memory FundRepository. Transactions apply directly;
// the service's per-fund lock already serializes mutations in these tests.
type memFundRepo struct {
	mu            sync.Mutex
	funds         map[uint]models.Fund
	contributions []models.Contribution
	ledger        []models.EscrowLedgerEntry
	nextID        uint
}

func newMemFundRepo() *memFundRepo {
	return &memFundRepo{funds: make(map[uint]models.Fund), nextID: 1}
}

func (r *memFundRepo) Create(fund *models.Fund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fund.ID = r.nextID
	r.nextID++
	r.funds[fund.ID] = *fund
	return nil
}

func (r *memFundRepo) GetByID(id uint) (*models.Fund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fund, ok := r.funds[id]
	if !ok {
		return nil, repositories.ErrFundNotFound
	}
	cp := fund
	return &cp, nil
}

func (r *memFundRepo) Update(fund *models.Fund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funds[fund.ID] = *fund
	return nil
}

func (r *memFundRepo) CreateContribution(c *models.Contribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uint(len(r.contributions) + 1)
	r.contributions = append(r.contributions, *c)
	return nil
}

func (r *memFundRepo) ListContributions(_ context.Context, fundID uint) ([]models.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Contribution
	for _, c := range r.contributions {
		if c.FundID == fundID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memFundRepo) ListAllContributions(context.Context) ([]models.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Contribution(nil), r.contributions...), nil
}

func (r *memFundRepo) ListFundIDs(context.Context) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint
	for id := range r.funds {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memFundRepo) AppendLedger(entry *models.EscrowLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uint(len(r.ledger) + 1)
	r.ledger = append(r.ledger, *entry)
	return nil
}

func (r *memFundRepo) LatestLedger(fundID uint) (*models.EscrowLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.ledger) - 1; i >= 0; i-- {
		if r.ledger[i].FundID == fundID {
			cp := r.ledger[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memFundRepo) LedgerHistory(_ context.Context, fundID uint) ([]models.EscrowLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EscrowLedgerEntry
	for _, e := range r.ledger {
		if e.FundID == fundID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memFundRepo) ExecuteInTransaction(fn func(repo repositories.FundRepository) error) error {
	return fn(r)
}

// memUserRepo is an in-memory UserRepository with a tunable red-flag count.
type memUserRepo struct {
	mu       sync.Mutex
	users    map[uint]models.User
	redCount int64
}

func newMemUserRepo(users ...models.User) *memUserRepo {
	r := &memUserRepo{users: make(map[uint]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := u
	return &cp, nil
}

func (r *memUserRepo) GetByExternalID(string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *memUserRepo) UpdateScore(context.Context, uint, models.CredibilityResult) error {
	return nil
}

func (r *memUserRepo) SetDuplicateDevice(context.Context, uint, bool) error { return nil }

func (r *memUserRepo) Deactivate(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.Active = false
	r.users[id] = u
	return nil
}

func (r *memUserRepo) ListActiveIDs(context.Context) ([]uint, error) { return nil, nil }

func (r *memUserRepo) CountRedContributors(context.Context, uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redCount, nil
}

func activeUser(id uint) models.User {
	u := models.User{Active: true}
	u.ID = id
	return u
}

func newTestService(t *testing.T, users *memUserRepo) (*Service, *memFundRepo) {
	t.Helper()
	funds := newMemFundRepo()
	svc := NewService(funds, users, graph.NewStore(), nil, nil)
	return svc, funds
}

func TestCreateFund(t *testing.T) {
	svc, _ := newTestService(t, newMemUserRepo())

	t.Run("starts pending", func(t *testing.T) {
		fund, err := svc.CreateFund(context.Background(), "trip", 1000, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, models.FundStatusPending, fund.Status)
		assert.Equal(t, 0.0, fund.CurrentAmount)
	})

	t.Run("rejects non-positive target", func(t *testing.T) {
		_, err := svc.CreateFund(context.Background(), "bad", 0, time.Time{})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestUpdateContribution(t *testing.T) {
	ctx := context.Background()

	t.Run("accumulates and completes at target", func(t *testing.T) {
		svc, repo := newTestService(t, newMemUserRepo(activeUser(1), activeUser(2)))
		fund, err := svc.CreateFund(ctx, "trip", 1000, time.Time{})
		require.NoError(t, err)

		updated, err := svc.UpdateContribution(ctx, fund.ID, 1, 500)
		require.NoError(t, err)
		assert.Equal(t, models.FundStatusPending, updated.Status)
		assert.Equal(t, 500.0, updated.CurrentAmount)

		updated, err = svc.UpdateContribution(ctx, fund.ID, 2, 600)
		require.NoError(t, err)
		assert.Equal(t, models.FundStatusCompleted, updated.Status)
		assert.Equal(t, 1100.0, updated.CurrentAmount)

		// The completion transition is on the ledger.
		entries, err := repo.LedgerHistory(ctx, fund.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.FundStatusCompleted, entries[0].Status)
		assert.NotEmpty(t, entries[0].DecisionID)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, _ := newTestService(t, newMemUserRepo(activeUser(1)))
		fund, err := svc.CreateFund(ctx, "trip", 1000, time.Time{})
		require.NoError(t, err)

		_, err = svc.UpdateContribution(ctx, fund.ID, 1, -10)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 0)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("rejects unknown fund and user", func(t *testing.T) {
		svc, _ := newTestService(t, newMemUserRepo(activeUser(1)))

		_, err := svc.UpdateContribution(ctx, 999, 1, 10)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		_, err = svc.UpdateContribution(ctx, 999, 42, 10)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("rejects deactivated contributors", func(t *testing.T) {
		users := newMemUserRepo(activeUser(1))
		svc, _ := newTestService(t, users)
		fund, err := svc.CreateFund(ctx, "trip", 1000, time.Time{})
		require.NoError(t, err)
		require.NoError(t, users.Deactivate(1))

		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 10)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("rejects contributions to released funds", func(t *testing.T) {
		users := newMemUserRepo(activeUser(1))
		svc, _ := newTestService(t, users)
		fund, err := svc.CreateFund(ctx, "trip", 100, time.Time{})
		require.NoError(t, err)
		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 100)
		require.NoError(t, err)
		decision, err := svc.ReleaseFunds(ctx, fund.ID)
		require.NoError(t, err)
		require.True(t, decision.Released)

		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 10)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("total is order independent", func(t *testing.T) {
		amounts := []float64{100, 250, 400, 250}
		reversed := []float64{250, 400, 250, 100}

		run := func(amts []float64) *models.Fund {
			svc, _ := newTestService(t, newMemUserRepo(activeUser(1)))
			fund, err := svc.CreateFund(ctx, "trip", 1000, time.Time{})
			require.NoError(t, err)
			var last *models.Fund
			for _, a := range amts {
				last, err = svc.UpdateContribution(ctx, fund.ID, 1, a)
				require.NoError(t, err)
			}
			return last
		}

		a, b := run(amounts), run(reversed)
		assert.Equal(t, a.CurrentAmount, b.CurrentAmount)
		assert.Equal(t, a.Status, b.Status)
	})

	t.Run("concurrent contributions to one fund serialize", func(t *testing.T) {
		svc, _ := newTestService(t, newMemUserRepo(activeUser(1)))
		fund, err := svc.CreateFund(ctx, "trip", 10000, time.Time{})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.UpdateContribution(ctx, fund.ID, 1, 10)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := svc.GetFund(ctx, fund.ID)
		require.NoError(t, err)
		assert.Equal(t, 200.0, got.CurrentAmount)
	})
}

func TestCheckStatus(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(activeUser(1))
	svc, _ := newTestService(t, users)

	fund, err := svc.CreateFund(ctx, "trip", 100, time.Time{})
	require.NoError(t, err)

	status, err := svc.CheckStatus(ctx, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FundStatusPending, status)

	_, err = svc.UpdateContribution(ctx, fund.ID, 1, 100)
	require.NoError(t, err)
	status, err = svc.CheckStatus(ctx, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FundStatusCompleted, status)

	_, err = svc.ReleaseFunds(ctx, fund.ID)
	require.NoError(t, err)
	status, err = svc.CheckStatus(ctx, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FundStatusReleased, status)

	_, err = svc.CheckStatus(ctx, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReleaseFunds(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses while pending without mutating", func(t *testing.T) {
		users := newMemUserRepo(activeUser(1))
		svc, repo := newTestService(t, users)
		fund, err := svc.CreateFund(ctx, "trip", 1000, time.Time{})
		require.NoError(t, err)
		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 400)
		require.NoError(t, err)

		decision, err := svc.ReleaseFunds(ctx, fund.ID)
		require.NoError(t, err)
		assert.False(t, decision.Released)
		assert.Contains(t, decision.Reason, "not completed")

		entries, _ := repo.LedgerHistory(ctx, fund.ID)
		assert.Empty(t, entries)
	})

	t.Run("refuses with red-flagged contributors", func(t *testing.T) {
		users := newMemUserRepo(activeUser(1))
		users.redCount = 2
		svc, _ := newTestService(t, users)
		fund, err := svc.CreateFund(ctx, "trip", 100, time.Time{})
		require.NoError(t, err)
		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 100)
		require.NoError(t, err)

		decision, err := svc.ReleaseFunds(ctx, fund.ID)
		require.NoError(t, err)
		assert.False(t, decision.Released)
		assert.Contains(t, decision.Reason, "red-flagged")

		// The fund stays completed; nothing moved.
		status, err := svc.CheckStatus(ctx, fund.ID)
		require.NoError(t, err)
		assert.Equal(t, models.FundStatusCompleted, status)
	})

	t.Run("releases a clean completed fund", func(t *testing.T) {
		users := newMemUserRepo(activeUser(1))
		svc, repo := newTestService(t, users)
		fund, err := svc.CreateFund(ctx, "trip", 100, time.Time{})
		require.NoError(t, err)
		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 100)
		require.NoError(t, err)

		decision, err := svc.ReleaseFunds(ctx, fund.ID)
		require.NoError(t, err)
		assert.True(t, decision.Released)
		assert.NotEmpty(t, decision.DecisionID)
		assert.Equal(t, models.FundStatusReleased, decision.Status)

		latest, err := repo.LatestLedger(fund.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, models.FundStatusReleased, latest.Status)
		assert.Equal(t, decision.DecisionID, latest.DecisionID)
	})

	t.Run("repeat release replays the same decision", func(t *testing.T) {
		users := newMemUserRepo(activeUser(1))
		svc, repo := newTestService(t, users)
		fund, err := svc.CreateFund(ctx, "trip", 100, time.Time{})
		require.NoError(t, err)
		_, err = svc.UpdateContribution(ctx, fund.ID, 1, 100)
		require.NoError(t, err)

		first, err := svc.ReleaseFunds(ctx, fund.ID)
		require.NoError(t, err)
		second, err := svc.ReleaseFunds(ctx, fund.ID)
		require.NoError(t, err)

		assert.True(t, first.Released)
		assert.True(t, second.Released)
		assert.Equal(t, first.DecisionID, second.DecisionID)

		// Exactly one release entry on the ledger.
		entries, err := repo.LedgerHistory(ctx, fund.ID)
		require.NoError(t, err)
		released := 0
		for _, e := range entries {
			if e.Status == models.FundStatusReleased {
				released++
			}
		}
		assert.Equal(t, 1, released)
	})

	t.Run("unknown fund is an error", func(t *testing.T) {
		svc, _ := newTestService(t, newMemUserRepo())
		_, err := svc.ReleaseFunds(ctx, 999)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestDeadlinePassed(t *testing.T) {
	now := time.Now()

	pending := &models.Fund{Status: models.FundStatusPending, GoalDate: now.Add(-time.Hour)}
	assert.True(t, DeadlinePassed(pending, now))

	future := &models.Fund{Status: models.FundStatusPending, GoalDate: now.Add(time.Hour)}
	assert.False(t, DeadlinePassed(future, now))

	completed := &models.Fund{Status: models.FundStatusCompleted, GoalDate: now.Add(-time.Hour)}
	assert.False(t, DeadlinePassed(completed, now))

	noDeadline := &models.Fund{Status: models.FundStatusPending}
	assert.False(t, DeadlinePassed(noDeadline, now))
}
