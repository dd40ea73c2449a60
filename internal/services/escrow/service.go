// Package escrow implements the per-fund release state machine. Funds move
// pending -> completed -> released, released is terminal, and every
// transition is appended to the escrow ledger for audit. Release is gated on
// the credibility flags of the fund's contributors.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"poolguard/internal/apperr"
	"poolguard/internal/graph"
	"poolguard/internal/models"
	"poolguard/internal/repositories"
)

// Service is the escrow state machine.
type Service struct {
	funds  repositories.FundRepository
	users  repositories.UserRepository
	graph  *graph.Store
	cache  repositories.CacheRepository
	locks  *fundLocks
	logger *zap.Logger
}

// NewService creates the escrow service. The graph store and cache are
// optional; repositories are required.
func NewService(funds repositories.FundRepository, users repositories.UserRepository, store *graph.Store, cache repositories.CacheRepository, logger *zap.Logger) *Service {
	if funds == nil {
		panic("fund repository is required")
	}
	if users == nil {
		panic("user repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		funds:  funds,
		users:  users,
		graph:  store,
		cache:  cache,
		locks:  newFundLocks(),
		logger: logger,
	}
}

// CreateFund registers a new pooling campaign in pending state.
func (s *Service) CreateFund(ctx context.Context, name string, target float64, goalDate time.Time) (*models.Fund, error) {
	if target <= 0 {
		return nil, apperr.Validation("target amount must be positive, got %v", target)
	}
	fund := &models.Fund{
		Name:         name,
		TargetAmount: target,
		Status:       models.FundStatusPending,
		GoalDate:     goalDate,
	}
	if err := s.funds.Create(fund); err != nil {
		return nil, fmt.Errorf("failed to create fund: %w", err)
	}
	if s.graph != nil {
		s.graph.AddFund(fund.ID)
	}
	return fund, nil
}

// UpdateContribution atomically adds a contribution to a fund. Contributions
// to the same fund are serialized through a per-fund lock; contributions to
// different funds proceed independently. A fund whose total reaches its
// target transitions to completed inside the same transaction.
func (s *Service) UpdateContribution(ctx context.Context, fundID, userID uint, amount float64) (*models.Fund, error) {
	if amount <= 0 {
		return nil, apperr.Validation("contribution amount must be positive, got %v", amount)
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperr.NotFound("user %d", userID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active {
		return nil, apperr.Validation("user %d is deactivated", userID)
	}

	lock := s.locks.get(fundID)
	lock.Lock()
	defer lock.Unlock()

	var updated *models.Fund
	err = s.funds.ExecuteInTransaction(func(tx repositories.FundRepository) error {
		fund, err := tx.GetByID(fundID)
		if err != nil {
			if errors.Is(err, repositories.ErrFundNotFound) {
				return apperr.NotFound("fund %d", fundID)
			}
			return err
		}
		if fund.Status == models.FundStatusReleased {
			return apperr.Validation("fund %d is already released", fundID)
		}

		if err := tx.CreateContribution(&models.Contribution{
			UserID: userID,
			FundID: fundID,
			Amount: amount,
		}); err != nil {
			return err
		}

		fund.CurrentAmount += amount
		if fund.Status == models.FundStatusPending && fund.CurrentAmount >= fund.TargetAmount {
			fund.Status = models.FundStatusCompleted
			if err := tx.AppendLedger(&models.EscrowLedgerEntry{
				FundID:     fundID,
				Status:     models.FundStatusCompleted,
				Reason:     "target amount reached",
				DecisionID: uuid.NewString(),
				Metadata: models.JSON{
					"current_amount": fund.CurrentAmount,
					"target_amount":  fund.TargetAmount,
				},
			}); err != nil {
				return err
			}
		}
		if err := tx.Update(fund); err != nil {
			return err
		}
		updated = fund
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The durable write committed; mirror the edge into the collusion graph
	// and drop the cached status.
	if s.graph != nil {
		s.graph.AddUser(userID)
		s.graph.AddFund(fundID)
		if gerr := s.graph.AddContribution(graph.Edge{
			UserID: userID, FundID: fundID, Amount: amount, At: time.Now().UTC(),
		}); gerr != nil {
			s.logger.Warn("failed to mirror contribution into graph",
				zap.Uint("fund_id", fundID), zap.Uint("user_id", userID), zap.Error(gerr))
		}
	}
	s.invalidateFundCache(ctx, fundID)

	s.logger.Info("contribution recorded",
		zap.Uint("fund_id", fundID),
		zap.Uint("user_id", userID),
		zap.Float64("amount", amount),
		zap.String("status", updated.Status))
	return updated, nil
}

// CheckStatus derives the current status of a fund: released when the ledger
// says so, completed when the target is reached, pending otherwise. Pure
// read, no side effects.
func (s *Service) CheckStatus(ctx context.Context, fundID uint) (string, error) {
	fund, err := s.funds.GetByID(fundID)
	if err != nil {
		if errors.Is(err, repositories.ErrFundNotFound) {
			return "", apperr.NotFound("fund %d", fundID)
		}
		return "", fmt.Errorf("failed to load fund: %w", err)
	}
	return s.deriveStatus(fund)
}

func (s *Service) deriveStatus(fund *models.Fund) (string, error) {
	latest, err := s.funds.LatestLedger(fund.ID)
	if err != nil {
		return "", fmt.Errorf("failed to read ledger: %w", err)
	}
	if latest != nil && latest.Status == models.FundStatusReleased {
		return models.FundStatusReleased, nil
	}
	if fund.CurrentAmount >= fund.TargetAmount {
		return models.FundStatusCompleted, nil
	}
	return models.FundStatusPending, nil
}

// ReleaseFunds attempts the terminal transition. Release is allowed only
// when the fund is completed and none of its contributors is red-flagged.
// The operation is idempotent: releasing an already-released fund replays
// the prior decision without moving money again. A refusal is a structured
// decision with a reason, not an error, and mutates nothing.
func (s *Service) ReleaseFunds(ctx context.Context, fundID uint) (*models.EscrowDecision, error) {
	lock := s.locks.get(fundID)
	lock.Lock()
	defer lock.Unlock()

	fund, err := s.funds.GetByID(fundID)
	if err != nil {
		if errors.Is(err, repositories.ErrFundNotFound) {
			return nil, apperr.NotFound("fund %d", fundID)
		}
		return nil, fmt.Errorf("failed to load fund: %w", err)
	}

	// Idempotency: a concurrent or repeated release reads the ledger back
	// and returns the decision already taken.
	latest, err := s.funds.LatestLedger(fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if latest != nil && latest.Status == models.FundStatusReleased {
		return &models.EscrowDecision{
			FundID:     fundID,
			Status:     models.FundStatusReleased,
			Released:   true,
			Reason:     latest.Reason,
			DecisionID: latest.DecisionID,
		}, nil
	}

	status, err := s.deriveStatus(fund)
	if err != nil {
		return nil, err
	}
	if status != models.FundStatusCompleted {
		return &models.EscrowDecision{
			FundID:   fundID,
			Status:   status,
			Released: false,
			Reason:   fmt.Sprintf("fund not completed: %v of %v collected", fund.CurrentAmount, fund.TargetAmount),
		}, nil
	}

	redFlags, err := s.users.CountRedContributors(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to count red-flagged contributors: %w", err)
	}
	if redFlags > 0 {
		s.logger.Warn("release refused: red-flagged contributors",
			zap.Uint("fund_id", fundID), zap.Int64("red_flags", redFlags))
		return &models.EscrowDecision{
			FundID:   fundID,
			Status:   status,
			Released: false,
			Reason:   fmt.Sprintf("%d red-flagged contributor(s) in pool", redFlags),
		}, nil
	}

	decisionID := uuid.NewString()
	reason := "completed with no red-flagged contributors"
	err = s.funds.ExecuteInTransaction(func(tx repositories.FundRepository) error {
		fund.Status = models.FundStatusReleased
		if err := tx.Update(fund); err != nil {
			return err
		}
		return tx.AppendLedger(&models.EscrowLedgerEntry{
			FundID:     fundID,
			Status:     models.FundStatusReleased,
			Reason:     reason,
			DecisionID: decisionID,
			Metadata: models.JSON{
				"current_amount": fund.CurrentAmount,
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to release fund: %w", err)
	}
	s.invalidateFundCache(ctx, fundID)

	s.logger.Info("fund released",
		zap.Uint("fund_id", fundID),
		zap.String("decision_id", decisionID),
		zap.Float64("amount", fund.CurrentAmount))
	return &models.EscrowDecision{
		FundID:     fundID,
		Status:     models.FundStatusReleased,
		Released:   true,
		Reason:     reason,
		DecisionID: decisionID,
	}, nil
}

// LedgerHistory returns the audit trail of a fund's status transitions.
func (s *Service) LedgerHistory(ctx context.Context, fundID uint) ([]models.EscrowLedgerEntry, error) {
	if _, err := s.funds.GetByID(fundID); err != nil {
		if errors.Is(err, repositories.ErrFundNotFound) {
			return nil, apperr.NotFound("fund %d", fundID)
		}
		return nil, err
	}
	return s.funds.LedgerHistory(ctx, fundID)
}

// GetFund loads a fund.
func (s *Service) GetFund(ctx context.Context, fundID uint) (*models.Fund, error) {
	fund, err := s.funds.GetByID(fundID)
	if err != nil {
		if errors.Is(err, repositories.ErrFundNotFound) {
			return nil, apperr.NotFound("fund %d", fundID)
		}
		return nil, err
	}
	return fund, nil
}

// RedFlagCount counts the fund's contributors currently at red flag.
func (s *Service) RedFlagCount(ctx context.Context, fundID uint) (int64, error) {
	return s.users.CountRedContributors(ctx, fundID)
}

// DeadlinePassed reports whether a still-pending fund has outlived its goal
// date. This is surfaced to the alert engine, never auto-transitioned.
func DeadlinePassed(fund *models.Fund, now time.Time) bool {
	if fund.GoalDate.IsZero() {
		return false
	}
	return fund.Status == models.FundStatusPending && now.After(fund.GoalDate)
}

func (s *Service) invalidateFundCache(ctx context.Context, fundID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repositories.FundStatusKey(fundID)); err != nil {
		s.logger.Debug("failed to invalidate fund status cache",
			zap.Uint("fund_id", fundID), zap.Error(err))
	}
}
