// Package alerts maps credibility scores and fund states to operational
// actions. The rule table is read through an atomic pointer so concurrent
// evaluators never observe a half-updated rule set.
package alerts

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"poolguard/internal/models"
)

// Engine is the rule-based alert and action engine.
type Engine struct {
	table  atomic.Pointer[RuleTable]
	logger *zap.Logger
}

// NewEngine creates an engine with the given rule table.
func NewEngine(table RuleTable, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger}
	e.table.Store(&table)
	return e
}

// Reload swaps in a new rule table atomically between decision cycles.
func (e *Engine) Reload(table RuleTable) {
	e.table.Store(&table)
	e.logger.Info("alert rule table reloaded", zap.Int("categories", len(table)))
}

// EvaluateUser picks the action for a user score in a risk category. An
// unknown category or a score below the rule's minimum falls back to
// manual_review, never to a silent allow.
func (e *Engine) EvaluateUser(score float64, category string) Action {
	table := *e.table.Load()
	rule, ok := table[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return ActionManualReview
	}
	if score >= rule.MinScore {
		return rule.Action
	}
	return ActionManualReview
}

// EvaluateFund picks the action for a fund. Red flags take precedence over
// completion: any red-flagged contributor forces manual_review regardless of
// status; a clean completed fund releases; everything else holds.
func (e *Engine) EvaluateFund(status string, redFlagCount int) Action {
	if redFlagCount > 0 {
		return ActionManualReview
	}
	if status == models.FundStatusCompleted {
		return ActionRelease
	}
	return ActionHold
}

// EvaluateDeadline maps a lapsed goal deadline on a pending fund to
// manual_review; a fund within its deadline keeps its normal fund action.
func (e *Engine) EvaluateDeadline(lapsed bool, status string, redFlagCount int) Action {
	if lapsed {
		return ActionManualReview
	}
	return e.EvaluateFund(status, redFlagCount)
}
