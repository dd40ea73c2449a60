package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolguard/internal/apperr"
	"poolguard/internal/models"
)

func TestEvaluateUser(t *testing.T) {
	e := NewEngine(DefaultRules(), nil)

	tests := []struct {
		name     string
		score    float64
		category string
		want     Action
	}{
		{"green allows", 0.8, "green", ActionAllow},
		{"yellow reviews", 0.6, "yellow", ActionManualReview},
		{"red blocks", 0.2, "red", ActionBlock},
		{"score below rule minimum falls back to review", 0.7, "green", ActionManualReview},
		{"unknown category falls back to review", 0.9, "purple", ActionManualReview},
		{"category matching is case-insensitive", 0.8, " GREEN ", ActionAllow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.EvaluateUser(tt.score, tt.category))
		})
	}
}

func TestEvaluateFund(t *testing.T) {
	e := NewEngine(DefaultRules(), nil)

	tests := []struct {
		name     string
		status   string
		redFlags int
		want     Action
	}{
		{"completed and clean releases", models.FundStatusCompleted, 0, ActionRelease},
		{"red flags beat completion", models.FundStatusCompleted, 1, ActionManualReview},
		{"pending and clean holds", models.FundStatusPending, 0, ActionHold},
		{"pending with red flags reviews", models.FundStatusPending, 2, ActionManualReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.EvaluateFund(tt.status, tt.redFlags))
		})
	}
}

func TestEvaluateDeadline(t *testing.T) {
	e := NewEngine(DefaultRules(), nil)

	assert.Equal(t, ActionManualReview, e.EvaluateDeadline(true, models.FundStatusPending, 0))
	assert.Equal(t, ActionHold, e.EvaluateDeadline(false, models.FundStatusPending, 0))
	assert.Equal(t, ActionRelease, e.EvaluateDeadline(false, models.FundStatusCompleted, 0))
}

func TestReload(t *testing.T) {
	e := NewEngine(DefaultRules(), nil)
	assert.Equal(t, ActionAllow, e.EvaluateUser(0.8, "green"))

	// Tighten green so 0.8 no longer qualifies.
	e.Reload(RuleTable{
		"green": {MinScore: 0.9, Action: ActionAllow},
	})
	assert.Equal(t, ActionManualReview, e.EvaluateUser(0.8, "green"))
	assert.Equal(t, ActionAllow, e.EvaluateUser(0.95, "green"))
}

func TestParseRules(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		table, err := ParseRules([]byte(`
green:
  min_score: 0.75
  action: allow
yellow:
  min_score: 0.5
  action: manual_review
red:
  min_score: 0.0
  action: block
`))
		require.NoError(t, err)
		assert.Len(t, table, 3)
		assert.Equal(t, Rule{MinScore: 0.75, Action: ActionAllow}, table["green"])
	})

	t.Run("unknown action is a config error", func(t *testing.T) {
		_, err := ParseRules([]byte("green:\n  min_score: 0.75\n  action: yeet\n"))
		assert.True(t, apperr.IsKind(err, apperr.KindConfig))
	})

	t.Run("min_score out of range is a config error", func(t *testing.T) {
		_, err := ParseRules([]byte("green:\n  min_score: 1.5\n  action: allow\n"))
		assert.True(t, apperr.IsKind(err, apperr.KindConfig))
	})

	t.Run("empty table is a config error", func(t *testing.T) {
		_, err := ParseRules([]byte(""))
		assert.True(t, apperr.IsKind(err, apperr.KindConfig))
	})

	t.Run("malformed yaml is a config error", func(t *testing.T) {
		_, err := ParseRules([]byte("green: [not a rule"))
		assert.True(t, apperr.IsKind(err, apperr.KindConfig))
	})
}
