package alerts

// Action is an operational decision. User evaluation yields allow,
// manual_review or block; fund evaluation yields release, hold or
// manual_review. manual_review is a normal outcome, never an error.
type Action string

const (
	ActionAllow        Action = "allow"
	ActionManualReview Action = "manual_review"
	ActionBlock        Action = "block"
	ActionRelease      Action = "release"
	ActionHold         Action = "hold"
)

// userActions are the actions a rule may assign to a risk category.
var userActions = map[Action]struct{}{
	ActionAllow:        {},
	ActionManualReview: {},
	ActionBlock:        {},
}

// Rule maps a risk category to the minimum score required for its action.
type Rule struct {
	MinScore float64 `yaml:"min_score"`
	Action   Action  `yaml:"action"`
}

// RuleTable is the per-category rule set. It is immutable during a decision
// cycle; reloads swap in a whole new table.
type RuleTable map[string]Rule
