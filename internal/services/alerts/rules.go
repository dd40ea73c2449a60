package alerts

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"poolguard/internal/apperr"
)

// DefaultRules returns the built-in rule table used when no YAML file is
// configured.
func DefaultRules() RuleTable {
	return RuleTable{
		"green":  {MinScore: 0.75, Action: ActionAllow},
		"yellow": {MinScore: 0.5, Action: ActionManualReview},
		"red":    {MinScore: 0.0, Action: ActionBlock},
	}
}

// LoadRules reads and validates a YAML rule table. A malformed table is a
// config error: the engine refuses to start or reload with it.
func LoadRules(path string) (RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, err, "failed to read rule table %q", path)
	}
	return ParseRules(data)
}

// ParseRules parses and validates a YAML rule table.
func ParseRules(data []byte) (RuleTable, error) {
	var raw map[string]Rule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, err, "malformed rule table")
	}
	if len(raw) == 0 {
		return nil, apperr.Config("rule table is empty")
	}

	table := make(RuleTable, len(raw))
	for category, rule := range raw {
		category = strings.ToLower(strings.TrimSpace(category))
		if category == "" {
			return nil, apperr.Config("rule table has an empty category name")
		}
		if rule.MinScore < 0 || rule.MinScore > 1 {
			return nil, apperr.Config("rule %q: min_score out of range [0,1]: %v", category, rule.MinScore)
		}
		if _, ok := userActions[rule.Action]; !ok {
			return nil, apperr.Config("rule %q: unknown action %q", category, rule.Action)
		}
		table[category] = rule
	}
	return table, nil
}
