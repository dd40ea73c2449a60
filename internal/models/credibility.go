package models

// Signals is the per-user input tuple for credibility fusion. A missing
// signal defaults to 0 and must be flagged unavailable for audit.
type Signals struct {
	Document float64 `json:"document_score"`
	Behavior float64 `json:"behavior_score"`
	Graph    float64 `json:"graph_score"`

	DocumentAvailable bool `json:"document_available"`
	BehaviorAvailable bool `json:"behavior_available"`
	GraphAvailable    bool `json:"graph_available"`

	// DuplicateDevice is the device-fingerprint veto signal.
	DuplicateDevice bool `json:"is_duplicate"`
}

// CredibilityResult is the fused trust posture for one user.
type CredibilityResult struct {
	UserID    uint    `json:"user_id"`
	Score     float64 `json:"score"`
	Flag      string  `json:"flag"`
	RiskLevel string  `json:"risk_level"`
	Partial   bool    `json:"partial"`
}

// ExplanationInput feeds the explanation-rendering collaborator.
type ExplanationInput struct {
	UserID         uint               `json:"user_id"`
	Score          float64            `json:"score"`
	FeatureImpacts map[string]float64 `json:"feature_impacts"`
	GraphFlag      bool               `json:"graph_flag"`
}

// EscrowDecision is the outcome of a release attempt. A refusal is a normal
// decision, not an error.
type EscrowDecision struct {
	FundID     uint   `json:"fund_id"`
	Status     string `json:"status"`
	Released   bool   `json:"released"`
	Reason     string `json:"reason"`
	DecisionID string `json:"decision_id"`
}

// AlertAction is the operational action chosen for a subject.
type AlertAction struct {
	SubjectID uint   `json:"subject_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
}
