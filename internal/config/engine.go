package config

import (
	"math"
	"time"

	"poolguard/internal/apperr"
)

// Weights control how the credibility signals are fused. They must sum to 1.
type Weights struct {
	Document float64
	Behavior float64
	Graph    float64
}

// Validate checks that each weight is in [0,1] and that they sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"document": w.Document,
		"behavior": w.Behavior,
		"graph":    w.Graph,
	} {
		if v < 0 || v > 1 {
			return apperr.Config("weight %q out of range: %v", name, v)
		}
	}
	if sum := w.Document + w.Behavior + w.Graph; math.Abs(sum-1.0) > 1e-9 {
		return apperr.Config("signal weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// EngineConfig holds the decision engine tunables. It is read-only during a
// decision cycle; reloads swap a whole new value in.
type EngineConfig struct {
	Weights          Weights
	MinConnections   int           // highly-connected fund threshold
	DetectorTimeout  time.Duration // deadline for one collusion sweep
	SweepSpec        string        // cron spec for the periodic sweep
	RetrainThreshold int           // feedback events before retrain fires
	DeviceVeto       bool          // duplicate device caps the fused score
	RulesPath        string        // alert rule table (YAML)
	BatchWorkers     int           // parallelism for batch scoring
}

// DefaultEngine returns the engine defaults.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		Weights:          Weights{Document: 0.4, Behavior: 0.4, Graph: 0.2},
		MinConnections:   3,
		DetectorTimeout:  30 * time.Second,
		SweepSpec:        "@every 15m",
		RetrainThreshold: 10,
		DeviceVeto:       true,
		RulesPath:        "alert_rules.yaml",
		BatchWorkers:     8,
	}
}

// EngineFromEnv builds the engine configuration from the environment,
// falling back to defaults. Invalid weights are fatal.
func EngineFromEnv() (EngineConfig, error) {
	def := DefaultEngine()
	cfg := EngineConfig{
		Weights: Weights{
			Document: GetFloatEnv("WEIGHT_DOCUMENT", def.Weights.Document),
			Behavior: GetFloatEnv("WEIGHT_BEHAVIOR", def.Weights.Behavior),
			Graph:    GetFloatEnv("WEIGHT_GRAPH", def.Weights.Graph),
		},
		MinConnections:   GetIntEnv("MIN_CONNECTIONS", def.MinConnections),
		DetectorTimeout:  GetDurationEnv("DETECTOR_TIMEOUT", def.DetectorTimeout),
		SweepSpec:        GetEnv("SWEEP_SPEC", def.SweepSpec),
		RetrainThreshold: GetIntEnv("RETRAIN_THRESHOLD", def.RetrainThreshold),
		DeviceVeto:       GetBoolEnv("DEVICE_VETO", def.DeviceVeto),
		RulesPath:        GetEnv("RULES_PATH", def.RulesPath),
		BatchWorkers:     GetIntEnv("BATCH_WORKERS", def.BatchWorkers),
	}
	if err := cfg.Weights.Validate(); err != nil {
		return EngineConfig{}, err
	}
	if cfg.MinConnections < 1 {
		return EngineConfig{}, apperr.Config("MIN_CONNECTIONS must be >= 1, got %d", cfg.MinConnections)
	}
	if cfg.RetrainThreshold < 1 {
		return EngineConfig{}, apperr.Config("RETRAIN_THRESHOLD must be >= 1, got %d", cfg.RetrainThreshold)
	}
	return cfg, nil
}
