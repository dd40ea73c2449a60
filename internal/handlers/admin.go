package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"poolguard/internal/config"
	"poolguard/internal/repositories"
	"poolguard/internal/scheduler"
	"poolguard/internal/services/alerts"
	"poolguard/internal/services/credibility"
	"poolguard/internal/utils"
)

// AdminHandler exposes the operator surface: rule and weight reloads, forced
// sweeps and the latest sweep's clusters.
type AdminHandler struct {
	cred      *credibility.Service
	engine    *alerts.Engine
	scheduler *scheduler.Scheduler
	clusters  repositories.ClusterRepository
	cfg       config.EngineConfig
	logger    *zap.Logger
}

func NewAdminHandler(cred *credibility.Service, engine *alerts.Engine, sched *scheduler.Scheduler, clusters repositories.ClusterRepository, cfg config.EngineConfig, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		cred:      cred,
		engine:    engine,
		scheduler: sched,
		clusters:  clusters,
		cfg:       cfg,
		logger:    logger,
	}
}

// ReloadRules re-reads the YAML rule table and swaps it in. A malformed
// table is rejected and the running table stays in place.
func (h *AdminHandler) ReloadRules(c *fiber.Ctx) error {
	table, err := alerts.LoadRules(h.cfg.RulesPath)
	if err != nil {
		h.logger.Warn("rule table reload rejected", zap.Error(err))
		return utils.Error(c, err)
	}
	h.engine.Reload(table)
	return utils.Success(c, fiber.Map{"reloaded": true, "categories": len(table)})
}

type reloadWeightsRequest struct {
	Document float64 `json:"document"`
	Behavior float64 `json:"behavior"`
	Graph    float64 `json:"graph"`
}

// ReloadWeights swaps in a new signal weight set. Validation failures leave
// the running weights untouched.
func (h *AdminHandler) ReloadWeights(c *fiber.Ctx) error {
	var req reloadWeightsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	cfg := h.cfg
	cfg.Weights = config.Weights{
		Document: req.Document,
		Behavior: req.Behavior,
		Graph:    req.Graph,
	}
	if err := h.cred.Reload(cfg); err != nil {
		return utils.Error(c, err)
	}
	h.cfg = cfg
	return utils.Success(c, fiber.Map{"reloaded": true})
}

// Sweep forces a collusion sweep outside the cron schedule.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	res, err := h.scheduler.RunSweepNow(c.Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"clusters":         len(res.Clusters),
		"highly_connected": len(res.HighlyConnected),
		"partial":          res.Partial,
	})
}

// Clusters returns the clusters persisted by the most recent sweep.
func (h *AdminHandler) Clusters(c *fiber.Ctx) error {
	rows, err := h.clusters.LatestSweep(c.Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"clusters": rows})
}
