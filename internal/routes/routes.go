// Package routes wires the HTTP surface onto the fiber app.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"poolguard/internal/handlers"
	"poolguard/internal/middleware"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Score        *handlers.ScoreHandler
	Contribution *handlers.ContributionHandler
	Fund         *handlers.FundHandler
	Feedback     *handlers.FeedbackHandler
	Admin        *handlers.AdminHandler
	AuthMW       *middleware.AuthMiddleware
}

// SetupRoutes registers all endpoints. Scoring, escrow and feedback sit
// behind moderator auth; rule reloads and forced sweeps additionally require
// the admin role.
func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")
	api.Post("/auth/login", h.Auth.Login)

	protected := api.Group("", h.AuthMW.Handler)
	protected.Post("/auth/logout", h.Auth.Logout)

	protected.Post("/users", h.User.Register)
	protected.Get("/users/:id", h.User.Get)
	protected.Post("/users/:id/device", h.User.FlagDevice)
	protected.Delete("/users/:id", h.User.Deactivate)

	protected.Post("/users/:id/score", h.Score.ScoreUser)
	protected.Get("/users/:id/score", h.Score.GetScore)
	protected.Post("/scores/batch", h.Score.ScoreBatch)

	protected.Post("/contributions", h.Contribution.Create)
	protected.Post("/funds", h.Fund.Create)
	protected.Get("/funds/:id/status", h.Fund.Status)
	protected.Post("/funds/:id/release", h.Fund.Release)
	protected.Get("/funds/:id/ledger", h.Fund.Ledger)
	protected.Get("/funds/:id/evaluate", h.Fund.Evaluate)

	protected.Post("/feedback", h.Feedback.Create)
	protected.Get("/retrain/check", h.Feedback.RetrainCheck)
	protected.Post("/retrain/mark", h.Feedback.RetrainMark)

	admin := protected.Group("/admin", middleware.AdminOnly)
	admin.Post("/rules/reload", h.Admin.ReloadRules)
	admin.Post("/weights/reload", h.Admin.ReloadWeights)
	admin.Post("/sweep", h.Admin.Sweep)
	admin.Get("/clusters", h.Admin.Clusters)
}
