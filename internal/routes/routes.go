package routes

import (
	"github.com/fitclub-app/GymClubBack/internal/config"
	"github.com/fitclub-app/GymClubBack/internal/handlers"
	"github.com/fitclub-app/GymClubBack/internal/metrics"
	"github.com/fitclub-app/GymClubBack/internal/middleware"
	"github.com/fitclub-app/GymClubBack/internal/repository"
	"github.com/fitclub-app/GymClubBack/internal/services"
	notifyws "github.com/fitclub-app/GymClubBack/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	gymRepo := repository.NewGymRepository(db)
	requestRepo := repository.NewSessionRequestRepository(db)
	proposalRepo := repository.NewSessionProposalRepository(db)
	sessionRepo := repository.NewScheduledSessionRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	optionRepo := repository.NewGoalOptionRepository(db)
	voteRepo := repository.NewGoalVoteRepository(db)
	contributionRepo := repository.NewGoalContributionRepository(db)

	metrics.Register()

	hub := notifyws.NewHub()
	go hub.Run()

	gate := services.NewTierFeatureGate(gymRepo)
	negotiationService := services.NewNegotiationService(
		db, requestRepo, proposalRepo, sessionRepo, userRepo, gate, hub,
	)
	goalService := services.NewGoalService(
		db, goalRepo, optionRepo, voteRepo, contributionRepo, gate, hub,
	)

	authHandler := handlers.NewAuthHandler(userRepo, gymRepo, cfg.JWTSecret)
	sessionHandler := handlers.NewSessionHandler(negotiationService)
	goalHandler := handlers.NewGoalHandler(goalService)
	notificationHandler := handlers.NewNotificationHandler(hub, cfg.JWTSecret)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.CreateRequest)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/requests", sessionHandler.ListRequests)
	sessions.Post("/requests/:id", sessionHandler.Respond)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)
	sessions.Post("/:id/complete", sessionHandler.CompleteSession)

	goals := authProtected.Group("/goals")
	goals.Get("", goalHandler.ListGoals)
	goals.Post("", goalHandler.CreateGoal)
	goals.Get("/:id", goalHandler.GetGoal)
	goals.Post("/:id/vote", goalHandler.CastVote)
	goals.Post("/:id/contributions", goalHandler.RecordContribution)

	api.Use("/v1/ws", notificationHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(notificationHandler.HandleWebSocket))
}
