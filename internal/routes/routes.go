package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/maratonas-femininas/maratonas/internal/auth"
	"github.com/maratonas-femininas/maratonas/internal/competition"
	"github.com/maratonas-femininas/maratonas/internal/config"
	"github.com/maratonas-femininas/maratonas/internal/identity"
	"github.com/maratonas-femininas/maratonas/internal/middleware"
	"github.com/maratonas-femininas/maratonas/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	msg := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Services and handlers
	var (
		identityRepo    identity.Repository
		competitionRepo competition.Repository
		revocations     auth.Revocations
		notifier        notification.Notifier
	)
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		competitionRepo = competition.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		competitionRepo = competition.NewMemoryRepository()
	}
	if d.Cache != nil {
		revocations = auth.NewRedisRevocations(d.Cache)
		notifier = notification.NewRedisNotifier(d.Cache, "")
	} else {
		revocations = auth.NewMemoryRevocations()
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, revocations)
	competitionSvc := competition.NewService(competitionRepo, identitySvc, notifier, d.Logger)

	if d.Cfg.SeedDemoUsers {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := seedDemo(ctx, identitySvc, competitionSvc, d.Logger); err != nil {
			return err
		}
	}

	authHandler := auth.NewHandler(identitySvc, authSvc, d.Logger)
	competitionHandler := competition.NewHandler(competitionSvc, d.Logger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.RequestIDFrom(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identitySvc, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	protected := api.Group("", middleware.BearerAuth(authSvc, d.Logger))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterProfileRoute(protected, identitySvc)
	RegisterCompetitionRoutes(protected, competitionHandler)
	RegisterTeamRoutes(protected, competitionHandler)

	return nil
}

func seedDemo(ctx context.Context, ids *identity.Service, comps *competition.Service, logger *slog.Logger) error {
	users, err := ids.SeedDemo(ctx)
	if err != nil {
		return fmt.Errorf("seed demo users: %w", err)
	}
	var admin, collaborator identity.User
	for _, u := range users {
		switch u.Role {
		case identity.RoleAdmin:
			admin = u
		case identity.RoleCollaborator:
			collaborator = u
		}
	}
	logger.Info("demo users ready", slog.Int("count", len(users)))

	teams, err := comps.Teams(ctx)
	if err != nil {
		return err
	}
	if len(teams) > 0 || admin.ID == "" || collaborator.ID == "" {
		return nil
	}
	team, err := comps.CreateTeam(ctx, admin.Identity(), "Meninas na Computação", []string{collaborator.ID})
	if err != nil {
		return fmt.Errorf("seed demo team: %w", err)
	}
	_, err = comps.Create(ctx, collaborator.Identity(), competition.CreateInput{
		Name:            "Maratona Feminina de Programação",
		Location:        "Belo Horizonte",
		Date:            time.Now().UTC().AddDate(0, 1, 0),
		StartTime:       "09:00",
		MaxParticipants: 60,
		Description:     "Competição em trios para estudantes de graduação.",
		TeamID:          team.ID,
	})
	if err != nil {
		return fmt.Errorf("seed demo competition: %w", err)
	}
	return nil
}
