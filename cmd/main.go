package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron"
	"go.uber.org/zap"

	"saaskit/internal/handler"
	"saaskit/internal/middleware"
	"saaskit/internal/model"
	"saaskit/internal/store"
	"saaskit/internal/token"
	"saaskit/pkg/config"
	"saaskit/pkg/database"
	"saaskit/pkg/jwtutil"
	"saaskit/pkg/logger"
	"saaskit/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting saaskit...", zap.String("environment", cfg.Server.Env))

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.User{},
		&model.Organization{},
		&model.Membership{},
		&model.RefreshToken{},
		&model.Invitation{},
		&model.Ticket{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	jwtUtil := jwtutil.NewJWTUtil(&cfg.JWT)
	refreshTokens := store.NewRefreshTokenStore(db)
	orgs := store.NewOrganizationStore(db)
	members := store.NewMembershipStore(db)
	tokenService := token.NewService(jwtUtil, refreshTokens)

	handler.InitAuthHandlers(tokenService)
	handler.InitInvitationHandlers(cfg.Invite.TTL)

	// Expired refresh tokens are pruned lazily at rotation; the sweep
	// bounds store growth for sessions that never come back.
	if cfg.TokenSweep.Schedule != "" {
		sweeper := cron.New()
		if err := sweeper.AddFunc(cfg.TokenSweep.Schedule, func() {
			removed, err := tokenService.SweepExpired()
			if err != nil {
				log.Error("Refresh token sweep failed", zap.Error(err))
				return
			}
			if removed > 0 {
				prometheus.SweptTokensCounter.Add(float64(removed))
				prometheus.SubtractActiveSessions(removed)
				log.Info("Swept expired refresh tokens", zap.Int64("removed", removed))
			}
		}); err != nil {
			log.Fatal("Invalid token sweep schedule",
				zap.String("schedule", cfg.TokenSweep.Schedule), zap.Error(err))
		}
		sweeper.Start()
		log.Info("Token sweep scheduled", zap.String("schedule", cfg.TokenSweep.Schedule))
	}

	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/refresh", handler.Refresh)
	auth.POST("/logout", handler.Logout)
	auth.POST("/logout-all", handler.LogoutAll, middleware.Auth(jwtUtil))

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.Auth(jwtUtil))

	api.GET("/me", handler.GetProfile)
	api.PATCH("/me", handler.UpdateProfile)
	api.POST("/me/password", handler.ChangePassword)

	api.POST("/invitations/accept", handler.AcceptInvitation)

	api.POST("/orgs", handler.CreateOrg)
	api.GET("/orgs", handler.ListOrgs)

	// Organization-scoped routes: slug resolution, membership and role
	// checks run before any handler.
	scoped := api.Group("/orgs/:slug")
	scoped.Use(middleware.OrgScope(orgs, members))

	scoped.GET("", handler.GetOrg)
	scoped.PATCH("", handler.UpdateOrg, middleware.RequireRole(model.RoleOrgAdmin))

	scoped.GET("/members", handler.ListMembers, middleware.RequireRole(model.RoleManager))
	scoped.PATCH("/members/:userID", handler.UpdateMemberRole, middleware.RequireRole(model.RoleManager))
	scoped.DELETE("/members/:userID", handler.RemoveMember)

	scoped.POST("/invitations", handler.CreateInvitation, middleware.RequireRole(model.RoleManager))
	scoped.GET("/invitations", handler.ListInvitations, middleware.RequireRole(model.RoleManager))
	scoped.DELETE("/invitations/:id", handler.RevokeInvitation, middleware.RequireRole(model.RoleManager))

	scoped.POST("/tickets", handler.CreateTicket)
	scoped.GET("/tickets", handler.ListTickets)
	scoped.GET("/tickets/:id", handler.GetTicket)
	scoped.PATCH("/tickets/:id", handler.UpdateTicket)
	scoped.DELETE("/tickets/:id", handler.DeleteTicket)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
