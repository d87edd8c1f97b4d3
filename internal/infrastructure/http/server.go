package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/studyloop/billing-service/internal/adapter/handler/http"
	"github.com/studyloop/billing-service/internal/config"
	"github.com/studyloop/billing-service/internal/domain/gateway"
	"github.com/studyloop/billing-service/internal/infrastructure/database"
	applogger "github.com/studyloop/billing-service/internal/logger"
	"github.com/studyloop/billing-service/internal/middleware/auth"
	"github.com/studyloop/billing-service/internal/notify"
	"github.com/studyloop/billing-service/internal/usecase"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	gateway  gateway.PaymentGateway
	notifier notify.Notifier
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	gw gateway.PaymentGateway,
	notifier notify.Notifier,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()

	// Middleware
	e.Use(applogger.NewEchoRequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		repos:    repos,
		gateway:  gw,
		notifier: notifier,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Usecases
	planService := usecase.NewPlanService(s.repos.Plan, s.logger)
	subscriptionService := usecase.NewSubscriptionService(
		s.repos.Account,
		planService,
		s.gateway,
		usecase.SubscriptionConfig{
			TrialExtension:    s.config.Service.Billing.TrialExtensionDuration(),
			DefaultSuccessURL: s.config.Service.ClientURL + s.config.Service.Billing.CheckoutSuccessPath,
			DefaultCancelURL:  s.config.Service.ClientURL + s.config.Service.Billing.CheckoutCancelPath,
			InvoiceListLimit:  int64(s.config.Service.Billing.InvoiceListLimit),
		},
		s.logger,
	)
	webhookService := usecase.NewWebhookService(
		s.gateway,
		s.repos.Account,
		planService,
		s.repos.Webhook,
		s.notifier,
		s.logger,
	)

	// Handlers
	plansHandler := handlers.NewPlansHandler(s.logger, planService)
	checkoutHandler := handlers.NewCheckoutHandler(s.logger, subscriptionService, planService)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.logger, subscriptionService, planService)
	webhookHandler := handlers.NewWebhookHandler(s.logger, webhookService)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
			"/api/v1/plans",
		},
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public routes (no authentication required)
	v1.GET("/plans", plansHandler.ListPlans)

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	protected.POST("/checkout", checkoutHandler.CreateCheckout)

	subscriptions := protected.Group("/subscriptions")
	subscriptions.GET("/current", subscriptionHandler.GetCurrentSubscription)
	subscriptions.POST("/plan", subscriptionHandler.ChangePlan)
	subscriptions.DELETE("/current", subscriptionHandler.CancelSubscription)
	subscriptions.POST("/reactivate", subscriptionHandler.ReactivateSubscription)
	subscriptions.POST("/trial-extension", subscriptionHandler.ExtendTrial)

	protected.PUT("/payment-method", subscriptionHandler.UpdatePaymentMethod)
	protected.GET("/invoices", subscriptionHandler.ListInvoices)

	// Webhook route (outside API versioning)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
