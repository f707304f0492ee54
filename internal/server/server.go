package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gymdesk/internal/audit"
	"gymdesk/internal/auth"
	"gymdesk/internal/booking"
	"gymdesk/internal/config"
	"gymdesk/internal/membership"
	"gymdesk/internal/notify"
	"gymdesk/internal/plan"
	"gymdesk/internal/shift"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	RegisterValidations()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	auditRepo := audit.NewRepository(db)

	planSvc := plan.NewService(db, plan.NewRepository(db), auditRepo, notifier)
	planHandler := plan.NewHandler(planSvc)

	membershipSvc := membership.NewService(
		db,
		membership.NewRepository(db),
		planSvc,
		membership.NewPaymentReader(db),
		auditRepo,
		notifier,
	)
	membershipHandler := membership.NewHandler(membershipSvc)

	bookingSvc := booking.NewService(db, booking.NewRepository(db))
	bookingHandler := booking.NewHandler(bookingSvc)

	shiftSvc := shift.NewService(db, shift.NewRepository(db), notifier)
	shiftHandler := shift.NewHandler(shiftSvc)

	auditHandler := audit.NewHandler(auditRepo)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/memberships", membershipHandler.Assign)
		protected.POST("/memberships/:membershipID/change", membershipHandler.Change)
		protected.POST("/memberships/:membershipID/pause", membershipHandler.Pause)
		protected.POST("/memberships/:membershipID/resume", membershipHandler.Resume)
		protected.POST("/memberships/:membershipID/cancel", membershipHandler.Cancel)
		protected.POST("/memberships/:membershipID/expire", membershipHandler.Expire)
		protected.GET("/members/:memberID/memberships", membershipHandler.ListByMember)

		protected.POST("/bookings", bookingHandler.CreatePersonal)
		protected.GET("/bookings/:bookingID", bookingHandler.Get)
		protected.PATCH("/bookings/:bookingID", bookingHandler.UpdatePersonal)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.Cancel)
		protected.POST("/bookings/:bookingID/complete", bookingHandler.Complete)
		protected.POST("/bookings/:bookingID/no-show", bookingHandler.NoShow)
		protected.POST("/classes", bookingHandler.CreateClass)
		protected.GET("/classes/:classID", bookingHandler.GetClass)
		protected.POST("/classes/:classID/reserve", bookingHandler.Reserve)
		protected.GET("/trainers/:trainerID/bookings", bookingHandler.ListByTrainer)
		protected.GET("/trainers/:trainerID/classes", bookingHandler.ListClassesByTrainer)

		protected.POST("/shifts", shiftHandler.CreateShift)
		protected.GET("/trainers/:trainerID/shifts", shiftHandler.ListByTrainer)
		protected.POST("/exchanges", shiftHandler.Propose)
		protected.GET("/exchanges/:requestID", shiftHandler.GetRequest)
		protected.POST("/exchanges/:requestID/respond", shiftHandler.Respond)

		protected.GET("/plans", planHandler.List)
	}

	managerMiddleware := auth.RequireRole("manager")
	manager := router.Group("/")
	manager.Use(authMiddleware, managerMiddleware)
	{
		manager.POST("/plans", planHandler.Create)
		manager.PATCH("/plans/:planID", planHandler.Update)
		manager.POST("/plans/:planID/activate", planHandler.Activate)
		manager.POST("/plans/:planID/deactivate", planHandler.Deactivate)

		manager.GET("/audit/:subjectKind/:subjectID", auditHandler.List)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
