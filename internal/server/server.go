package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/mindshift/internal/affirmation"
	affirmationdomain "github.com/smallbiznis/mindshift/internal/affirmation/domain"
	"github.com/smallbiznis/mindshift/internal/badge"
	badgedomain "github.com/smallbiznis/mindshift/internal/badge/domain"
	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/smallbiznis/mindshift/internal/observability"
	obsmiddleware "github.com/smallbiznis/mindshift/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mindshift/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mindshift/internal/observability/tracing"
	"github.com/smallbiznis/mindshift/internal/practice"
	practicedomain "github.com/smallbiznis/mindshift/internal/practice/domain"
	"github.com/smallbiznis/mindshift/internal/ratelimit"
	"github.com/smallbiznis/mindshift/internal/user"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	user.Module,
	affirmation.Module,
	badge.Module,
	practice.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	userSvc        userdomain.Service
	affirmationSvc affirmationdomain.Service
	badgeSvc       badgedomain.Service
	practiceSvc    practicedomain.Service
	practiceGuard  *ratelimit.PracticeGuard
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	UserSvc        userdomain.Service
	AffirmationSvc affirmationdomain.Service
	BadgeSvc       badgedomain.Service
	PracticeSvc    practicedomain.Service
	PracticeGuard  *ratelimit.PracticeGuard `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            log.Named("http.server"),
		userSvc:        p.UserSvc,
		affirmationSvc: p.AffirmationSvc,
		badgeSvc:       p.BadgeSvc,
		practiceSvc:    p.PracticeSvc,
		practiceGuard:  p.PracticeGuard,
		obsMetrics:     p.ObsMetrics,
	}
	if p.Cfg.AuthJWTSecret == "" {
		svc.log.Warn("AUTH_JWT_SECRET is empty, every authenticated route will answer 401")
	}

	svc.registerAPIRoutes()
	svc.registerInternalRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.UserAuthRequired())

	// -------- Users --------
	api.POST("/users/sync", s.SyncUser)
	api.GET("/me", s.GetMe)
	api.PATCH("/me/settings", s.UpdateSettings)
	api.PATCH("/me/profile", s.UpdateProfile)
	api.GET("/me/stats", s.GetStats)
	api.GET("/me/today", s.GetTodayProgress)
	api.GET("/me/history", s.GetHistory)
	api.GET("/me/rank", s.GetRank)
	api.GET("/me/badges", s.ListMyBadges)
	api.GET("/me/transformations", s.GetTransformationCount)
	api.GET("/leaderboard", s.GetLeaderboard)

	// -------- Badges --------
	api.GET("/badges/catalog", s.GetBadgeCatalog)

	// -------- Affirmations --------
	api.POST("/affirmations", s.CreateAffirmation)
	api.GET("/affirmations", s.ListAffirmations)
	api.GET("/affirmations/:id", s.GetAffirmation)
	api.PATCH("/affirmations/:id", s.UpdateAffirmation)
	api.POST("/affirmations/:id/archive", s.ArchiveAffirmation)
	api.POST("/affirmations/:id/restore", s.RestoreAffirmation)
	api.DELETE("/affirmations/:id", s.DeleteAffirmation)

	// -------- Practices --------
	api.POST("/practices", s.PracticeRateLimit(), s.SubmitPractice)
}

// registerInternalRoutes exposes the billing integration surface. It is
// guarded by a shared token instead of user auth.
func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal", s.InternalTokenRequired())

	internal.PUT("/users/:externalId/subscription", s.UpdateSubscription)
	internal.POST("/users/:externalId/badges", s.AwardBadge)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
