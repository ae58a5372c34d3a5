package delivery

import (
	"time"

	"adsdash/internal/delivery/middleware"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type HTTPRouter struct {
	handlers       *HTTPHandlers
	logger         *logger.Logger
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	requestTimeout time.Duration
}

func NewHTTPRouter(
	handlers *HTTPHandlers,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
	requestTimeout time.Duration,
) *HTTPRouter {
	return &HTTPRouter{
		handlers:       handlers,
		logger:         logger,
		metrics:        metrics,
		gatherer:       gatherer,
		requestTimeout: requestTimeout,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.Timeout(r.requestTimeout, "/events"))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	// Health endpoint
	router.GET("/health", r.handlers.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/", r.handlers.GetAPIInfo)
		v1.GET("", r.handlers.GetAPIInfo)

		v1.POST("/sessions", r.handlers.CreateSession)

		session := v1.Group("/sessions/:id")
		{
			session.GET("", r.handlers.GetSession)
			session.DELETE("", r.handlers.DeleteSession)

			// Collections
			session.GET("/campaigns", r.handlers.ListCampaigns)
			session.GET("/adsets", r.handlers.ListAdSets)
			session.GET("/ads", r.handlers.ListAds)
			session.GET("/metrics", r.handlers.ListMetrics)

			// Selection
			session.POST("/actions", r.handlers.DispatchAction)

			// Data loading
			session.POST("/reload", r.handlers.ReloadSession)
			session.POST("/refresh", r.handlers.RefreshSession)

			session.DELETE("/notice", r.handlers.AcknowledgeNotice)
			session.GET("/events", r.handlers.StreamEvents)
		}
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler(r.gatherer))

	return router
}
