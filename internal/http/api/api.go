// Package api wires the nutrition API routes, middleware, and handlers.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/calstars/calories-backend/internal/ai"
	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/http/handlers"
	"github.com/calstars/calories-backend/internal/ingest"
	"github.com/calstars/calories-backend/internal/ratelimit"
	"github.com/calstars/calories-backend/internal/summary"
	"github.com/calstars/calories-backend/internal/telegram"
	"github.com/calstars/calories-backend/internal/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps bundles the services the API routes are built from.
type Deps struct {
	DB             *gorm.DB
	Resolver       *auth.Resolver
	Summary        *summary.Service
	Ingest         *ingest.Store
	Files          *uploads.Store
	Estimator      ai.Estimator
	Limiter        *ratelimit.Manager
	Telegram       *telegram.Client
	TZOffsetHours  int
	FrontendOrigin string
}

// RegisterRoutes registers all routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	r.Use(corsMiddleware(deps.FrontendOrigin))

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	// Payment webhooks come from Telegram's servers, not the Mini App, so
	// they sit outside the initData-authenticated group.
	webhookHandler := handlers.NewWebhookHandler(deps.DB, deps.Telegram)
	r.POST("/api/telegram/webhook", webhookHandler.Post)

	if deps.Files != nil {
		r.Static(uploads.PublicPrefix, deps.Files.Dir())
	}

	apiGroup := r.Group("/api")
	apiGroup.Use(auth.Middleware(deps.Resolver))

	profileHandler := handlers.NewProfileHandler(deps.Summary, deps.TZOffsetHours)
	apiGroup.GET("/profile", profileHandler.Get)

	summaryHandler := handlers.NewSummaryHandler(deps.Summary)
	apiGroup.GET("/summary", summaryHandler.Get)

	mealHandler := handlers.NewMealHandler(deps.Ingest, deps.Estimator)
	apiGroup.POST("/addmeal", mealHandler.Add)
	apiGroup.POST("/aiadd", aiLimitMiddleware(deps.Limiter), mealHandler.AIAdd)
	apiGroup.DELETE("/meal/:id", mealHandler.Delete)

	uploadHandler := handlers.NewUploadHandler(deps.DB, deps.Files, deps.Ingest, deps.Estimator)
	apiGroup.POST("/upload", aiLimitMiddleware(deps.Limiter), uploadHandler.Post)

	subscriptionHandler := handlers.NewSubscriptionHandler(deps.DB, deps.Telegram)
	apiGroup.GET("/subscribe/status", subscriptionHandler.Status)
	apiGroup.POST("/subscribe/create", subscriptionHandler.Create)
}

// aiLimitMiddleware throttles the AI-backed entry paths per user.
func aiLimitMiddleware(limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, errAllow := limiter.AllowUser(c.Request.Context(), auth.TelegramID(c))
		if errAllow != nil || result.Allowed {
			c.Next()
			return
		}
		c.Header("Retry-After", fmt.Sprintf("%d", int(time.Until(result.Reset).Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many AI requests, slow down"})
	}
}

// corsMiddleware allows the configured Mini App origin to call the API.
func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+auth.HeaderInitData)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
