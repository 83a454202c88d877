package routes

import (
	"net/http"
	"time"

	"brightcall/handlers"
	"brightcall/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterCallRoutes registers the operator-facing call endpoints.
func RegisterCallRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/calls")
	{
		api.POST("/trigger", middleware.APIKeyMiddleware(), middleware.RateLimitMiddleware(), hb.TriggerCallHandler)

		// Provider status callbacks are authenticated by obscurity of the
		// correlation id, matching the webhook contract.
		api.POST("/status", hb.CallStatusHandler)
	}
}

// RegisterRecordRoutes registers the archived call record lookups.
func RegisterRecordRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/records", middleware.APIKeyMiddleware())
	{
		api.GET("", hb.ListCallRecordsHandler)
		api.GET("/:id", hb.GetCallRecordHandler)
	}
}

// RegisterTelephonyRoutes registers the endpoints the telephony provider
// calls back into.
func RegisterTelephonyRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/twiml", hb.TwiMLHandler)
	r.POST("/twiml", hb.TwiMLHandler)
	r.GET("/media-stream", hb.MediaStreamHandler)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm BrightCall"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterCallRoutes(r, hb)
	RegisterRecordRoutes(r, hb)
	RegisterTelephonyRoutes(r, hb)
	RegisterHealthRoute(r)
}
