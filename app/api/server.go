package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey, version string, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, version)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey, version string) {
	// Public read endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/listings", handler.ListListings)
	r.GET("/listings/:id", handler.GetListing)
	r.GET("/listings/:id/history", handler.GetPriceHistory)

	// API endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/watchlist", handler.APIGetWatchlist)
			api.POST("/watchlist/:id", handler.APIAddToWatchlist)
			api.DELETE("/watchlist/:id", handler.APIRemoveFromWatchlist)
			api.PATCH("/listings/:id/sqfootage", handler.APISetSqFootage)
			api.POST("/run", handler.APITriggerRun)
			api.POST("/export", handler.APITriggerExport)
			api.GET("/lookup", handler.APILookupLocation)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health":   "/health",
			"stats":    "/stats",
			"listings": "/listings?include_removed=<bool>",
			"listing":  "/listings/<id>",
			"history":  "/listings/<id>/history",
		}

		if apiAccessKey != "" {
			endpoints["watchlist"] = "/api/watchlist (requires X-API-Key header)"
			endpoints["watchlist_toggle"] = "/api/watchlist/<id> (POST/DELETE, requires X-API-Key header)"
			endpoints["sqfootage"] = "/api/listings/<id>/sqfootage (PATCH, requires X-API-Key header)"
			endpoints["run"] = "/api/run (POST, requires X-API-Key header)"
			endpoints["export"] = "/api/export (POST, requires X-API-Key header)"
			endpoints["lookup"] = "/api/lookup?query=<place> (requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "Property Comb",
			"version":     version,
			"description": "Property listing tracker with price history, removal detection and stale listing alerts",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
