package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"attendance-backend/internal/auth"
	"attendance-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(h.cfg.Server.RateLimitPerSec), h.cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(h.cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	adminOnly := auth.AdminAuth(h.cfg.Auth.SigningKey, h.cfg.Auth.Issuer)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Public: live occupancy display and event stream.
		api.GET("/checkins/current", h.GetCurrentCheckins)
		api.GET("/events", h.StreamEvents)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		// Authentication.
		api.POST("/login", h.Login)
		api.POST("/setup-admin", h.SetupAdmin)

		// Admin: member management.
		api.GET("/members", adminOnly, h.ListMembers)
		api.POST("/members", adminOnly, h.CreateMember)
		api.PUT("/members/:id", adminOnly, h.UpdateMember)
		api.DELETE("/members/:id", adminOnly, h.DeleteMember)
		api.GET("/members/:id/history", adminOnly, h.MemberHistory)

		// Admin: attendance actions.
		api.POST("/checkins/manual", adminOnly, h.ManualCheckin)
		api.POST("/scan", adminOnly, h.Scan)
		api.POST("/auto-checkout", adminOnly, h.TriggerAutoCheckout)

		// Admin: reports and settings.
		api.GET("/reports/daily", adminOnly, caching, h.DailyReport)
		api.GET("/reports/weekly", adminOnly, caching, h.WeeklyReport)
		api.GET("/settings", adminOnly, h.GetSettings)
		api.POST("/settings", adminOnly, h.UpdateSettings)

		// Push subscriptions.
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
