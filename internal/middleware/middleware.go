package middleware

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/ratelimit"
	"github.com/yigit/electivepro/internal/pkg/tenancy"
)

// RequestLogger writes one zerolog event per request
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}

		if tenant := GetTenant(c); tenant != nil {
			event = event.Str("tenant", tenant.Subdomain)
		}
		if userID := GetUserID(c); userID != 0 {
			event = event.Int64("userID", userID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("clientIP", c.ClientIP()).
			Msg("Request handled")
	}
}

// CORS allows browser calls from the platform domain and any institution
// subdomain. Local origins (localhost, bare IPs) pass only when allowLocal is set.
func CORS(rootDomain string, allowLocal bool, allowHeaders ...string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     append([]string{"Origin", "Content-Type", "Authorization"}, allowHeaders...),
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			return AllowedOrigin(origin, rootDomain, allowLocal)
		},
	}
	return cors.New(cfg)
}

// AllowedOrigin reports whether a browser origin belongs to the platform
func AllowedOrigin(origin, rootDomain string, allowLocal bool) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" || net.ParseIP(host) != nil {
		return allowLocal
	}
	return tenancy.ParseHost(u.Host, rootDomain).Kind != tenancy.HostUnknown
}

// RateLimit rejects clients that exceed limiter, keyed by client IP
func RateLimit(limiter *ratelimit.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			abortWithError(c, http.StatusTooManyRequests,
				dto.NewErrorDetail(dto.ErrorCodeTooManyRequests, "Too many requests, try again later"))
			return
		}
		c.Next()
	}
}
