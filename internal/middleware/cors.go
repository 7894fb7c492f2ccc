package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/portfolio/internal/config"
)

// CORS applies the configured cross-origin policy. Preflight requests from
// allowed origins are answered with 204; disallowed origins get 403.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowedMethods := strings.Join(cfg.AllowedMethods, ", ")
	allowedHeaders := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !isOriginAllowed(cfg.AllowedOrigins, origin) {
			c.AbortWithStatusJSON(http.StatusForbidden, "CORS policy violation")
			return
		}

		header := c.Writer.Header()
		if containsString(cfg.AllowedOrigins, "*") && !cfg.AllowCredentials {
			header.Set("Access-Control-Allow-Origin", "*")
		} else {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Add("Vary", "Origin")
		}
		if cfg.AllowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			header.Set("Access-Control-Allow-Methods", allowedMethods)
			if allowedHeaders != "" {
				header.Set("Access-Control-Allow-Headers", allowedHeaders)
			}
			if cfg.MaxAge > 0 {
				header.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isOriginAllowed matches origin against exact entries, "*" and
// "*.example.com" wildcards
func isOriginAllowed(allowed []string, origin string) bool {
	for _, pattern := range allowed {
		if pattern == "*" || pattern == origin {
			return true
		}

		if strings.HasPrefix(pattern, "*.") {
			domain := pattern[2:]
			hostname := originHostname(origin)
			if strings.HasSuffix(hostname, "."+domain) || hostname == domain {
				return true
			}
		}
	}
	return false
}

// originHostname returns the host of origin without scheme or port
func originHostname(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Hostname()
	}
	return origin
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
