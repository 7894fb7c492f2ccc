package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/portfolio/pkg/log"
)

// Recovery turns a panic into a 500 response with a JSON string body
func Recovery(logger log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Component("middleware.recovery")
	}

	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		logger.WithContext(c.Request.Context()).Error("Recovered from panic",
			log.String(log.FieldMethod, c.Request.Method),
			log.String(log.FieldPath, c.Request.URL.Path),
			log.String("panic", fmt.Sprint(recovered)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, "Internal server error")
	})
}
