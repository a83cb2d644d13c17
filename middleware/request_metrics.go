package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/cppla/clipbot/utils"
)

// RequestCounter counts served requests per matched route after the handler ran.
func RequestCounter() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// route templates keep the webhook secret and ids out of the labels
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := fmt.Sprintf("%dxx", c.Writer.Status()/100)
		utils.Stats.HTTPRequests.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
