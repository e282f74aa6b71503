package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "adaayien/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小；超限时 binding 读到 *http.MaxBytesError
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
