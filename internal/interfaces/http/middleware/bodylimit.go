package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onlinekart/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects request bodies larger than maxBytes. A declared
// Content-Length over the limit fails immediately with 413; bodies
// without one are wrapped in a MaxBytesReader, so chunked uploads fail
// once the limit is crossed mid-read.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(
				http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size"),
			)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
