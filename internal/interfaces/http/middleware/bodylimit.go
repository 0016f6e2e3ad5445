package middleware

import (
	"mime"
	"net/http"

	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimitConfig caps request bodies by content type. Attachment uploads
// arrive as multipart/form-data and get the larger budget; every other
// body is a JSON command and stays small.
type BodyLimitConfig struct {
	MaxBytes          int64
	MaxMultipartBytes int64
}

func (c BodyLimitConfig) limitFor(r *http.Request) int64 {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" && c.MaxMultipartBytes > 0 {
		return c.MaxMultipartBytes
	}
	return c.MaxBytes
}

// BodyLimit rejects oversized bodies up front when Content-Length is known
// and wraps the body so chunked uploads fail once they cross the limit.
func BodyLimit(cfg BodyLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		limit := cfg.limitFor(c.Request)
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodePayloadTooLarge,
				"Request body exceeds maximum allowed size",
				c.GetString(RequestIDContextKey),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
