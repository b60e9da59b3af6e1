package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is
	// stored so handlers can retrieve it without reading the response header.
	RequestIDKey = "request_id"
)

// RequestID ensures every request carries a unique identifier propagated as an
// X-Request-ID header. If the inbound request already carries one (set by a
// load balancer or gateway) its value is reused unchanged, otherwise a new
// UUID v4 is generated. The identifier is echoed back in the response so
// clients can correlate their request with server-side log entries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
