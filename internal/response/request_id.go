package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys read back into Metadata.
const (
	ContextKeyRequestID = "request_id"
	ContextKeyExamID    = "exam_id"
	ContextKeyAttemptID = "attempt_id"
)

const maxRequestIDLen = 64

// RequestIDMiddleware tags every request with an ID. A client-supplied
// X-Request-ID is kept only when it is short and made of safe characters,
// since it is echoed into headers and logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if !validRequestID(reqID) {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// RequestID returns the current request's ID, or "" outside the middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// TagExam records the exam a request concerns so it is reported in the
// response metadata, errors included.
func TagExam(c *gin.Context, examID string) {
	if examID != "" {
		c.Set(ContextKeyExamID, examID)
	}
}

// TagAttempt records the attempt a student request concerns.
func TagAttempt(c *gin.Context, attemptID string) {
	if attemptID != "" {
		c.Set(ContextKeyAttemptID, attemptID)
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
