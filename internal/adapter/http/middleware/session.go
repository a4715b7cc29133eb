package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-Id"
	SessionCookie = "foodhub_session"

	sessionKey    = "session_id"
	sessionMaxAge = 72 * time.Hour
	maxSessionLen = 128
)

// Session resolves the opaque cart session id from the header or cookie and
// mints a new one when the client has none. The id is echoed in both places.
func Session(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sid == "" {
			if v, err := c.Cookie(SessionCookie); err == nil {
				sid = strings.TrimSpace(v)
			}
		}
		if sid == "" || len(sid) > maxSessionLen {
			sid = uuid.NewString()
		}

		c.Set(sessionKey, sid)
		c.Header(SessionHeader, sid)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sid, int(sessionMaxAge.Seconds()), "/", "", secure, true)
		c.Next()
	}
}

// SessionID returns the id resolved by Session, or "" outside it.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
