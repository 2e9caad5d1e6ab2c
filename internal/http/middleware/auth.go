package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careerprep-backend/internal/modules/auth"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

const SessionCookie = "session"

type AuthMiddleware struct {
	log      *logger.Logger
	sessions auth.SessionService
}

func NewAuthMiddleware(log *logger.Logger, sessions auth.SessionService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), sessions: sessions}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		sess, err := am.sessions.Resolve(c.Request.Context(), tokenString)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, auth.ErrInvalidSession) && !errors.Is(err, auth.ErrSessionRevoked) {
				am.log.Error("session resolve failed", "error", err.Error())
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{
				"error": gin.H{"message": "unauthorized", "code": "unauthorized"},
			})
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID:    sess.User.ID,
			SessionID: sess.ID,
			Token:     tokenString,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ExtractToken reads the session cookie, then a bearer header, then the
// token query parameter used by EventSource clients.
func ExtractToken(c *gin.Context) string {
	if v, err := c.Cookie(SessionCookie); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
