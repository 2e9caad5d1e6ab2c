package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careerprep-backend/internal/http/middleware"
	"github.com/yungbote/careerprep-backend/internal/http/response"
	"github.com/yungbote/careerprep-backend/internal/modules/auth"
)

type AuthHandler struct {
	sessions     auth.SessionService
	secureCookie bool
}

// NewAuthHandler builds the session endpoints. secureCookie marks the
// session cookie Secure, which production requires.
func NewAuthHandler(sessions auth.SessionService, secureCookie bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, secureCookie: secureCookie}
}

func (ah *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", ah.secureCookie, true)
}

// POST /api/auth/session
// body: { "idToken": "..." }
func (ah *AuthHandler) CreateSession(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_id_token", errors.New("idToken is required"))
		return
	}
	sess, err := ah.sessions.Create(c.Request.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidIdentity) {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid identity token"))
			return
		}
		response.RespondFlowError(c, err)
		return
	}
	ah.setCookie(c, sess.Token, int(ah.sessions.TTL().Seconds()))
	response.RespondOK(c, gin.H{
		"status":    "success",
		"user":      sess.User,
		"expiresAt": sess.ExpiresAt,
	})
}

// DELETE /api/auth/session
func (ah *AuthHandler) DeleteSession(c *gin.Context) {
	if token := middleware.ExtractToken(c); token != "" {
		_ = ah.sessions.Revoke(c.Request.Context(), token)
	}
	ah.setCookie(c, "", -1)
	response.RespondOK(c, gin.H{"status": "success"})
}
