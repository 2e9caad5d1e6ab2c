package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/data/repos"
	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/http/response"
	"github.com/yungbote/careerprep-backend/internal/modules/auth"
	"github.com/yungbote/careerprep-backend/internal/platform/apierr"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
	"github.com/yungbote/careerprep-backend/internal/realtime"
	"github.com/yungbote/careerprep-backend/internal/realtime/bus"
)

var profileSchema = schema.Object(
	schema.Field("first_name", schema.String().Opt()),
	schema.Field("last_name", schema.String().Opt()),
	schema.Field("linkedin_profile", schema.String().Opt()),
	schema.Field("github_profile", schema.String().Opt()),
)

type UserHandler struct {
	log      *logger.Logger
	users    repos.UserRepo
	sessions auth.SessionService
	bus      bus.Bus
}

func NewUserHandler(log *logger.Logger, users repos.UserRepo, sessions auth.SessionService, b bus.Bus) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), users: users, sessions: sessions, bus: b}
}

func (uh *UserHandler) me(c *gin.Context) (*domain.User, bool) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondFlowError(c, apierr.Unauthorized("unauthorized", nil))
		return nil, false
	}
	users, err := uh.users.GetByIDs(c.Request.Context(), nil, []uuid.UUID{userID})
	if err != nil {
		response.RespondFlowError(c, err)
		return nil, false
	}
	if len(users) == 0 {
		response.RespondFlowError(c, apierr.NotFound("user_not_found", errors.New("user not found")))
		return nil, false
	}
	return users[0], true
}

// GET /api/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	if me, ok := uh.me(c); ok {
		response.RespondOK(c, gin.H{"me": me})
	}
}

// PATCH /api/me
// body: { "first_name", "last_name", "linkedin_profile", "github_profile" }, all optional
func (uh *UserHandler) UpdateMe(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondFlowError(c, apierr.Unauthorized("unauthorized", nil))
		return
	}
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondFlowError(c, invalidBody("profile", err))
		return
	}
	validated, err := schema.Validate(profileSchema, body)
	if err != nil {
		var vs schema.Violations
		if errors.As(err, &vs) {
			response.RespondFlowError(c, &flow.ValidationError{Flow: "profile", Violations: vs})
			return
		}
		response.RespondFlowError(c, err)
		return
	}
	fields, _ := validated.(map[string]any)
	patch := domain.UserProfileUpdate{
		FirstName:       optString(fields, "first_name"),
		LastName:        optString(fields, "last_name"),
		LinkedInProfile: optString(fields, "linkedin_profile"),
		GitHubProfile:   optString(fields, "github_profile"),
	}
	u, err := uh.users.UpdateProfile(c.Request.Context(), nil, userID, patch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondFlowError(c, apierr.NotFound("user_not_found", err))
			return
		}
		response.RespondFlowError(c, err)
		return
	}
	uh.sessions.Forget(userID)
	if uh.bus != nil {
		msg := realtime.SSEMessage{
			Channel: realtime.UserChannel(userID),
			Event:   realtime.SSEEventProfileUpdated,
			Data:    u,
		}
		if err := uh.bus.Publish(c.Request.Context(), msg); err != nil {
			uh.log.Warn("profile update publish failed", "user_id", userID.String(), "error", err.Error())
		}
	}
	response.RespondOK(c, gin.H{"me": u})
}

func optString(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		s = strings.TrimSpace(s)
		return &s
	}
	return nil
}
