package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/careerprep-backend/internal/data/repos"
	"github.com/yungbote/careerprep-backend/internal/data/repos/records"
	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/http/response"
	"github.com/yungbote/careerprep-backend/internal/platform/apierr"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
)

type RecordHandler struct {
	records repos.RecordRepo
}

func NewRecordHandler(records repos.RecordRepo) *RecordHandler {
	return &RecordHandler{records: records}
}

// GET /api/records/:collection?limit=N
func (rh *RecordHandler) List(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondFlowError(c, apierr.Unauthorized("unauthorized", nil))
		return
	}
	collection := c.Param("collection")
	if !domain.ValidCollection(collection) {
		response.RespondFlowError(c, &flow.ValidationError{
			Flow:       "records",
			Violations: schema.Violations{{Path: "collection", Reason: "unknown collection " + strconv.Quote(collection)}},
		})
		return
	}
	limit := records.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > records.MaxListLimit {
			response.RespondFlowError(c, &flow.ValidationError{
				Flow:       "records",
				Violations: schema.Violations{{Path: "limit", Reason: "must be an integer between 1 and " + strconv.Itoa(records.MaxListLimit)}},
			})
			return
		}
		limit = n
	}
	recs, err := rh.records.ListRecent(c.Request.Context(), nil, userID, collection, limit)
	if err != nil {
		response.RespondFlowError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"collection": collection, "records": recs})
}
