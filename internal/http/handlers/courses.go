package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/careerprep-backend/internal/http/response"
	"github.com/yungbote/careerprep-backend/internal/modules/catalog"
)

type CourseHandler struct {
	catalog *catalog.Service
}

func NewCourseHandler(catalog *catalog.Service) *CourseHandler {
	return &CourseHandler{catalog: catalog}
}

// GET /api/courses
func (ch *CourseHandler) List(c *gin.Context) {
	courses, err := ch.catalog.List(c.Request.Context())
	if err != nil {
		response.RespondFlowError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}
