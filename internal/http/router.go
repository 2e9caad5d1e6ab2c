package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/careerprep-backend/internal/http/handlers"
	httpMW "github.com/yungbote/careerprep-backend/internal/http/middleware"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	MaxBodyBytes   int64

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	UserHandler     *httpH.UserHandler
	FlowHandler     *httpH.FlowHandler
	RecordHandler   *httpH.RecordHandler
	CourseHandler   *httpH.CourseHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "careerprep-api"
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.BodyLimit(cfg.MaxBodyBytes))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/session", cfg.AuthHandler.CreateSession)
		}
		if cfg.FlowHandler != nil {
			api.GET("/flows", cfg.FlowHandler.ListFlows)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.DELETE("/auth/session", cfg.AuthHandler.DeleteSession)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/me", cfg.UserHandler.UpdateMe)
		}

		// Flows
		if cfg.FlowHandler != nil {
			protected.POST("/flows/resume", cfg.FlowHandler.GenerateResumes)
			protected.POST("/flows/interview", cfg.FlowHandler.SimulateInterview)
			protected.POST("/flows/quiz", cfg.FlowHandler.GenerateQuiz)
			protected.POST("/flows/projects", cfg.FlowHandler.SuggestProjects)
			protected.POST("/flows/jobs", cfg.FlowHandler.SuggestJobs)
			protected.POST("/flows/networking", cfg.FlowHandler.NetworkingSuggestions)
			protected.POST("/flows/notes/summary", cfg.FlowHandler.SummarizeNote)
			protected.POST("/flows/notes/transcribe", cfg.FlowHandler.TranscribeNote)
			protected.POST("/flows/tts", cfg.FlowHandler.SpeakText)
			protected.POST("/flows/coding-assistant", cfg.FlowHandler.CodingAssistant)
			protected.POST("/flows/:name/run", cfg.FlowHandler.RunFlow)
			protected.POST("/quiz-attempts", cfg.FlowHandler.SubmitQuizAttempt)
		}

		// Records
		if cfg.RecordHandler != nil {
			protected.GET("/records/:collection", cfg.RecordHandler.List)
		}

		// Courses
		if cfg.CourseHandler != nil {
			protected.GET("/courses", cfg.CourseHandler.List)
		}
	}

	return r
}
