package app

import (
	"context"

	"gorm.io/gorm"

	httpapi "github.com/yungbote/careerprep-backend/internal/http"
	httpH "github.com/yungbote/careerprep-backend/internal/http/handlers"
	httpMW "github.com/yungbote/careerprep-backend/internal/http/middleware"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
	"github.com/yungbote/careerprep-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Flow     *httpH.FlowHandler
	Record   *httpH.RecordHandler
	Course   *httpH.CourseHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, reposet Repos, clients Clients, services Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	ping := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(ping),
		Auth:     httpH.NewAuthHandler(services.Sessions, cfg.SecureCookie),
		User:     httpH.NewUserHandler(log, reposet.User, services.Sessions, clients.SSEBus),
		Flow:     httpH.NewFlowHandler(services.Career, services.Registry, clients.Model),
		Record:   httpH.NewRecordHandler(reposet.Record),
		Course:   httpH.NewCourseHandler(services.Catalog),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Sessions),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *httpapi.Server {
	return httpapi.NewServer(httpapi.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		UserHandler:     handlers.User,
		FlowHandler:     handlers.Flow,
		RecordHandler:   handlers.Record,
		CourseHandler:   handlers.Course,
		RealtimeHandler: handlers.Realtime,
	})
}
