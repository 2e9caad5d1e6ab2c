package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/modules/auth"
	"github.com/yungbote/careerprep-backend/internal/modules/career"
	"github.com/yungbote/careerprep-backend/internal/modules/catalog"
	"github.com/yungbote/careerprep-backend/internal/modules/persist"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type Services struct {
	Flows    *career.Flows
	Registry *flow.Registry
	Career   career.Usecases
	Saver    *persist.Saver
	Sessions auth.SessionService
	Catalog  *catalog.Service
}

// NewFlows compiles the career flows with the configured timeout.
func NewFlows(cfg Config) (*career.Flows, *flow.Registry, error) {
	flows, reg, err := career.NewRegistry(flow.WithTimeout(cfg.FlowTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("compile flows: %w", err)
	}
	return flows, reg, nil
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	flows, reg, err := NewFlows(cfg)
	if err != nil {
		return Services{}, err
	}

	saver := persist.NewSaver(log, reposet.Record, clients.SSEBus, cfg.Persist)

	verifier, err := auth.NewVerifier(&http.Client{Timeout: 10 * time.Second}, cfg.Verifier)
	if err != nil {
		return Services{}, fmt.Errorf("init identity verifier: %w", err)
	}
	sessions, err := auth.NewSessionService(log, verifier, reposet.User, cfg.Session)
	if err != nil {
		return Services{}, fmt.Errorf("init session service: %w", err)
	}

	courses, err := catalog.NewService(log, reposet.Course)
	if err != nil {
		return Services{}, fmt.Errorf("init course catalog: %w", err)
	}

	usecases := career.New(career.UsecasesDeps{
		Log:                log,
		Model:              clients.Model,
		Flows:              flows,
		Users:              reposet.User,
		Saver:              saver,
		Speech:             clients.Speech,
		Voice:              clients.Voice,
		ResumeTextMaxBytes: cfg.ResumeTextMaxBytes,
	})

	return Services{
		Flows:    flows,
		Registry: reg,
		Career:   usecases,
		Saver:    saver,
		Sessions: sessions,
		Catalog:  courses,
	}, nil
}
