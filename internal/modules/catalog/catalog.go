// Package catalog serves the course catalogue shipped with the binary.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/careerprep-backend/internal/data/repos"
	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

//go:embed courses.yaml
var coursesYAML []byte

type courseFile struct {
	Courses []courseEntry `yaml:"courses"`
}

type courseEntry struct {
	domain.Course `yaml:",inline"`
	Tags          []string `yaml:"tags"`
}

// Parse reads a course catalogue document.
func Parse(data []byte) ([]*domain.Course, error) {
	var f courseFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse courses: %w", err)
	}
	out := make([]*domain.Course, 0, len(f.Courses))
	seen := map[string]bool{}
	for i, e := range f.Courses {
		c := e.Course
		c.Title = strings.TrimSpace(c.Title)
		if c.Title == "" {
			return nil, fmt.Errorf("course %d: title required", i)
		}
		if seen[c.Title] {
			return nil, fmt.Errorf("course %d: duplicate title %q", i, c.Title)
		}
		seen[c.Title] = true
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		raw, err := json.Marshal(tags)
		if err != nil {
			return nil, err
		}
		c.Tags = datatypes.JSON(raw)
		out = append(out, &c)
	}
	return out, nil
}

// Builtin returns the embedded catalogue.
func Builtin() ([]*domain.Course, error) { return Parse(coursesYAML) }

type Service struct {
	log  *logger.Logger
	repo repos.CourseRepo
}

func NewService(log *logger.Logger, repo repos.CourseRepo) (*Service, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if repo == nil {
		return nil, errors.New("course repo required")
	}
	return &Service{log: log.With("service", "CourseCatalog"), repo: repo}, nil
}

// Seed stores every built-in course whose title is missing. Running it again
// adds nothing.
func (s *Service) Seed(ctx context.Context) (int, error) {
	courses, err := Builtin()
	if err != nil {
		return 0, err
	}
	added, err := s.repo.SeedByTitle(ctx, nil, courses)
	if err != nil {
		return 0, fmt.Errorf("seed courses: %w", err)
	}
	if added == 0 {
		s.log.Info("course catalogue up to date", "courses", len(courses))
	}
	return added, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Course, error) {
	return s.repo.List(ctx, nil)
}
