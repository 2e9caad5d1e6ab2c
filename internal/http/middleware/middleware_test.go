package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/modules/auth"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type fakeSessions struct {
	user *domain.User
}

func (f *fakeSessions) Create(ctx context.Context, idToken string) (*auth.Session, error) {
	return nil, auth.ErrInvalidIdentity
}

func (f *fakeSessions) Resolve(ctx context.Context, token string) (*auth.Session, error) {
	if token != "good" {
		return nil, auth.ErrInvalidSession
	}
	return &auth.Session{Token: token, ID: "sess-1", User: f.user, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, token string) error { return nil }
func (f *fakeSessions) Forget(userID uuid.UUID)                        {}
func (f *fakeSessions) TTL() time.Duration                             { return time.Hour }

func authRouter(user *domain.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	am := NewAuthMiddleware(logger.NewNop(), &fakeSessions{user: user})
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String()+" "+rd.SessionID)
	})
	return r
}

func TestRequireAuthTokenSources(t *testing.T) {
	user := &domain.User{ID: uuid.New()}
	r := authRouter(user)

	cases := map[string]func(*http.Request){
		"cookie": func(req *http.Request) { req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"}) },
		"bearer": func(req *http.Request) { req.Header.Set("Authorization", "Bearer good") },
		"query":  func(req *http.Request) { req.URL.RawQuery = "token=good" },
	}
	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			set(req)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Body.String(); got != user.ID.String()+" sess-1" {
				t.Fatalf("body = %q", got)
			}
		})
	}
}

func TestRequireAuthRejects(t *testing.T) {
	r := authRouter(&domain.User{ID: uuid.New()})
	for name, header := range map[string]string{"missing": "", "invalid": "Bearer bad"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/x", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("small body status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("large body status = %d", rec.Code)
	}
}

func TestTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "req-42" || rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("request id not propagated: body=%q header=%q", rec.Body.String(), rec.Header().Get("X-Request-Id"))
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("missing trace id")
	}
}
