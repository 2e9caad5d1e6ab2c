package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yungbote/careerprep-backend/internal/data/repos"
	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/platform/envutil"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

const (
	DefaultSessionTTL = 120 * time.Hour
	defaultCacheSize  = 4096
)

var (
	ErrInvalidIdentity = errors.New("identity token rejected")
	ErrInvalidSession  = errors.New("invalid session")
	ErrSessionRevoked  = errors.New("session revoked")
)

type SessionConfig struct {
	Secret    string
	TTL       time.Duration
	CacheSize int
}

func SessionConfigFromEnv() SessionConfig {
	return SessionConfig{
		Secret:    envutil.String("SESSION_SECRET", ""),
		TTL:       envutil.Duration("SESSION_TTL", DefaultSessionTTL),
		CacheSize: envutil.Int("SESSION_CACHE_SIZE", defaultCacheSize),
	}
}

// Session is a resolved session token.
type Session struct {
	Token     string
	ID        string
	User      *domain.User
	ExpiresAt time.Time
}

type SessionService interface {
	// Create verifies idToken, upserts its user and issues a session token.
	Create(ctx context.Context, idToken string) (*Session, error)
	Resolve(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
	// Forget drops cached profiles of userID after a profile change.
	Forget(userID uuid.UUID)
	TTL() time.Duration
}

type sessionService struct {
	log      *logger.Logger
	verifier Verifier
	users    repos.UserRepo
	secret   []byte
	ttl      time.Duration
	now      func() time.Time

	// users by session id
	cache *lru.Cache[string, *domain.User]
	// session id to expiry
	revoked *lru.Cache[string, time.Time]
}

func NewSessionService(log *logger.Logger, verifier Verifier, users repos.UserRepo, cfg SessionConfig) (SessionService, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if verifier == nil || users == nil {
		return nil, errors.New("verifier and user repo required")
	}
	if len(cfg.Secret) < 32 {
		return nil, errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *domain.User](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	revoked, err := lru.New[string, time.Time](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &sessionService{
		log:      log.With("service", "SessionService"),
		verifier: verifier,
		users:    users,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		now:      time.Now,
		cache:    cache,
		revoked:  revoked,
	}, nil
}

func (s *sessionService) TTL() time.Duration { return s.ttl }

func (s *sessionService) Create(ctx context.Context, idToken string) (*Session, error) {
	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.log.Warn("identity token rejected", "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	user, created, err := s.users.UpsertBySubject(ctx, nil, &domain.User{
		Subject:   id.Subject,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	now := s.now()
	sess := &Session{ID: uuid.NewString(), User: user, ExpiresAt: now.Add(s.ttl).Truncate(time.Second)}
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	sess.Token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	s.cache.Add(sess.ID, user)
	s.log.Info("session created", "user_id", user.ID.String(), "session_id", sess.ID, "new_user", created)
	return sess, nil
}

func (s *sessionService) parse(token string) (*jwt.RegisteredClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidSession
	}
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	tok, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return s.secret, nil })
	if err != nil || tok == nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidSession)
	}
	return &claims, nil
}

func (s *sessionService) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if exp, ok := s.revoked.Get(claims.ID); ok && s.now().Before(exp) {
		return nil, ErrSessionRevoked
	}
	sess := &Session{Token: token, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}
	if u, ok := s.cache.Get(claims.ID); ok {
		sess.User = u
		return sess, nil
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user not found", ErrInvalidSession)
	}
	s.cache.Add(claims.ID, users[0])
	sess.User = users[0]
	return sess, nil
}

// Revoke blocks token until it expires. Revoking an invalid token is a no-op.
func (s *sessionService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	s.cache.Remove(claims.ID)
	s.revoked.Add(claims.ID, claims.ExpiresAt.Time)
	s.log.Info("session revoked", "session_id", claims.ID)
	return nil
}

func (s *sessionService) Forget(userID uuid.UUID) {
	for _, k := range s.cache.Keys() {
		if u, ok := s.cache.Peek(k); ok && u != nil && u.ID == userID {
			s.cache.Remove(k)
		}
	}
}
