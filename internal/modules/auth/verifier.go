package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/careerprep-backend/internal/platform/envutil"
)

// Identity is the verified subject of an identity token.
type Identity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// Verifier checks identity tokens issued by the external identity provider.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

type VerifierConfig struct {
	Issuer   string
	Audience string
	// JWKSURL skips discovery when set.
	JWKSURL  string
	CacheTTL time.Duration
	// MinRefresh bounds how often an unknown kid may refetch the key set.
	MinRefresh time.Duration
}

func VerifierConfigFromEnv() VerifierConfig {
	project := envutil.String("AUTH_PROJECT_ID", "")
	issuer := ""
	if project != "" {
		issuer = "https://securetoken.google.com/" + project
	}
	return VerifierConfig{
		Issuer:     envutil.String("AUTH_ISSUER", issuer),
		Audience:   envutil.String("AUTH_AUDIENCE", project),
		JWKSURL:    envutil.String("AUTH_JWKS_URL", ""),
		CacheTTL:   envutil.Duration("AUTH_JWKS_TTL", 6*time.Hour),
		MinRefresh: envutil.Duration("AUTH_JWKS_MIN_REFRESH", time.Minute),
	}
}

type oidcVerifier struct {
	httpClient *http.Client
	issuer     string
	audience   string
	jwks       *jwksCache

	discoveryOnce sync.Once
	discoveryErr  error
	jwksFixed     bool
}

func NewVerifier(httpClient *http.Client, cfg VerifierConfig) (Verifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("AUTH_ISSUER or AUTH_PROJECT_ID is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("AUTH_AUDIENCE or AUTH_PROJECT_ID is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	if cfg.MinRefresh <= 0 {
		cfg.MinRefresh = time.Minute
	}
	v := &oidcVerifier{
		httpClient: httpClient,
		issuer:     strings.TrimRight(cfg.Issuer, "/"),
		audience:   cfg.Audience,
		jwks:       newJWKSCache(httpClient, cfg.CacheTTL, cfg.MinRefresh),
	}
	if cfg.JWKSURL != "" {
		v.jwks.setURL(cfg.JWKSURL)
		v.jwksFixed = true
	}
	return v, nil
}

type oidcDiscovery struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

func (v *oidcVerifier) ensureDiscovery(ctx context.Context) error {
	if v.jwksFixed {
		return nil
	}
	v.discoveryOnce.Do(func() {
		url := v.issuer + "/.well-known/openid-configuration"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			v.discoveryErr = err
			return
		}
		res, err := v.httpClient.Do(req)
		if err != nil {
			v.discoveryErr = err
			return
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			v.discoveryErr = fmt.Errorf("discovery request failed: %s", res.Status)
			return
		}
		var d oidcDiscovery
		if err := json.NewDecoder(res.Body).Decode(&d); err != nil {
			v.discoveryErr = err
			return
		}
		if strings.TrimSpace(d.JWKSURI) == "" {
			v.discoveryErr = errors.New("discovery missing jwks_uri")
			return
		}
		v.jwks.setURL(d.JWKSURI)
	})
	return v.discoveryErr
}

type idClaims struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	jwt.RegisteredClaims
}

func (v *oidcVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, errors.New("id token is empty")
	}
	if err := v.ensureDiscovery(ctx); err != nil {
		return nil, fmt.Errorf("oidc discovery error: %w", err)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
	)
	var claims idClaims
	tok, err := parser.ParseWithClaims(idToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("missing kid")
		}
		return v.jwks.getKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}
	if tok == nil || !tok.Valid {
		return nil, errors.New("invalid id token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("missing sub")
	}
	id := &Identity{
		Subject:   claims.Subject,
		Email:     strings.TrimSpace(claims.Email),
		FirstName: strings.TrimSpace(claims.GivenName),
		LastName:  strings.TrimSpace(claims.FamilyName),
	}
	if id.FirstName == "" && id.LastName == "" && claims.Name != "" {
		first, last, _ := strings.Cut(strings.TrimSpace(claims.Name), " ")
		id.FirstName, id.LastName = first, strings.TrimSpace(last)
	}
	return id, nil
}

// jwksCache holds RSA signing keys by kid. An unknown kid refreshes the set
// at most once per minRefresh, and concurrent refreshes share one fetch.
type jwksCache struct {
	httpClient *http.Client
	group      singleflight.Group

	mu          sync.RWMutex
	url         string
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	attemptedAt time.Time
	ttl         time.Duration
	minRefresh  time.Duration
}

func newJWKSCache(httpClient *http.Client, ttl, minRefresh time.Duration) *jwksCache {
	return &jwksCache{
		httpClient: httpClient,
		keys:       map[string]*rsa.PublicKey{},
		ttl:        ttl,
		minRefresh: minRefresh,
	}
}

func (j *jwksCache) setURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.url = url
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (j *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	key := j.keys[kid]
	stale := time.Since(j.fetchedAt) > j.ttl
	throttled := len(j.keys) > 0 && time.Since(j.attemptedAt) < j.minRefresh
	url := j.url
	j.mu.RUnlock()

	if key != nil && !stale {
		return key, nil
	}
	if key == nil && !stale && throttled {
		return nil, fmt.Errorf("kid not found in jwks: %s", kid)
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("jwks url not set")
	}
	_, err, _ := j.group.Do(url, func() (any, error) {
		return nil, j.refresh(ctx, url)
	})
	if err != nil {
		if key != nil {
			return key, nil
		}
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	key = j.keys[kid]
	if key == nil {
		return nil, fmt.Errorf("kid not found in jwks: %s", kid)
	}
	return key, nil
}

func (j *jwksCache) refresh(ctx context.Context, url string) error {
	j.mu.Lock()
	j.attemptedAt = time.Now()
	j.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := j.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("jwks fetch failed: %s", res.Status)
	}
	var set jwkSet
	if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
		return err
	}
	next := map[string]*rsa.PublicKey{}
	for _, k := range set.Keys {
		if k.Kty != "RSA" || strings.TrimSpace(k.Kid) == "" {
			continue
		}
		if pub, err := rsaFromModExp(k.N, k.E); err == nil {
			next[k.Kid] = pub
		}
	}
	if len(next) == 0 {
		return errors.New("jwks contained no usable keys")
	}
	j.mu.Lock()
	j.keys = next
	j.fetchedAt = time.Now()
	j.mu.Unlock()
	return nil
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
