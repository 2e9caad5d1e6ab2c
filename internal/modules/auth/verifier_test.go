package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idp struct {
	srv       *httptest.Server
	key       *rsa.PrivateKey
	kid       string
	jwksHits  atomic.Int32
	jwksDelay time.Duration
}

func newIDP(t *testing.T) *idp {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := &idp{key: key, kid: "k1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"` + p.srv.URL + `","jwks_uri":"` + p.srv.URL + `/jwks"}`))
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		p.jwksHits.Add(1)
		time.Sleep(p.jwksDelay)
		w.Header().Set("Content-Type", "application/json")
		n := base64.RawURLEncoding.EncodeToString(p.key.N.Bytes())
		e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(p.key.E)).Bytes())
		_, _ = w.Write([]byte(`{"keys":[{"kty":"RSA","kid":"` + p.kid + `","n":"` + n + `","e":"` + e + `"}]}`))
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *idp) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = p.kid
	s, err := tok.SignedString(p.key)
	require.NoError(t, err)
	return s
}

func (p *idp) claims(sub string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   p.srv.URL,
		"aud":   "careerprep",
		"sub":   sub,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": "ada@example.com",
		"name":  "Ada Lovelace",
	}
}

func (p *idp) verifier(t *testing.T) Verifier {
	t.Helper()
	return p.verifierWith(t, 0)
}

func (p *idp) verifierWith(t *testing.T, minRefresh time.Duration) Verifier {
	t.Helper()
	v, err := NewVerifier(p.srv.Client(), VerifierConfig{Issuer: p.srv.URL, Audience: "careerprep", MinRefresh: minRefresh})
	require.NoError(t, err)
	return v
}

func (p *idp) signWithKid(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(p.key)
	require.NoError(t, err)
	return s
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	p := newIDP(t)
	id, err := p.verifier(t).Verify(context.Background(), p.sign(t, p.claims("uid-1")))
	require.NoError(t, err)
	assert.Equal(t, &Identity{Subject: "uid-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}, id)
}

func TestVerifyRejects(t *testing.T) {
	p := newIDP(t)
	v := p.verifier(t)

	cases := map[string]func(jwt.MapClaims){
		"expired":        func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() },
		"missing exp":    func(c jwt.MapClaims) { delete(c, "exp") },
		"wrong issuer":   func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" },
		"wrong audience": func(c jwt.MapClaims) { c["aud"] = "someone-else" },
		"future iat":     func(c jwt.MapClaims) { c["iat"] = time.Now().Add(time.Hour).Unix() },
		"blank subject":  func(c jwt.MapClaims) { c["sub"] = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := p.claims("uid-1")
			mutate(c)
			_, err := v.Verify(context.Background(), p.sign(t, c))
			assert.Error(t, err)
		})
	}

	t.Run("hs256", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, p.claims("uid-1"))
		tok.Header["kid"] = p.kid
		s, err := tok.SignedString([]byte("shared"))
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), s)
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestVerifyRefreshesOnUnknownKid(t *testing.T) {
	p := newIDP(t)
	v := p.verifierWith(t, 10*time.Millisecond)

	_, err := v.Verify(context.Background(), p.sign(t, p.claims("uid-1")))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), p.sign(t, p.claims("uid-1")))
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.jwksHits.Load())

	// Key rotation.
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p.key, p.kid = key, "k2"
	time.Sleep(20 * time.Millisecond)
	_, err = v.Verify(context.Background(), p.sign(t, p.claims("uid-1")))
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.jwksHits.Load())
}

func TestVerifyUnknownKidsDoNotHammerJWKS(t *testing.T) {
	p := newIDP(t)
	v := p.verifier(t)

	_, err := v.Verify(context.Background(), p.sign(t, p.claims("uid-1")))
	require.NoError(t, err)
	require.EqualValues(t, 1, p.jwksHits.Load())

	var wg sync.WaitGroup
	var rejected atomic.Int32
	for i := 0; i < 50; i++ {
		tok := p.signWithKid(t, fmt.Sprintf("forged-%d", i), p.claims("uid-1"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.Verify(context.Background(), tok); err != nil {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, rejected.Load())
	assert.EqualValues(t, 1, p.jwksHits.Load())

	_, err = v.Verify(context.Background(), p.sign(t, p.claims("uid-1")))
	assert.NoError(t, err)
}

func TestVerifyColdStartSharesOneFetch(t *testing.T) {
	p := newIDP(t)
	p.jwksDelay = 100 * time.Millisecond
	v := p.verifier(t)

	tok := p.sign(t, p.claims("uid-1"))
	var wg sync.WaitGroup
	var failed atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.Verify(context.Background(), tok); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.EqualValues(t, 1, p.jwksHits.Load())
}

func TestNewVerifierRequiresIssuerAndAudience(t *testing.T) {
	_, err := NewVerifier(nil, VerifierConfig{Audience: "a"})
	assert.Error(t, err)
	_, err = NewVerifier(nil, VerifierConfig{Issuer: "https://i"})
	assert.Error(t, err)
}

func TestVerifierConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_PROJECT_ID", "careerprep-dev")
	t.Setenv("AUTH_ISSUER", "")
	t.Setenv("AUTH_AUDIENCE", "")
	cfg := VerifierConfigFromEnv()
	assert.Equal(t, "https://securetoken.google.com/careerprep-dev", cfg.Issuer)
	assert.Equal(t, "careerprep-dev", cfg.Audience)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Equal(t, time.Minute, cfg.MinRefresh)
}
