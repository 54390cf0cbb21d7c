package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/domain"
)

func signToken(t *testing.T, key *rsa.PrivateKey, scopes map[string]bool) string {
	t.Helper()
	claims := &domain.CustomClaims{
		ServerID: "eu-main-1",
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestParseRSAPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	pub, err := ParseRSAPublicKey(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, pub.N)

	_, err = ParseRSAPublicKey(nil)
	assert.Error(t, err)
}

func TestMiddlewareAndScopes(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewBaseValidator(&key.PublicKey)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, found := ClaimsFromContext(r.Context())
		require.True(t, found)
		assert.Equal(t, "eu-main-1", claims.ServerID)
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewMiddleware(v, zap.NewNop())(RequireScope(domain.ScopePlacementCheck)(ok))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong scope", "Bearer " + signToken(t, key, map[string]bool{domain.ScopeRulesAdmin: true}), http.StatusForbidden},
		{"valid", "Bearer " + signToken(t, key, map[string]bool{domain.ScopePlacementCheck: true}), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewBaseValidator(&key.PublicKey)

	sign := func(method jwt.SigningMethod, signKey interface{}, claims *domain.CustomClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(signKey)
		require.NoError(t, err)
		return s
	}
	exp := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	_, err = v.VerifyToken(sign(jwt.SigningMethodRS256, key, &domain.CustomClaims{RegisteredClaims: exp}))
	assert.ErrorIs(t, err, ErrNoServerID)

	_, err = v.VerifyToken(sign(jwt.SigningMethodRS256, key, &domain.CustomClaims{ServerID: "eu-main-1"}))
	assert.Error(t, err, "token without exp")

	_, err = v.VerifyToken(sign(jwt.SigningMethodHS256, []byte("shared"), &domain.CustomClaims{ServerID: "eu-main-1", RegisteredClaims: exp}))
	assert.Error(t, err, "HS256 token")

	claims, err := v.VerifyToken(sign(jwt.SigningMethodRS256, key, &domain.CustomClaims{ServerID: "eu-main-1", RegisteredClaims: exp}))
	require.NoError(t, err)
	assert.Equal(t, "eu-main-1", claims.ServerID)
}
