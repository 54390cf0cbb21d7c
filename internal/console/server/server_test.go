package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/console/handler"
	"github.com/xela07ax/nosigns-guard/internal/console/service"
	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/engine"
	"github.com/xela07ax/nosigns-guard/internal/infra/auth"
	"github.com/xela07ax/nosigns-guard/internal/lang"
	"github.com/xela07ax/nosigns-guard/internal/permission"
	"github.com/xela07ax/nosigns-guard/internal/policy"
	"github.com/xela07ax/nosigns-guard/internal/rules"
)

type memStorage struct {
	mu       sync.Mutex
	doc      *domain.RuleConfig
	readErr  error
	writeErr error
}

func (m *memStorage) Read(context.Context) (*domain.RuleConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.doc == nil {
		return nil, nil
	}
	c := m.doc.Clone()
	return &c, nil
}

func (m *memStorage) Write(_ context.Context, cfg domain.RuleConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	c := cfg.Clone()
	m.doc = &c
	return nil
}

const player = "76561198000000001"

func newTestServer(t *testing.T, validator auth.TokenValidator) (*Server, *rules.Store, *memStorage) {
	return newTestServerWithChecks(t, validator, nil)
}

func newTestServerWithChecks(t *testing.T, validator auth.TokenValidator, checks map[string]handler.PingFunc) (*Server, *rules.Store, *memStorage) {
	t.Helper()
	logger := zap.NewNop()

	storage := &memStorage{}
	store := rules.NewStore(storage, logger)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	pdp := policy.NewMemoEnforcer(store, logger)
	guard := engine.NewGuard(pdp, permission.NewStatic(nil), nil, nil, engine.NewMetrics(nil), logger)
	checkH := engine.NewCheckHandler(guard, lang.NewCatalog(), "en", logger)

	srv := NewServer(logger, validator, handler.NewHealthHandler(checks), checkH,
		handler.NewRulesHandler(service.NewRuleService(store, nil, nil, logger), logger),
		handler.NewPermissionHandler(service.NewPermissionService(nil, logger)),
		handler.NewDashboardHandler(service.NewStatsService(store, nil)),
	)
	return srv, store, storage
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlacementCheckRoute(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/v1/placements/check",
		`{"actor_id":"`+player+`","active_item":"sign.wooden.small","target":"furnace"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["allowed"])
	assert.Equal(t, "CannotPlaceSign", resp["message_key"])
	assert.Equal(t, "You cannot place signs on this entity.", resp["message"])

	rec = do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/ready", "", "").Code)

	srv, _, _ = newTestServerWithChecks(t, nil, map[string]handler.PingFunc{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	})
	rec := do(t, srv, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"redis":"ok","postgres":"connection refused"}`, rec.Body.String())
}

func TestRulesAdminChangesDecision(t *testing.T) {
	srv, store, storage := newTestServer(t, nil)
	check := `{"actor_id":"` + player + `","active_item":"sign.wooden.small","target":"fridge.deployed"}`

	rec := do(t, srv, http.MethodPost, "/v1/placements/check", check, "")
	assert.Contains(t, rec.Body.String(), `"allowed":true`)

	rec = do(t, srv, http.MethodPost, "/v1/rules/targets", `{"target":"fridge.deployed"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, store.Snapshot().DeployableShortPrefabNames, "fridge.deployed")
	assert.Contains(t, storage.doc.DeployableShortPrefabNames, "fridge.deployed")

	rec = do(t, srv, http.MethodPost, "/v1/placements/check", check, "")
	assert.Contains(t, rec.Body.String(), `"allowed":false`)

	rec = do(t, srv, http.MethodDelete, "/v1/rules/targets/fridge.deployed", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, store.Snapshot().DeployableShortPrefabNames, "fridge.deployed")

	rec = do(t, srv, http.MethodPut, "/v1/rules/targets", `{"targets":[]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.Snapshot().DeployableShortPrefabNames)

	rec = do(t, srv, http.MethodGet, "/v1/rules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Version":"1.0.0","Deployable Short Prefab Names":[]}`, rec.Body.String())
}

func TestRulesAdminErrors(t *testing.T) {
	srv, store, storage := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/v1/rules/targets", `{"target":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, "/v1/rules/targets", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	storage.writeErr = errors.New("disk full")
	rec = do(t, srv, http.MethodPost, "/v1/rules/targets", `{"target":"fridge.deployed"}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, store.Snapshot().DeployableShortPrefabNames, "fridge.deployed")
}

func TestRulesReloadReadFailure(t *testing.T) {
	srv, store, storage := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPut, "/v1/rules/targets", `{"targets":["furnace","fridge.deployed"]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	storage.readErr = errors.New("connection reset")
	rec = do(t, srv, http.MethodPost, "/v1/rules/reload", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, []string{"furnace", "fridge.deployed"}, store.Snapshot().DeployableShortPrefabNames)
	assert.Equal(t, []string{"furnace", "fridge.deployed"}, storage.doc.DeployableShortPrefabNames)
}

func TestPermissionsReadOnlyWithoutRedis(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/v1/permissions/"+player, "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/permissions", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatsWithoutJournal(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/v1/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats domain.GuardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "1.0.0", stats.Version)
	assert.Equal(t, 7, stats.BlockedTargets)
}

func TestScopesAreEnforced(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv, _, _ := newTestServer(t, auth.NewBaseValidator(&key.PublicKey))

	sign := func(scopes map[string]bool) string {
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
	hostToken := sign(map[string]bool{domain.ScopePlacementCheck: true})
	adminToken := sign(map[string]bool{domain.ScopeRulesAdmin: true})

	check := `{"actor_id":"` + player + `","active_item":"sign.wooden.small","target":"furnace"}`

	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodPost, "/v1/placements/check", check, "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/v1/placements/check", check, hostToken).Code)
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodPost, "/v1/placements/check", check, adminToken).Code)

	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodGet, "/v1/rules", "", hostToken).Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/v1/rules", "", adminToken).Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", "", "").Code)
}
