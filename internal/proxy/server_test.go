package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/prasenjit/go-mockapi/internal/engine"
	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/random"
	"github.com/prasenjit/go-mockapi/internal/stats"
	"github.com/prasenjit/go-mockapi/internal/storage"
	"github.com/prasenjit/go-mockapi/internal/tracing"
)

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type fixture struct {
	server  *Server
	store   *storage.MemoryStorage
	stats   *stats.Collector
	tracing *tracing.Service
	sleeps  *recordedSleep
}

func setup(t *testing.T, endpoints ...*models.Endpoint) *fixture {
	t.Helper()

	store := storage.NewMemoryStorage()
	require.NoError(t, store.CreateCollection(&models.Collection{ID: "c1", Name: "Test", Endpoints: endpoints}))

	f := &fixture{
		store:   store,
		stats:   stats.NewCollector(),
		tracing: tracing.NewService(100),
		sleeps:  &recordedSleep{},
	}
	eng := engine.New(random.New(7), engine.WithLogger(zaptest.NewLogger(t)))
	f.server = NewServer(store, eng, f.stats, f.tracing,
		WithLogger(zaptest.NewLogger(t)),
		WithSleep(f.sleeps.sleep),
	)
	return f
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func signupEndpoint() *models.Endpoint {
	return &models.Endpoint{
		ID:           "signup",
		Name:         "Sign up",
		Method:       "POST",
		Path:         "/users",
		StatusCode:   201,
		ResponseBody: `{"id":"<<uuid>>","email":"<<email>>"}`,
		Validation: models.ValidationConfig{
			Enabled: true,
			Rules: []models.ValidationRule{
				{Field: "email", Kind: models.RuleRequired, Message: "Email is required", Enabled: true},
				{Field: "email", Kind: models.RuleEmail, Message: "Invalid email", Enabled: true},
			},
		},
	}
}

func TestBuildPathPattern(t *testing.T) {
	tests := []struct {
		name           string
		template       string
		path           string
		shouldMatch    bool
		expectedParams []string
	}{
		{"simple path", "/users", "/users", true, nil},
		{"trailing slash", "/users", "/users/", true, nil},
		{"brace param", "/users/{id}", "/users/123", true, []string{"id"}},
		{"colon param", "/users/:id", "/users/abc", true, []string{"id"}},
		{"mixed params", "/users/{userId}/posts/:postId", "/users/1/posts/2", true, []string{"userId", "postId"}},
		{"param does not span segments", "/users/{id}", "/users/1/posts", false, []string{"id"}},
		{"literal dot", "/files/report.json", "/files/reportxjson", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, keys := buildPathPattern(tt.template)
			require.NotNil(t, pattern)
			assert.Equal(t, tt.shouldMatch, pattern.MatchString(tt.path))
			assert.Equal(t, tt.expectedParams, keys)
		})
	}
}

func TestSortRoutes(t *testing.T) {
	routes := []*route{
		{endpoint: &models.Endpoint{Path: "/users/{id}"}, paramKeys: []string{"id"}},
		{endpoint: &models.Endpoint{Path: "/users"}},
		{endpoint: &models.Endpoint{Path: "/users/{id}/posts/{postId}"}, paramKeys: []string{"id", "postId"}},
		{endpoint: &models.Endpoint{Path: "/users/me"}},
	}

	sortRoutes(routes)

	got := make([]string, len(routes))
	for i, r := range routes {
		got[i] = r.endpoint.Path
	}
	assert.Equal(t, []string{"/users/me", "/users", "/users/{id}", "/users/{id}/posts/{postId}"}, got)
}

func TestMatchRoute(t *testing.T) {
	f := setup(t,
		&models.Endpoint{ID: "list", Method: "GET", Path: "/users"},
		&models.Endpoint{ID: "me", Method: "GET", Path: "/users/me"},
		&models.Endpoint{ID: "get", Method: "GET", Path: "/users/{id}"},
		&models.Endpoint{ID: "create", Method: "POST", Path: "/users"},
	)

	tests := []struct {
		name       string
		method     string
		path       string
		expectedID string
		params     map[string]string
	}{
		{"literal", "GET", "/users", "list", map[string]string{}},
		{"literal wins over param", "GET", "/users/me", "me", map[string]string{}},
		{"param", "GET", "/users/42", "get", map[string]string{"id": "42"}},
		{"method", "post", "/users", "create", map[string]string{}},
		{"wrong method", "DELETE", "/users", "", nil},
		{"wrong path", "GET", "/posts", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, params := f.server.MatchRoute(tt.method, tt.path)
			if tt.expectedID == "" {
				assert.Nil(t, ep)
				return
			}
			require.NotNil(t, ep)
			assert.Equal(t, tt.expectedID, ep.ID)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestReloadRoutes(t *testing.T) {
	f := setup(t)

	ep, _ := f.server.MatchRoute("GET", "/health")
	assert.Nil(t, ep)

	require.NoError(t, f.store.CreateEndpoint(&models.Endpoint{ID: "health", CollectionID: "c1", Method: "GET", Path: "/health"}))
	require.NoError(t, f.server.ReloadRoutes())

	ep, _ = f.server.MatchRoute("GET", "/health")
	require.NotNil(t, ep)
	assert.Equal(t, "health", ep.ID)

	routes := f.server.GetRegisteredRoutes()
	require.Len(t, routes, 1)
	assert.Equal(t, RouteInfo{Method: "GET", Path: "/health", EndpointID: "health", Collection: "c1"}, routes[0])
}

func TestReloadRoutes_CompilesPolicies(t *testing.T) {
	broken := signupEndpoint()
	broken.ID = "broken"
	broken.Path = "/broken"
	broken.Validation.Rules = append(broken.Validation.Rules, models.ValidationRule{
		Field: "code", Kind: models.RulePattern, Value: models.StringValue("("), Message: "bad code", Enabled: true,
	})
	plain := &models.Endpoint{ID: "list", Method: "GET", Path: "/users"}
	f := setup(t, signupEndpoint(), broken, plain)

	byID := make(map[string]*route)
	for _, routes := range f.server.routes {
		for _, r := range routes {
			byID[r.endpoint.ID] = r
		}
	}

	require.NotNil(t, byID["signup"].policy)
	assert.NoError(t, byID["signup"].policyErr)
	assert.Len(t, byID["signup"].policy.Rules, 2)

	assert.Nil(t, byID["broken"].policy)
	assert.True(t, engine.IsConfigError(byID["broken"].policyErr))

	assert.Nil(t, byID["list"].policy)
	assert.NoError(t, byID["list"].policyErr)
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	store := storage.NewMemoryStorage()
	require.NoError(t, store.CreateCollection(&models.Collection{ID: "c1", Name: "Test", Endpoints: []*models.Endpoint{signupEndpoint()}}))
	eng := engine.New(random.New(7))
	server := NewServer(store, eng, stats.NewCollector(), tracing.NewService(10),
		WithLogger(zaptest.NewLogger(t)),
		WithMaxBodyBytes(24),
	)

	w := do(t, server, "POST", "/users", `{"email":"someone@example.com"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "BODY_TOO_LARGE")

	w = do(t, server, "POST", "/users", `{"email":"a@b.co"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestServeHTTP_NotFound(t *testing.T) {
	f := setup(t)

	w := do(t, f.server, "GET", "/nonexistent", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestServeHTTP_Success(t *testing.T) {
	f := setup(t, signupEndpoint())

	w := do(t, f.server, "POST", "/users", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Len(t, doc["id"], 36)
	assert.Contains(t, doc["email"], "@")

	stat := f.stats.GetEndpointStats("signup")
	require.NotNil(t, stat)
	assert.Equal(t, int64(1), stat.TotalRequests)

	traces := f.tracing.GetTraces(nil)
	require.Len(t, traces, 1)
	assert.Equal(t, models.OutcomePassed, traces[0].Outcome)
	assert.Equal(t, `{"email":"a@b.com"}`, traces[0].Request.Body)
}

func TestServeHTTP_ValidationFailure(t *testing.T) {
	f := setup(t, signupEndpoint())

	w := do(t, f.server, "POST", "/users", `{"name":"x"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Validation failed","details":["Email is required"],"code":"VALIDATION_ERROR"}`, w.Body.String())

	stat := f.stats.GetEndpointStats("signup")
	require.NotNil(t, stat)
	assert.Equal(t, int64(1), stat.ValidationFailures)
	assert.Equal(t, int64(1), stat.TotalErrors)

	traces := f.tracing.GetTraces(&models.TraceFilter{Outcome: models.OutcomeFailed})
	require.Len(t, traces, 1)
	assert.Equal(t, []string{"Email is required"}, traces[0].Errors)
}

func TestServeHTTP_InvalidJSONBody(t *testing.T) {
	f := setup(t, signupEndpoint())

	for _, body := range []string{`not json`, `[1,2]`, `"text"`} {
		w := do(t, f.server, "POST", "/users", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Invalid JSON body","code":"INVALID_JSON"}`, w.Body.String(), body)
	}
}

func TestServeHTTP_GetSkipsValidation(t *testing.T) {
	ep := signupEndpoint()
	ep.Method = "GET"
	f := setup(t, ep)

	w := do(t, f.server, "GET", "/users", "")

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestServeHTTP_InjectedScenario(t *testing.T) {
	ep := signupEndpoint()
	ep.Validation.ErrorScenarios = []models.ErrorScenario{{
		Name:        "Server Error",
		StatusCode:  500,
		Response:    `{"error":"Internal server error"}`,
		Enabled:     true,
		Probability: 100,
	}}
	f := setup(t, ep)

	w := do(t, f.server, "POST", "/users", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())

	stat := f.stats.GetEndpointStats("signup")
	require.NotNil(t, stat)
	assert.Equal(t, int64(1), stat.InjectedScenarios)

	traces := f.tracing.GetTraces(nil)
	require.Len(t, traces, 1)
	assert.Equal(t, "Server Error", traces[0].Scenario)
}

func TestServeHTTP_ConfigurationError(t *testing.T) {
	ep := signupEndpoint()
	ep.Validation.Rules = append(ep.Validation.Rules, models.ValidationRule{
		Field: "code", Kind: models.RulePattern, Value: models.StringValue("("), Message: "bad code", Enabled: true,
	})
	f := setup(t, ep)

	w := do(t, f.server, "POST", "/users", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "EVALUATION_ERROR")

	traces := f.tracing.GetTraces(nil)
	require.Len(t, traces, 1)
	assert.Equal(t, models.OutcomeError, traces[0].Outcome)
}

func TestServeHTTP_Delay(t *testing.T) {
	ep := &models.Endpoint{
		ID:     "slow",
		Method: "GET",
		Path:   "/slow",
		Delay:  models.DelayConfig{Enabled: true, Min: 250, Max: 250},
	}
	f := setup(t, ep)

	w := do(t, f.server, "GET", "/slow", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, f.sleeps.delays)

	traces := f.tracing.GetTraces(nil)
	require.Len(t, traces, 1)
	assert.Equal(t, 250, traces[0].DelayMs)
}

func TestServeHTTP_DelayCancelled(t *testing.T) {
	ep := &models.Endpoint{
		ID:     "slow",
		Method: "GET",
		Path:   "/slow",
		Delay:  models.DelayConfig{Enabled: true, Min: 100, Max: 100},
	}
	f := setup(t, ep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/slow", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)

	assert.Empty(t, w.Body.String())
	assert.Nil(t, f.stats.GetEndpointStats("slow"))
}

func TestServeHTTP_Headers(t *testing.T) {
	ep := &models.Endpoint{
		ID:           "text",
		Method:       "GET",
		Path:         "/text",
		ResponseBody: "hello <<firstname>>",
		Headers:      map[string]string{"X-Request-Id": "<<uuid>>"},
	}
	f := setup(t, ep)

	w := do(t, f.server, "GET", "/text", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get("X-Request-Id"), 36)
	assert.NotEqual(t, "application/json", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "hello "))
	assert.NotContains(t, w.Body.String(), "<<")
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
