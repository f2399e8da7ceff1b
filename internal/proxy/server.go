package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prasenjit/go-mockapi/internal/engine"
	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/stats"
	"github.com/prasenjit/go-mockapi/internal/storage"
	"github.com/prasenjit/go-mockapi/internal/tracing"
	"github.com/prasenjit/go-mockapi/internal/validation"
)

// DefaultMaxBodyBytes bounds how much of a request body is read
const DefaultMaxBodyBytes = 1 << 20

// Server serves mock endpoints from the configuration store
type Server struct {
	store          storage.Storage
	engine         *engine.Engine
	statsCollector *stats.Collector
	tracingService *tracing.Service
	logger         *zap.Logger
	maxBodyBytes   int64
	sleep          func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	routes map[string][]*route // method -> routes
}

// route is a compiled endpoint path and validation policy. policyErr holds
// the configuration error of an endpoint whose policy does not compile.
type route struct {
	endpoint  *models.Endpoint
	pattern   *regexp.Regexp
	paramKeys []string
	policy    *validation.Policy
	policyErr error
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes bounds the request body size
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithSleep replaces the delay implementation
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Server) {
		s.sleep = fn
	}
}

// NewServer creates a mock server and loads its routes
func NewServer(store storage.Storage, eng *engine.Engine, statsCollector *stats.Collector, tracingService *tracing.Service, opts ...Option) *Server {
	s := &Server{
		store:          store,
		engine:         eng,
		statsCollector: statsCollector,
		tracingService: tracingService,
		logger:         zap.NewNop(),
		maxBodyBytes:   DefaultMaxBodyBytes,
		sleep:          sleepContext,
		routes:         make(map[string][]*route),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ReloadRoutes(); err != nil {
		s.logger.Error("failed to load routes", zap.Error(err))
	}

	return s
}

// ReloadRoutes rebuilds the route table from the store
func (s *Server) ReloadRoutes() error {
	endpoints, err := s.store.GetAllEndpoints()
	if err != nil {
		return err
	}

	routes := make(map[string][]*route)
	for _, ep := range endpoints {
		pattern, keys := buildPathPattern(ep.Path)
		if pattern == nil {
			s.logger.Warn("skipping endpoint with invalid path", zap.String("endpoint", ep.ID), zap.String("path", ep.Path))
			continue
		}
		rt := &route{endpoint: ep, pattern: pattern, paramKeys: keys}
		if ep.Validation.Enabled {
			rt.policy, rt.policyErr = validation.Compile(ep.Validation)
			if rt.policyErr != nil {
				s.logger.Error("endpoint configuration error", zap.String("endpoint", ep.ID), zap.Error(rt.policyErr))
			}
		}
		method := strings.ToUpper(ep.Method)
		routes[method] = append(routes[method], rt)
	}

	for method := range routes {
		sortRoutes(routes[method])
	}

	s.mu.Lock()
	s.routes = routes
	s.mu.Unlock()

	s.logger.Debug("routes reloaded", zap.Int("endpoints", len(endpoints)))
	return nil
}

var paramPattern = regexp.MustCompile(`\\\{([^}/]+)\\\}|:([A-Za-z_][A-Za-z0-9_]*)`)

// buildPathPattern converts a path template to an anchored regex. Both
// {name} and :name segments are parameters.
func buildPathPattern(pathTemplate string) (*regexp.Regexp, []string) {
	var paramKeys []string

	escaped := regexp.QuoteMeta(pathTemplate)
	result := paramPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		sub := paramPattern.FindStringSubmatch(match)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		paramKeys = append(paramKeys, name)
		return `([^/]+)`
	})

	pattern, err := regexp.Compile("^" + result + "/?$")
	if err != nil {
		return nil, nil
	}
	return pattern, paramKeys
}

// sortRoutes puts literal routes before parameterised ones
func sortRoutes(routes []*route) {
	sort.SliceStable(routes, func(i, j int) bool {
		iParams := len(routes[i].paramKeys)
		jParams := len(routes[j].paramKeys)
		if iParams != jParams {
			return iParams < jParams
		}
		return len(routes[i].endpoint.Path) > len(routes[j].endpoint.Path)
	})
}

// ServeHTTP synthesizes the response of the matching endpoint
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	s.mu.RLock()
	matched, _ := s.matchRoute(r.Method, r.URL.Path)
	s.mu.RUnlock()

	if matched == nil {
		writeJSON(w, http.StatusNotFound, engine.ErrorBody{
			Error: "No mock endpoint matches " + r.Method + " " + r.URL.Path,
			Code:  "NOT_FOUND",
		})
		return
	}
	ep := matched.endpoint

	var requestBody []byte
	if r.Body != nil {
		var err error
		requestBody, err = io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, engine.ErrorBody{
					Error: "Request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
					Code:  "BODY_TOO_LARGE",
				})
			} else {
				writeJSON(w, http.StatusBadRequest, engine.ErrorBody{
					Error: "Failed to read request body",
					Code:  "INVALID_BODY",
				})
			}
			s.logger.Debug("request body rejected", zap.String("endpoint", ep.ID), zap.Error(err))
			return
		}
	}

	var resp *models.Response
	var err error
	if matched.policyErr != nil && models.IsMutating(r.Method) {
		err = matched.policyErr
	} else {
		resp, err = s.engine.RespondWith(ep, matched.policy, r.Method, requestBody)
	}
	if err != nil {
		if engine.IsConfigError(err) {
			s.logger.Error("endpoint configuration error", zap.String("endpoint", ep.ID), zap.Error(err))
		} else {
			s.logger.Debug("request rejected", zap.String("endpoint", ep.ID), zap.Error(err))
		}
		resp = engine.ErrorResponse(err)
	}

	if resp.DelayMs > 0 {
		if err := s.sleep(r.Context(), time.Duration(resp.DelayMs)*time.Millisecond); err != nil {
			s.logger.Debug("client went away during delay", zap.String("endpoint", ep.ID), zap.Error(err))
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)

	duration := time.Since(startTime)

	s.logger.Info("mock request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("endpoint", ep.ID),
		zap.Int("status", resp.StatusCode),
		zap.String("outcome", string(resp.Outcome)),
		zap.Int("delayMs", resp.DelayMs),
		zap.Duration("duration", duration),
	)

	s.statsCollector.Record(stats.Sample{
		EndpointID:   ep.ID,
		CollectionID: ep.CollectionID,
		Method:       ep.Method,
		Path:         ep.Path,
		StatusCode:   resp.StatusCode,
		Outcome:      resp.Outcome,
		Duration:     duration,
		DelayMs:      resp.DelayMs,
		Error:        strings.Join(resp.Errors, "; "),
	})

	s.tracingService.RecordTrace(&models.Trace{
		EndpointID:   ep.ID,
		EndpointName: ep.Name,
		CollectionID: ep.CollectionID,
		EndpointPath: ep.Path,
		Timestamp:    startTime,
		Duration:     duration.Nanoseconds(),
		DelayMs:      resp.DelayMs,
		Outcome:      resp.Outcome,
		Scenario:     resp.Scenario,
		Errors:       resp.Errors,
		Request: models.TraceRequest{
			Method:  r.Method,
			URL:     r.URL.String(),
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Headers: r.Header,
			Body:    string(requestBody),
		},
		Response: models.TraceResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       string(resp.Body),
		},
	})
}

// matchRoute finds the route for method and path; the lock must be held
func (s *Server) matchRoute(method, requestPath string) (*route, map[string]string) {
	for _, r := range s.routes[strings.ToUpper(method)] {
		matches := r.pattern.FindStringSubmatch(requestPath)
		if matches == nil {
			continue
		}

		pathParams := make(map[string]string, len(r.paramKeys))
		for i, key := range r.paramKeys {
			if i+1 < len(matches) {
				pathParams[key] = matches[i+1]
			}
		}

		return r, pathParams
	}

	return nil, nil
}

// MatchRoute returns the endpoint serving method and path, with its path parameters
func (s *Server) MatchRoute(method, path string) (*models.Endpoint, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, pathParams := s.matchRoute(method, path)
	if matched == nil {
		return nil, nil
	}
	return matched.endpoint, pathParams
}

// RouteInfo describes one served route
type RouteInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	EndpointID string `json:"endpointId"`
	Collection string `json:"collectionId,omitempty"`
}

// GetRegisteredRoutes lists the served routes in match order per method
func (s *Server) GetRegisteredRoutes() []RouteInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]string, 0, len(s.routes))
	for method := range s.routes {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	result := make([]RouteInfo, 0)
	for _, method := range methods {
		for _, r := range s.routes[method] {
			result = append(result, RouteInfo{
				Method:     method,
				Path:       r.endpoint.Path,
				EndpointID: r.endpoint.ID,
				Collection: r.endpoint.CollectionID,
			})
		}
	}
	return result
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
