// Package router is a small METHOD:PATH router with request ids, access
// logging and Prometheus instrumentation.
package router

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"campaign-analytics/pkg/logger"
	"campaign-analytics/pkg/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// routeUnmatched labels requests that matched no registered path.
const routeUnmatched = "unmatched"

type HandlerFunc func(http.ResponseWriter, *http.Request)

type Router struct {
	mux       *http.ServeMux
	routes    map[string]HandlerFunc // key = METHOD:PATH
	paths     map[string][]string    // path -> registered methods
	wildcards []string               // wildcard paths in registration order
}

func New() *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string][]string),
	}

	// Catch-all handler; dispatch happens in serve.
	r.mux.HandleFunc("/", r.serve)
	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) serve(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(RequestIDHeader, requestID)
	req = req.WithContext(context.WithValue(req.Context(), logger.RequestIDKey, requestID))

	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	route := r.dispatch(lrw, req)

	duration := time.Since(start)
	metrics.ObserveRequest(route, req.Method, lrw.statusCode, duration)

	if ce := logger.WithContext(req.Context()).Check(statusLevel(lrw.statusCode), "request"); ce != nil {
		ce.Write(
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("route", route),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", duration),
			zap.String("remote_addr", req.RemoteAddr),
		)
	}
}

// dispatch runs the matching handler and returns the route label.
func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) string {
	path := req.URL.Path

	pattern, ok := r.match(path)
	if ok {
		if h, found := r.routes[req.Method+":"+pattern]; found {
			h(w, req)
			return pattern
		}
		// Path exists but method not allowed
		w.Header().Set("Allow", strings.Join(r.paths[pattern], ", "))
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return pattern
	}

	if !strings.HasSuffix(path, "/") {
		if _, exists := r.paths[path+"/"]; exists {
			target := path + "/"
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			http.Redirect(w, req, target, http.StatusMovedPermanently)
			return path + "/"
		}
	}

	writeError(w, http.StatusNotFound, "not found")
	return routeUnmatched
}

// match finds the registered path serving requestPath. Exact paths win over
// wildcards; wildcards are tried in registration order.
func (r *Router) match(requestPath string) (string, bool) {
	if _, ok := r.paths[requestPath]; ok {
		return requestPath, true
	}
	for _, routePath := range r.wildcards {
		if matchWildcardRoute(requestPath, routePath) {
			return routePath, true
		}
	}
	return "", false
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	// Split both paths into segments
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// A trailing wildcard matches any number of remaining segments
	if routeSegments[len(routeSegments)-1] == "*" {
		if len(requestSegments) < len(routeSegments)-1 {
			return false
		}
		for i := 0; i < len(routeSegments)-1; i++ {
			if requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return true
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}
	return true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	key := method + ":" + path
	r.routes[key] = handler

	methods, seen := r.paths[path]
	if !slices.Contains(methods, method) {
		r.paths[path] = append(methods, method)
	}
	if !seen && strings.Contains(path, "*") {
		r.wildcards = append(r.wildcards, path)
	}
}

func (r *Router) GET(path string, handler HandlerFunc) { r.register(http.MethodGet, path, handler) }

// Handle registers an http.Handler for method and path.
func (r *Router) Handle(method, path string, handler http.Handler) {
	r.register(method, path, handler.ServeHTTP)
}

// Paths returns the registered paths and their methods.
func (r *Router) Paths() map[string][]string {
	return r.paths
}

// ServerOptions configures the HTTP server started by Run.
type ServerOptions struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (r *Router) Run(ctx context.Context, addr string, opts ServerOptions) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger.Info("shutting down server", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func statusLevel(code int) zapcore.Level {
	switch {
	case code >= 500:
		return zapcore.ErrorLevel
	case code >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
