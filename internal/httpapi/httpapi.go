package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockroom/internal/logging"
	"stockroom/internal/metrics"
	"stockroom/internal/production"
	"stockroom/internal/service"
	"stockroom/internal/store"
)

type Config struct {
	AllowedOrigin string
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	// Location interprets date-only from/to query values. Nil means time.Local.
	Location *time.Location
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *zap.Logger
	metrics       *metrics.Metrics
	location      *time.Location
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, cfg Config) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: cfg.AllowedOrigin,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		location:      cfg.Location,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (Unix time truncated to the hour).
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts the current and the previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	staff := func(next http.HandlerFunc) http.HandlerFunc {
		return a.requireAuth(next, "admin", "staff")
	}
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return a.requireAuth(next, "admin")
	}

	mux.HandleFunc("GET /healthz", a.handleHealth)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	mux.HandleFunc("POST /api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("GET /api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("POST /api/v1/auth/logout", staff(a.handleLogout))
	mux.HandleFunc("GET /api/v1/auth/session", staff(a.handleSession))
	mux.HandleFunc("PUT /api/v1/auth/password", staff(a.handlePasswordChange))

	a.registerResources(mux, staff)

	mux.HandleFunc("POST /api/v1/production/check", staff(a.handleProductionCheck))
	mux.HandleFunc("GET /api/v1/dashboard", staff(a.handleDashboard))
	mux.HandleFunc("GET /api/v1/reports/summary", staff(a.handleReportSummary))

	mux.HandleFunc("GET /api/v1/notifications", staff(a.handleNotifications))
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", staff(a.handleNotificationRead))
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", staff(a.handleNotificationDelete))

	mux.HandleFunc("GET /api/v1/audit-logs", admin(a.handleAuditLogs))
	mux.HandleFunc("GET /api/v1/users", admin(a.handleListUsers))
	mux.HandleFunc("POST /api/v1/users", admin(a.handleCreateUser))

	return a.withMiddleware(mux)
}

func bearerToken(r *http.Request) (string, bool) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authorization[len("Bearer "):])
	return token, token != ""
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, service.ErrForbidden)
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = logging.WithContext(ctx, logging.FromContext(ctx).With(zap.String("actor", actor.Username)))
		next(w, r.WithContext(ctx))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// csrfExemptPaths are called before the client can have fetched a token.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces X-CSRF-Token on state-changing methods. It writes the
// error response itself when the check fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func requestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if id == "" || len(id) > 64 {
		return uuid.NewString()
	}
	return id
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		reqID := requestID(r)
		logger := a.logger.With(zap.String("request_id", reqID))
		r = r.WithContext(logging.WithContext(r.Context(), logger))

		w.Header().Set("X-Request-ID", reqID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(startedAt)
		a.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

// statusFor maps service and store errors to HTTP status codes.
func statusFor(err error) int {
	var shortage *production.ShortageError
	switch {
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, production.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &shortage), errors.Is(err, store.ErrInsufficientStock), errors.Is(err, production.ErrNoRecipe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status. Shortages also list the lines that
// could not be covered.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logging.FromContext(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, map[string]any{"error": "internal server error"})
		return
	}

	var shortage *production.ShortageError
	if errors.As(err, &shortage) {
		writeJSON(w, status, map[string]any{
			"error":     err.Error(),
			"shortages": shortage.Lines,
		})
		return
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parsePage reads offset and limit. A missing limit leaves the service default.
func parsePage(r *http.Request) store.Page {
	query := r.URL.Query()
	offset := 0
	if parsed, err := strconv.Atoi(strings.TrimSpace(query.Get("offset"))); err == nil && parsed > 0 {
		offset = parsed
	}
	return store.Page{
		Offset: offset,
		Limit:  parsePositiveLimit(query.Get("limit"), 0, store.MaxPageSize),
	}
}

// parseTimeRange reads from/to as RFC3339 or YYYY-MM-DD. A date-only "to"
// covers that whole day.
func (a *API) parseTimeRange(r *http.Request) (store.TimeRange, error) {
	var window store.TimeRange
	query := r.URL.Query()

	from, _, err := a.parseInstant(query.Get("from"))
	if err != nil {
		return window, fmt.Errorf("%w: from: %v", store.ErrInvalidInput, err)
	}
	to, dateOnly, err := a.parseInstant(query.Get("to"))
	if err != nil {
		return window, fmt.Errorf("%w: to: %v", store.ErrInvalidInput, err)
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1)
	}
	window.From, window.To = from, to
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return window, fmt.Errorf("%w: from must be before to", store.ErrInvalidInput)
	}
	return window, nil
}

func (a *API) parseInstant(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, a.location)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", raw)
	}
	return t, true, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause is logged by the caller.
	msg := err.Error()
	if status >= 500 {
		zap.L().Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
