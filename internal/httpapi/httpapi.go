package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"modelmetrics/internal/domain"
	"modelmetrics/internal/report"
	"modelmetrics/internal/service"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
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

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/reports/census", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		rows, err := a.service.Census(r.Context())
		return map[string]any{"census": rows}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/stock-ratios", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		rows, err := a.service.LowStock(r.Context())
		return map[string]any{"low_stock": rows}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/product-performance", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		rows, err := a.service.Performance(r.Context())
		return map[string]any{"performance": rows}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/restock-priorities", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		rows, err := a.service.RestockPriorities(r.Context())
		return map[string]any{"restock_priorities": rows}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/customer-profit", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		rows, err := a.service.CustomerProfit(r.Context())
		return map[string]any{"customer_profit": rows}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/vip-customers", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		rows, err := a.service.VIPCustomers(r.Context())
		return map[string]any{"vip_customers": rows}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/least-engaged", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		rows, err := a.service.LeastEngaged(r.Context())
		return map[string]any{"least_engaged": rows}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/ltv", a.requireAuth(a.reportHandler(func(r *http.Request) (any, error) {
		ltv, err := a.service.LTV(r.Context())
		return map[string]any{"ltv": ltv}, err
	}), domain.RoleAnalyst, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/full", a.requireAuth(a.handleFullReport, domain.RoleAnalyst, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/dataset/refresh", a.requireAuth(a.handleRefresh, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/users/analysts", a.requireAuth(a.handleAnalysts, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
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
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// reportHandler wraps one report section with the shared method check and
// error mapping. Report errors map to status codes in one place.
func (a *API) reportHandler(load func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}

		payload, err := load(r)
		if err != nil {
			writeError(w, reportErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (a *API) handleFullReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	bundle, err := a.service.FullReport(r.Context())
	if err != nil {
		writeError(w, reportErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	resp, err := a.service.Refresh(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(strings.ToLower(err.Error()), "admin role required") {
			status = http.StatusForbidden
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAnalysts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"analysts": a.auth.ListAnalysts()})
	case http.MethodPost:
		var req domain.AnalystCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		analyst, err := a.auth.CreateAnalyst(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"analyst": analyst})
	default:
		writeMethodNotAllowed(w)
	}
}

func reportErrorStatus(err error) int {
	// ErrNoData means the report is undefined for the loaded dataset, not
	// that anything broke. Everything else (load failures, schema
	// mismatch) is a server-side problem.
	if errors.Is(err, report.ErrNoData) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
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
