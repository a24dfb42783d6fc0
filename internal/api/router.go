package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/middleware"
)

// NewRouter builds the read API handler.
//
// Route table:
//
//	GET /api/v1/topics                 → topic ids and titles
//	GET /api/v1/topics/search?term=    → topics whose top terms include term
//	GET /api/v1/users/search?q=        → user names by prefix
//	GET /api/v1/users/graph            → quote network (GEXF download)
//	GET /api/v1/users/{name}           → full user profile
//	GET /api/v1/users/{name}/tokens    → user terms, heaviest first
//	GET /api/v1/users/{name}/smileys   → user smileys, most used first
//	GET /health/live, /health/ready
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → RateLimit → Metrics → Timeout → handler
func NewRouter(h *Handler, checker *health.Checker, limiter *pkgmw.ClientLimiter, m *metrics.Metrics, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("GET /api/v1/topics", h.ListTopics)
	mux.HandleFunc("GET /api/v1/topics/search", h.SearchTopics)

	mux.HandleFunc("GET /api/v1/users/search", h.SearchUsers)
	mux.HandleFunc("GET /api/v1/users/graph", h.Graph)
	mux.HandleFunc("GET /api/v1/users/{name}", h.GetUser)
	mux.HandleFunc("GET /api/v1/users/{name}/tokens", h.UserTokens)
	mux.HandleFunc("GET /api/v1/users/{name}/smileys", h.UserSmileys)

	var chain http.Handler = mux
	if timeout > 0 {
		chain = pkgmw.Timeout(timeout)(chain)
	}
	chain = pkgmw.Metrics(m)(chain)
	if limiter != nil {
		chain = pkgmw.RateLimit(limiter)(chain)
	}
	chain = pkgmw.CORS(pkgmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)
	return chain
}
