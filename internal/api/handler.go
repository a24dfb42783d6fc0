// Package api serves stored topic and user profiles over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/profile"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/logger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Handler struct {
	repo        profile.Repository
	cache       *Cache
	graphPath   string
	searchLimit int
	logger      *slog.Logger
}

// NewHandler builds the handler. cache may be nil.
func NewHandler(repo profile.Repository, cache *Cache, graphPath string, searchLimit int) *Handler {
	if searchLimit <= 0 {
		searchLimit = 12
	}
	return &Handler{
		repo:        repo,
		cache:       cache,
		graphPath:   graphPath,
		searchLimit: searchLimit,
		logger:      slog.Default().With("component", "api-handler"),
	}
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, _, err := cached(r.Context(), h.cache, "topics", "", func() ([]profile.TopicSummary, error) {
		return h.repo.ListTopics(r.Context())
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, topics)
}

// SearchTopics finds topics whose top terms include term. Terms are stored
// folded, so the query is folded the same way.
func (h *Handler) SearchTopics(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		h.writeJSON(w, http.StatusOK, []profile.TopicProfile{})
		return
	}
	term = cases.Lower(language.French).String(term)
	topics, err := h.repo.SearchTopicsByTerm(r.Context(), term)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, topics)
}

// SearchUsers returns at most searchLimit names starting with q,
// ignoring case.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeJSON(w, http.StatusOK, []string{})
		return
	}
	names, hit, err := cached(r.Context(), h.cache, "search", q, func() ([]string, error) {
		return h.repo.SearchUsersByNamePrefix(r.Context(), q, h.searchLimit)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("user search", "q", q, "results", len(names), "cache_hit", hit)
	h.writeJSON(w, http.StatusOK, names)
}

func (h *Handler) user(r *http.Request) (*profile.UserProfile, error) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		return nil, fmt.Errorf("%w: empty user name", apperrors.ErrInvalidInput)
	}
	u, _, err := cached(r.Context(), h.cache, "user", name, func() (*profile.UserProfile, error) {
		return h.repo.UserByName(r.Context(), name)
	})
	return u, err
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// UserTokens returns the user's terms, heaviest first.
func (h *Handler) UserTokens(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile.TopTokens(u.Tokens))
}

func (h *Handler) UserSmileys(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	smileys := u.Smileys
	if smileys == nil {
		smileys = []profile.SmileyCount{}
	}
	h.writeJSON(w, http.StatusOK, smileys)
}

// Graph downloads the exported quote network.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(h.graphPath)
	if errors.Is(err, os.ErrNotExist) {
		h.writeError(w, r, fmt.Errorf("%w: quote graph not exported", apperrors.ErrMissingArtifact))
		return
	}
	if err != nil {
		h.writeError(w, r, fmt.Errorf("opening graph: %w", err))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.writeError(w, r, fmt.Errorf("reading graph: %w", err))
		return
	}
	w.Header().Set("Content-Type", "gephi/gexf")
	w.Header().Set("Content-Disposition", `attachment; filename="community.gexf"`)
	http.ServeContent(w, r, "community.gexf", info.ModTime(), f)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its HTTP status. Server-side failures are logged
// and their detail withheld from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		message = apperrors.ErrInternal.Error()
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
