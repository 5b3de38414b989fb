package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/attachkit/content-store/pkg/contentstore"
)

const defaultSearchLimit = 25

// SearchHandler handles full-text search requests
type SearchHandler struct {
	service contentstore.Service
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service contentstore.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Routes returns the routes for search
func (h *SearchHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Search)
	return r
}

// SearchResponse is the response body for a search query
type SearchResponse struct {
	ResourceIDs []string `json:"resource_ids"`
}

// Search finds resources whose indexed content matches the "q" query.
// "key" restricts matches to object keys matching a glob pattern;
// "limit" caps the number of results.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	keyPattern := r.URL.Query().Get("key")
	if query == "" && keyPattern == "" {
		http.Error(w, "Missing 'q' or 'key' parameter", http.StatusBadRequest)
		return
	}

	ids, err := h.service.Search(r.Context(), contentstore.SearchRequest{
		Query:      query,
		KeyPattern: keyPattern,
		Limit:      parseLimit(r, "limit", defaultSearchLimit),
	})
	if err != nil {
		slog.Error("Search failed", "query", query, "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	resp := SearchResponse{ResourceIDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.ResourceIDs = append(resp.ResourceIDs, id.String())
	}
	render.JSON(w, r, resp)
}
