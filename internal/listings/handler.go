package listings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landtrust/pkg/platform/httputil"
	"landtrust/pkg/requestcontext"
)

// Searcher is implemented by Service.
type Searcher interface {
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
}

type Handler struct {
	searcher Searcher
	logger   *slog.Logger
}

func NewHandler(searcher Searcher, logger *slog.Logger) *Handler {
	return &Handler{searcher: searcher, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/properties/search", h.HandleSearch)
}

// HandleSearch handles GET /api/properties/search?address=&city=&state=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	result, err := h.searcher.Search(ctx, SearchQuery{
		Address: params.Get("address"),
		City:    params.Get("city"),
		State:   params.Get("state"),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "property search rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
