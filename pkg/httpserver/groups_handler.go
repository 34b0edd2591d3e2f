package httpserver

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/mselser95/range-arb/internal/engine"
	"github.com/mselser95/range-arb/internal/metadata"
	"go.uber.org/zap"
)

// GroupsHandler serves read-only views of the live structure.
type GroupsHandler struct {
	engine      *engine.Engine
	recordCache *metadata.RecordCache
	logger      *zap.Logger
}

// NewGroupsHandler creates a groups handler.
func NewGroupsHandler(eng *engine.Engine, cache *metadata.RecordCache, logger *zap.Logger) *GroupsHandler {
	return &GroupsHandler{engine: eng, recordCache: cache, logger: logger}
}

// HandleGroups returns the summaries of all live groups.
func (h *GroupsHandler) HandleGroups(w http.ResponseWriter, r *http.Request) {
	summaries := h.engine.GroupSummaries()

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"count":  len(summaries),
		"groups": summaries,
	})
	if err != nil {
		h.logger.Error("encode-groups-response", zap.Error(err))
	}
}

// HandleMarket returns the cached structure record for ?slug=.
func (h *GroupsHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		http.Error(w, "missing slug parameter", http.StatusBadRequest)
		return
	}

	if h.recordCache == nil {
		http.Error(w, "record cache unavailable", http.StatusServiceUnavailable)
		return
	}

	rec, found := h.recordCache.GetBySlug(slug)
	if !found {
		http.Error(w, "market not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(rec)
	if err != nil {
		h.logger.Error("encode-market-response", zap.Error(err))
	}
}
