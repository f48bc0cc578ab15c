package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexfield/regscout/internal/api"
	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/search"
)

type SearchService interface {
	SemanticSearch(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Result, error)
	HybridSearch(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Result, error)
	FindSimilar(ctx context.Context, chunkID string, limit int) ([]search.ChunkMatch, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query          string `json:"query"`
	Mode           string `json:"mode,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Jurisdiction   string `json:"jurisdiction,omitempty"`
	Category       string `json:"category,omitempty"`
	Priority       string `json:"priority,omitempty"`
	EffectiveAfter string `json:"effective_after,omitempty"`
	EffectiveUntil string `json:"effective_until,omitempty"`
}

func (req *SearchRequest) filters() (search.Filters, error) {
	filters := search.Filters{
		Category: req.Category,
	}

	if req.Jurisdiction != "" {
		jurisdiction := domain.Jurisdiction(req.Jurisdiction)
		if !domain.IsValidJurisdiction(jurisdiction) {
			return filters, domain.NewDomainError(domain.ErrCodeValidation, "invalid jurisdiction filter")
		}
		filters.Jurisdiction = jurisdiction
	}
	if req.Priority != "" {
		priority := domain.PriorityTier(req.Priority)
		if !domain.IsValidPriorityTier(priority) {
			return filters, domain.NewDomainError(domain.ErrCodeValidation, "invalid priority filter")
		}
		filters.Priority = priority
	}
	if req.EffectiveAfter != "" {
		parsed, err := time.Parse("2006-01-02", req.EffectiveAfter)
		if err != nil {
			return filters, domain.NewDomainError(domain.ErrCodeValidation, "invalid effective_after date")
		}
		filters.EffectiveAfter = &parsed
	}
	if req.EffectiveUntil != "" {
		parsed, err := time.Parse("2006-01-02", req.EffectiveUntil)
		if err != nil {
			return filters, domain.NewDomainError(domain.ErrCodeValidation, "invalid effective_until date")
		}
		filters.EffectiveUntil = &parsed
	}
	return filters, nil
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	filters, err := req.filters()
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var results []search.Result
	switch req.Mode {
	case "", "hybrid":
		results, err = h.svc.HybridSearch(r.Context(), req.Query, filters, req.Limit)
	case "semantic":
		results, err = h.svc.SemanticSearch(r.Context(), req.Query, filters, req.Limit)
	default:
		api.Error(w, http.StatusBadRequest, "mode must be hybrid or semantic")
		return
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, results)
}

func (h *SearchHandler) Similar(w http.ResponseWriter, r *http.Request) {
	chunkID := chi.URLParam(r, "id")
	if chunkID == "" {
		api.Error(w, http.StatusBadRequest, "chunk id is required")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 || parsed > 50 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = parsed
	}

	matches, err := h.svc.FindSimilar(r.Context(), chunkID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, matches)
}
