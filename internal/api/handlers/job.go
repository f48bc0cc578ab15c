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
	"github.com/lexfield/regscout/internal/pagination"
	"github.com/lexfield/regscout/internal/repository"
	"github.com/lexfield/regscout/internal/scheduler"
)

type JobService interface {
	Submit(ctx context.Context, input scheduler.SubmitInput) (*domain.Job, error)
	SubmitBulk(ctx context.Context, sourceID string, urls []string, priority int) ([]*domain.Job, error)
	Stats(ctx context.Context) (map[domain.JobStatus]int, error)
}

type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	ListWithCursor(ctx context.Context, status domain.JobStatus, cursor *pagination.Cursor, limit int) (*repository.JobPageResult, error)
}

type JobHandler struct {
	svc  JobService
	jobs JobReader
}

func NewJobHandler(svc JobService, jobs JobReader) *JobHandler {
	return &JobHandler{svc: svc, jobs: jobs}
}

type SubmitJobRequest struct {
	SourceID    string     `json:"source_id"`
	URL         string     `json:"url"`
	Priority    int        `json:"priority"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	MaxRetries  int        `json:"max_retries,omitempty"`
}

type SubmitBulkRequest struct {
	SourceID string   `json:"source_id"`
	URLs     []string `json:"urls"`
	Priority int      `json:"priority"`
}

type JobResponse struct {
	ID          string `json:"id"`
	SourceID    string `json:"source_id"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	ScheduledAt string `json:"scheduled_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	RetryCount  int    `json:"retry_count"`
	MaxRetries  int    `json:"max_retries"`
	CreatedAt   string `json:"created_at"`
}

func jobToResponse(j *domain.Job) *JobResponse {
	resp := &JobResponse{
		ID:          j.ID,
		SourceID:    j.SourceID,
		URL:         j.URL,
		Status:      string(j.Status),
		Priority:    j.Priority,
		ScheduledAt: j.ScheduledAt.UTC().Format(time.RFC3339),
		LastError:   j.LastError,
		RetryCount:  j.RetryCount,
		MaxRetries:  j.MaxRetries,
		CreatedAt:   j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.StartedAt != nil {
		resp.StartedAt = j.StartedAt.UTC().Format(time.RFC3339)
	}
	if j.CompletedAt != nil {
		resp.CompletedAt = j.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceID == "" {
		api.Error(w, http.StatusBadRequest, "source_id is required")
		return
	}
	if req.URL == "" {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := h.svc.Submit(r.Context(), scheduler.SubmitInput{
		SourceID:    req.SourceID,
		URL:         req.URL,
		Priority:    req.Priority,
		ScheduledAt: req.ScheduledAt,
		MaxRetries:  req.MaxRetries,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, jobToResponse(job))
}

func (h *JobHandler) SubmitBulk(w http.ResponseWriter, r *http.Request) {
	var req SubmitBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceID == "" {
		api.Error(w, http.StatusBadRequest, "source_id is required")
		return
	}
	if len(req.URLs) == 0 {
		api.Error(w, http.StatusBadRequest, "urls is required")
		return
	}

	jobs, err := h.svc.SubmitBulk(r.Context(), req.SourceID, req.URLs, req.Priority)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, jobToResponse(job))
	}
	api.Success(w, http.StatusCreated, responses)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.JobStatus(r.URL.Query().Get("status"))

	limit := 20
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := h.jobs.ListWithCursor(r.Context(), status, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*JobResponse, 0, len(page.Items))
	for _, job := range page.Items {
		items = append(items, jobToResponse(job))
	}

	api.Success(w, http.StatusOK, pagination.PageResult[*JobResponse]{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	stats := make(map[string]int, len(counts))
	for status, count := range counts {
		stats[string(status)] = count
	}
	api.Success(w, http.StatusOK, stats)
}
