package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/pagination"
	"github.com/lexfield/regscout/internal/repository"
	"github.com/lexfield/regscout/internal/scheduler"
)

type mockJobService struct {
	mock.Mock
}

func (m *mockJobService) Submit(ctx context.Context, input scheduler.SubmitInput) (*domain.Job, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *mockJobService) SubmitBulk(ctx context.Context, sourceID string, urls []string, priority int) ([]*domain.Job, error) {
	args := m.Called(ctx, sourceID, urls, priority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *mockJobService) Stats(ctx context.Context) (map[domain.JobStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.JobStatus]int), args.Error(1)
}

type mockJobReader struct {
	mock.Mock
}

func (m *mockJobReader) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *mockJobReader) ListWithCursor(ctx context.Context, status domain.JobStatus, cursor *pagination.Cursor, limit int) (*repository.JobPageResult, error) {
	args := m.Called(ctx, status, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.JobPageResult), args.Error(1)
}

func sampleJob() *domain.Job {
	return domain.NewJob("job-1", "sec-gov", "https://example.gov/doc", 5,
		time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestJobSubmit_Created(t *testing.T) {
	svc := new(mockJobService)
	svc.On("Submit", mock.Anything, scheduler.SubmitInput{
		SourceID: "sec-gov",
		URL:      "https://example.gov/doc",
		Priority: 5,
	}).Return(sampleJob(), nil)

	h := NewJobHandler(svc, new(mockJobReader))
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(
		`{"source_id":"sec-gov","url":"https://example.gov/doc","priority":5}`))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp JobResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "job-1", resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "2025-06-01T12:00:00Z", resp.ScheduledAt)
	svc.AssertExpectations(t)
}

func TestJobSubmit_MissingFields(t *testing.T) {
	h := NewJobHandler(new(mockJobService), new(mockJobReader))

	cases := []struct {
		name string
		body string
	}{
		{"missing source", `{"url":"https://example.gov/doc"}`},
		{"missing url", `{"source_id":"sec-gov"}`},
		{"malformed json", `{"source_id":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Submit(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestJobSubmit_ValidationErrorMapsTo400(t *testing.T) {
	svc := new(mockJobService)
	svc.On("Submit", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid job"))

	h := NewJobHandler(svc, new(mockJobReader))
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(
		`{"source_id":"sec-gov","url":"https://example.gov/doc"}`))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobSubmitBulk_Created(t *testing.T) {
	svc := new(mockJobService)
	svc.On("SubmitBulk", mock.Anything, "sec-gov", []string{"https://a", "https://b"}, 2).
		Return([]*domain.Job{sampleJob(), sampleJob()}, nil)

	h := NewJobHandler(svc, new(mockJobReader))
	req := httptest.NewRequest(http.MethodPost, "/jobs/bulk", strings.NewReader(
		`{"source_id":"sec-gov","urls":["https://a","https://b"],"priority":2}`))
	rec := httptest.NewRecorder()
	h.SubmitBulk(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp []*JobResponse
	decodeData(t, rec, &resp)
	assert.Len(t, resp, 2)
}

func TestJobSubmitBulk_EmptyURLs(t *testing.T) {
	h := NewJobHandler(new(mockJobService), new(mockJobReader))
	req := httptest.NewRequest(http.MethodPost, "/jobs/bulk", strings.NewReader(
		`{"source_id":"sec-gov","urls":[]}`))
	rec := httptest.NewRecorder()
	h.SubmitBulk(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func getWithURLParam(target, key, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestJobGet_Found(t *testing.T) {
	jobs := new(mockJobReader)
	jobs.On("GetByID", mock.Anything, "job-1").Return(sampleJob(), nil)

	h := NewJobHandler(new(mockJobService), jobs)
	rec := httptest.NewRecorder()
	h.Get(rec, getWithURLParam("/jobs/job-1", "id", "job-1"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JobResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "job-1", resp.ID)
}

func TestJobGet_NotFound(t *testing.T) {
	jobs := new(mockJobReader)
	jobs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrJobNotFound)

	h := NewJobHandler(new(mockJobService), jobs)
	rec := httptest.NewRecorder()
	h.Get(rec, getWithURLParam("/jobs/missing", "id", "missing"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobList_PassesStatusAndLimit(t *testing.T) {
	jobs := new(mockJobReader)
	jobs.On("ListWithCursor", mock.Anything, domain.JobStatusPending, (*pagination.Cursor)(nil), 5).
		Return(&repository.JobPageResult{
			Items:      []*domain.Job{sampleJob()},
			NextCursor: "next",
			HasMore:    true,
		}, nil)

	h := NewJobHandler(new(mockJobService), jobs)
	req := httptest.NewRequest(http.MethodGet, "/jobs?status=pending&limit=5", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var page pagination.PageResult[*JobResponse]
	decodeData(t, rec, &page)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "next", page.Cursor)
	assert.True(t, page.HasMore)
	jobs.AssertExpectations(t)
}

func TestJobList_InvalidLimit(t *testing.T) {
	h := NewJobHandler(new(mockJobService), new(mockJobReader))
	req := httptest.NewRequest(http.MethodGet, "/jobs?limit=500", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobList_InvalidCursor(t *testing.T) {
	h := NewJobHandler(new(mockJobService), new(mockJobReader))
	req := httptest.NewRequest(http.MethodGet, "/jobs?cursor=!!!not-base64", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStats(t *testing.T) {
	svc := new(mockJobService)
	svc.On("Stats", mock.Anything).Return(map[domain.JobStatus]int{
		domain.JobStatusPending: 3,
		domain.JobStatusFailed:  1,
	}, nil)

	h := NewJobHandler(svc, new(mockJobReader))
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/jobs/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	decodeData(t, rec, &stats)
	assert.Equal(t, 3, stats["pending"])
	assert.Equal(t, 1, stats["failed"])
}
