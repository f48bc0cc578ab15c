package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/openai"
)

type mockContentStore struct {
	mock.Mock
}

func (m *mockContentStore) Create(ctx context.Context, c *domain.ScrapedContent) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockContentStore) UpdateBlobKey(ctx context.Context, id, blobKey string) error {
	args := m.Called(ctx, id, blobKey)
	return args.Error(0)
}

type mockRegulationStore struct {
	mock.Mock
}

func (m *mockRegulationStore) Create(ctx context.Context, r *domain.Regulation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

type mockChunkStore struct {
	mock.Mock
}

func (m *mockChunkStore) Create(ctx context.Context, c *domain.Chunk) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type stubFetcher struct {
	result *domain.ScrapeResult
	err    error
}

func (s *stubFetcher) Scrape(ctx context.Context, rawURL string) (*domain.ScrapeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubExtractor struct {
	record   *openai.ExtractedRecord
	err      error
	lastText string
}

func (s *stubExtractor) Extract(ctx context.Context, input openai.ExtractionInput) (*openai.ExtractedRecord, error) {
	s.lastText = input.Text
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

type stubEmbedder struct {
	failAt map[int]error
	calls  int
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error) {
	idx := s.calls
	s.calls++
	if err, ok := s.failAt[idx]; ok {
		return nil, 0, err
	}
	return []float32{0.1, 0.2, 0.3}, 7, nil
}

type stubBlobStore struct {
	keys []string
	err  error
}

func (s *stubBlobStore) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	if s.err != nil {
		return s.err
	}
	s.keys = append(s.keys, key)
	return nil
}

func validRecord() *openai.ExtractedRecord {
	return &openai.ExtractedRecord{
		Title:        "Data Privacy Act",
		Summary:      "Protects personal data.",
		Jurisdiction: domain.JurisdictionFederal,
		Industries:   []string{"healthcare"},
		Category:     "privacy",
		Priority:     domain.PriorityHigh,
		Requirements: []string{"encrypt data at rest"},
	}
}

func fetchedPage() *domain.ScrapeResult {
	return &domain.ScrapeResult{
		URL:         "https://example.gov/doc",
		Content:     "<html><body><p>Section one. Section two. Section three.</p></body></html>",
		ContentType: "text/html",
		StatusCode:  200,
		Title:       "Data Privacy Act",
		Description: "A summary.",
		ScrapedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRun_FullSuccess(t *testing.T) {
	contents := new(mockContentStore)
	regulations := new(mockRegulationStore)
	chunks := new(mockChunkStore)
	extractor := &stubExtractor{record: validRecord()}
	embedder := &stubEmbedder{}

	contents.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScrapedContent")).Return(nil)
	regulations.On("Create", mock.Anything, mock.AnythingOfType("*domain.Regulation")).Return(nil)
	chunks.On("Create", mock.Anything, mock.AnythingOfType("*domain.Chunk")).Return(nil)

	r := NewRunner(&stubFetcher{result: fetchedPage()}, contents, regulations, chunks, extractor, embedder, nil, Config{})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, true)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Empty(t, run.Errors)
	assert.NotEmpty(t, run.ScrapedContentID)
	assert.NotEmpty(t, run.RegulationID)
	require.Len(t, run.ChunkIDs, 1)

	contents.AssertExpectations(t)
	regulations.AssertExpectations(t)
	chunks.AssertExpectations(t)

	created := regulations.Calls[0].Arguments.Get(1).(*domain.Regulation)
	assert.Equal(t, run.ScrapedContentID, created.ScrapedContentID)
	assert.Equal(t, "src-1", created.SourceID)
	assert.Equal(t, domain.PriorityHigh, created.Priority)

	chunk := chunks.Calls[0].Arguments.Get(1).(*domain.Chunk)
	assert.Equal(t, run.RegulationID, chunk.RegulationID)
	assert.Equal(t, 0, chunk.ChunkIndex)
	assert.Equal(t, 7, chunk.TokenCount)
	assert.NotContains(t, chunk.Content, "<p>")
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	contents := new(mockContentStore)
	r := NewRunner(&stubFetcher{err: errors.New("connection refused")}, contents, nil, nil, nil, nil, nil, Config{})

	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, true)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "fetch")
	assert.Empty(t, run.ScrapedContentID)
	contents.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRun_RawPersistFailureIsFatal(t *testing.T) {
	contents := new(mockContentStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	r := NewRunner(&stubFetcher{result: fetchedPage()}, contents, nil, nil, nil, nil, nil, Config{})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, true)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "scraped content")
}

func TestRun_ExtractionFailureIsPartial(t *testing.T) {
	contents := new(mockContentStore)
	chunks := new(mockChunkStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)
	chunks.On("Create", mock.Anything, mock.Anything).Return(nil)

	extractor := &stubExtractor{err: errors.New("model returned malformed json")}
	embedder := &stubEmbedder{}

	r := NewRunner(&stubFetcher{result: fetchedPage()}, contents, nil, chunks, extractor, embedder, nil, Config{})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, true)

	// Extraction failed but chunking and embedding still ran.
	assert.Equal(t, domain.RunStatusPartial, run.Status)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "extraction")
	assert.Empty(t, run.RegulationID)
	require.NotEmpty(t, run.ChunkIDs)

	chunk := chunks.Calls[0].Arguments.Get(1).(*domain.Chunk)
	assert.Empty(t, chunk.RegulationID)
}

func TestRun_PerChunkEmbeddingFailureIsPartial(t *testing.T) {
	contents := new(mockContentStore)
	regulations := new(mockRegulationStore)
	chunks := new(mockChunkStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)
	regulations.On("Create", mock.Anything, mock.Anything).Return(nil)
	chunks.On("Create", mock.Anything, mock.Anything).Return(nil)

	// Long content forces several chunks; the second embedding call fails.
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "<p>Clause %02d of the regulation imposes recordkeeping duties.</p>", i)
	}
	b.WriteString("</body></html>")
	page := fetchedPage()
	page.Content = b.String()

	embedder := &stubEmbedder{failAt: map[int]error{1: errors.New("rate limited")}}
	r := NewRunner(&stubFetcher{result: page}, contents, regulations, chunks, &stubExtractor{record: validRecord()}, embedder, nil, Config{ChunkSize: 300, ChunkOverlap: 50})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, true)

	assert.Equal(t, domain.RunStatusPartial, run.Status)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "chunk 1")
	assert.GreaterOrEqual(t, embedder.calls, 3)
	assert.Len(t, run.ChunkIDs, embedder.calls-1)
}

func TestRun_ExtractionInputIsTruncated(t *testing.T) {
	contents := new(mockContentStore)
	regulations := new(mockRegulationStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)
	regulations.On("Create", mock.Anything, mock.Anything).Return(nil)

	page := fetchedPage()
	page.Content = strings.Repeat("word ", 500)

	extractor := &stubExtractor{record: validRecord()}
	r := NewRunner(&stubFetcher{result: page}, contents, regulations, nil, extractor, nil, nil, Config{ExtractMaxChars: 100})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, false)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Len(t, extractor.lastText, 100)
}

func TestRun_ExtractionTruncationCountsRunes(t *testing.T) {
	contents := new(mockContentStore)
	regulations := new(mockRegulationStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)
	regulations.On("Create", mock.Anything, mock.Anything).Return(nil)

	page := fetchedPage()
	page.Content = strings.Repeat("你", 500)

	extractor := &stubExtractor{record: validRecord()}
	r := NewRunner(&stubFetcher{result: page}, contents, regulations, nil, extractor, nil, nil, Config{ExtractMaxChars: 100})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, false)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.True(t, utf8.ValidString(extractor.lastText))
	assert.Equal(t, 100, utf8.RuneCountInString(extractor.lastText))
}

func TestRun_MissingServicesRecordErrors(t *testing.T) {
	contents := new(mockContentStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)

	r := NewRunner(&stubFetcher{result: fetchedPage()}, contents, nil, nil, nil, nil, nil, Config{})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", true, true)

	assert.Equal(t, domain.RunStatusPartial, run.Status)
	require.Len(t, run.Errors, 2)
	assert.Contains(t, run.Errors[0], "extraction")
	assert.Contains(t, run.Errors[1], "embedding")
}

func TestRun_StagesSkippedWhenDisabled(t *testing.T) {
	contents := new(mockContentStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)

	r := NewRunner(&stubFetcher{result: fetchedPage()}, contents, nil, nil, nil, nil, nil, Config{})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", false, false)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Empty(t, run.Errors)
	assert.Empty(t, run.RegulationID)
	assert.Empty(t, run.ChunkIDs)
}

func TestRun_MirrorsRawBodyWhenBlobStoreConfigured(t *testing.T) {
	contents := new(mockContentStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)
	contents.On("UpdateBlobKey", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	blobs := &stubBlobStore{}
	r := NewRunner(&stubFetcher{result: fetchedPage()}, contents, nil, nil, nil, nil, blobs, Config{})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", false, false)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	require.Len(t, blobs.keys, 1)
	assert.Equal(t, fmt.Sprintf("raw/src-1/%s", run.ScrapedContentID), blobs.keys[0])
	contents.AssertCalled(t, "UpdateBlobKey", mock.Anything, run.ScrapedContentID, blobs.keys[0])
}

func TestRun_BlobMirrorFailureDoesNotAffectOutcome(t *testing.T) {
	contents := new(mockContentStore)
	contents.On("Create", mock.Anything, mock.Anything).Return(nil)

	blobs := &stubBlobStore{err: errors.New("bucket unavailable")}
	r := NewRunner(&stubFetcher{result: fetchedPage()}, contents, nil, nil, nil, nil, blobs, Config{})
	run := r.Run(context.Background(), "src-1", "https://example.gov/doc", false, false)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Empty(t, run.Errors)
	contents.AssertNotCalled(t, "UpdateBlobKey", mock.Anything, mock.Anything, mock.Anything)
}
