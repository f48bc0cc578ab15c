package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lexfield/regscout/internal/domain"
)

// DefaultExtractionModel is the chat model used for structured extraction.
const DefaultExtractionModel = openai.GPT4oMini

const extractionSystemPrompt = `You are a regulatory analyst. Extract structured fields from the supplied regulatory document text. Respond with a single JSON object with these keys:
"title" (string), "summary" (string, 2-3 sentences),
"jurisdiction" (one of "federal", "state", "local", "international"),
"industries" (array of affected industry tags),
"category" (string), "priority" (one of "critical", "high", "medium", "low"),
"requirements" (array of key requirement strings),
"effective_date" (ISO date string or null if not stated).`

// ChatAPI defines the interface for chat completion calls.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ExtractionInput carries the cleaned text and its provenance.
type ExtractionInput struct {
	SourceURL string
	Title     string
	Text      string
}

// ExtractedRecord is the structured output of the extraction service.
type ExtractedRecord struct {
	Title         string
	Summary       string
	Jurisdiction  domain.Jurisdiction
	Industries    []string
	Category      string
	Priority      domain.PriorityTier
	Requirements  []string
	EffectiveDate *time.Time
}

// Extractor calls the chat API to turn cleaned document text into a
// structured regulation record. Malformed model output fails loudly.
type Extractor struct {
	api   ChatAPI
	model string
}

// NewExtractor creates an Extractor backed by the OpenAI chat API.
func NewExtractor(apiKey string, model string) *Extractor {
	if model == "" {
		model = DefaultExtractionModel
	}
	return &Extractor{api: openai.NewClient(apiKey), model: model}
}

// NewExtractorWithAPI creates an Extractor with an injected ChatAPI.
func NewExtractorWithAPI(api ChatAPI, model string) *Extractor {
	if model == "" {
		model = DefaultExtractionModel
	}
	return &Extractor{api: api, model: model}
}

type extractionPayload struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Jurisdiction  string   `json:"jurisdiction"`
	Industries    []string `json:"industries"`
	Category      string   `json:"category"`
	Priority      string   `json:"priority"`
	Requirements  []string `json:"requirements"`
	EffectiveDate *string  `json:"effective_date"`
}

// Extract performs structured extraction over the input text.
func (e *Extractor) Extract(ctx context.Context, input ExtractionInput) (*ExtractedRecord, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, &domain.ExtractionError{URL: input.SourceURL, Err: fmt.Errorf("input text is empty")}
	}

	userPrompt := fmt.Sprintf("Source URL: %s\nPage title: %s\n\nDocument text:\n%s",
		input.SourceURL, input.Title, input.Text)

	resp, err := e.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return nil, &domain.ExtractionError{URL: input.SourceURL, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.ExtractionError{URL: input.SourceURL, Err: fmt.Errorf("no completion choices returned")}
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, &domain.ExtractionError{URL: input.SourceURL, Err: fmt.Errorf("malformed extraction response: %w", err)}
	}

	record, err := payload.toRecord()
	if err != nil {
		return nil, &domain.ExtractionError{URL: input.SourceURL, Err: err}
	}
	return record, nil
}

func (p *extractionPayload) toRecord() (*ExtractedRecord, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("extraction returned empty title")
	}

	jurisdiction := domain.Jurisdiction(strings.ToLower(strings.TrimSpace(p.Jurisdiction)))
	if !domain.IsValidJurisdiction(jurisdiction) {
		return nil, fmt.Errorf("extraction returned invalid jurisdiction %q", p.Jurisdiction)
	}

	priority := domain.PriorityTier(strings.ToLower(strings.TrimSpace(p.Priority)))
	if !domain.IsValidPriorityTier(priority) {
		return nil, fmt.Errorf("extraction returned invalid priority %q", p.Priority)
	}

	record := &ExtractedRecord{
		Title:        p.Title,
		Summary:      p.Summary,
		Jurisdiction: jurisdiction,
		Industries:   p.Industries,
		Category:     p.Category,
		Priority:     priority,
		Requirements: p.Requirements,
	}

	if p.EffectiveDate != nil && *p.EffectiveDate != "" {
		parsed, err := time.Parse("2006-01-02", *p.EffectiveDate)
		if err != nil {
			return nil, fmt.Errorf("extraction returned invalid effective date %q", *p.EffectiveDate)
		}
		record.EffectiveDate = &parsed
	}

	return record, nil
}
