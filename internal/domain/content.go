package domain

import "time"

// ScrapeResult is the ephemeral output of one fetch. It is consumed by the
// ingestion pipeline and persisted as a ScrapedContent record.
type ScrapeResult struct {
	URL         string
	Content     string
	ContentType string
	StatusCode  int
	Title       string
	Description string
	ScrapedAt   time.Time
}

// ScrapedContent is the durable raw-content record produced by the pipeline
type ScrapedContent struct {
	ID          string
	SourceID    string
	URL         string
	Title       string
	Description string
	Content     string
	ContentType string
	StatusCode  int
	BlobKey     string
	FetchedAt   time.Time
	CreatedAt   time.Time
}

// Chunk is a bounded span of cleaned text with its embedding vector.
// Immutable once persisted; many chunks reference one regulation.
type Chunk struct {
	ID               string
	RegulationID     string
	ScrapedContentID string
	SourceURL        string
	Title            string
	ChunkIndex       int
	Content          string
	Embedding        []float32
	TokenCount       int
	CreatedAt        time.Time
}
