package search

import "time"

// ChunkMatch is one chunk scored against a query embedding.
type ChunkMatch struct {
	ChunkID      string  `json:"chunk_id"`
	RegulationID string  `json:"regulation_id"`
	ChunkIndex   int     `json:"chunk_index"`
	Content      string  `json:"content"`
	SourceURL    string  `json:"source_url"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`
}

// Result is one regulation returned from a search, with the score and the
// best-matching chunk excerpt that produced it.
type Result struct {
	RegulationID  string     `json:"regulation_id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	Jurisdiction  string     `json:"jurisdiction"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	SourceURL     string     `json:"source_url"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	Score         float64    `json:"score"`
	Excerpt       string     `json:"excerpt,omitempty"`
	MatchType     string     `json:"match_type"`
}
