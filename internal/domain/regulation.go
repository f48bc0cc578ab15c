package domain

import (
	"fmt"
	"time"
)

// Jurisdiction is the level of government a regulation applies to
type Jurisdiction string

const (
	JurisdictionFederal       Jurisdiction = "federal"
	JurisdictionState         Jurisdiction = "state"
	JurisdictionLocal         Jurisdiction = "local"
	JurisdictionInternational Jurisdiction = "international"
)

// PriorityTier classifies the urgency of a regulation
type PriorityTier string

const (
	PriorityCritical PriorityTier = "critical"
	PriorityHigh     PriorityTier = "high"
	PriorityMedium   PriorityTier = "medium"
	PriorityLow      PriorityTier = "low"
)

// Regulation is the structured record extracted from scraped content
type Regulation struct {
	ID               string
	ScrapedContentID string
	SourceID         string
	URL              string
	Title            string
	Summary          string
	Jurisdiction     Jurisdiction
	Industries       []string
	Category         string
	Priority         PriorityTier
	Requirements     []string
	EffectiveDate    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateRegulation validates a Regulation instance
func ValidateRegulation(r *Regulation) error {
	if r == nil {
		return fmt.Errorf("regulation cannot be nil")
	}
	if r.ID == "" {
		return fmt.Errorf("regulation ID is required")
	}
	if r.ScrapedContentID == "" {
		return fmt.Errorf("regulation ScrapedContentID is required")
	}
	if r.Title == "" {
		return fmt.Errorf("regulation Title is required")
	}
	if !IsValidJurisdiction(r.Jurisdiction) {
		return fmt.Errorf("regulation Jurisdiction is invalid: %s", r.Jurisdiction)
	}
	if !IsValidPriorityTier(r.Priority) {
		return fmt.Errorf("regulation Priority is invalid: %s", r.Priority)
	}
	return nil
}

// IsValidJurisdiction checks if a Jurisdiction is valid
func IsValidJurisdiction(j Jurisdiction) bool {
	switch j {
	case JurisdictionFederal, JurisdictionState, JurisdictionLocal, JurisdictionInternational:
		return true
	}
	return false
}

// IsValidPriorityTier checks if a PriorityTier is valid
func IsValidPriorityTier(p PriorityTier) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
