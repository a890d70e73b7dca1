// Package normalize turns raw scraped company blobs into validated records.
// Accelerator directories emit company cards as one unstructured text field
// mixing name, location and description; this package heuristically splits
// that blob and coerces the structured fields around it. Every output field
// is either a validated value or explicitly absent, never a raw guess.
package normalize

import (
	"fmt"

	"startup-radar/internal/domain/entity"
)

// RawRecord is one company record exactly as a source adapter emitted it.
// Text is the unstructured blob; the other fields are passed through from
// whatever structure the source happened to expose.
type RawRecord struct {
	ExternalID string
	Text       string
	Batch      string
	URL        string
	LogoURL    string
	Status     string
	TeamSize   string
	Tags       []string
	Location   string
	Founders   []RawFounder
}

// RawFounder is founder data as emitted by a source adapter.
type RawFounder struct {
	Name       string
	Title      string
	ProfileURL string
}

// NormalizedRecord is the cleaned form of a RawRecord, ready for
// fingerprinting and reconciliation.
type NormalizedRecord struct {
	ExternalID  string
	Name        string
	Description string
	Location    *entity.Location
	Batch       string
	Status      entity.Status
	Tags        []string
	TeamSize    *int
	URL         string
	LogoURL     string
	Founders    []entity.Founder
}

// NormalizationError indicates that a raw record could not be minimally
// parsed. It is only returned when the company name cannot be isolated at
// all; softer ambiguities degrade to absent fields instead.
type NormalizationError struct {
	Reason string
	Blob   string
}

// Error returns a formatted error message.
func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize record: %s", e.Reason)
}
