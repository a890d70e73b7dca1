// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Startup, Founder and ScraperRun,
// along with their validation rules and domain-specific errors.
package entity

import (
	"regexp"
	"strings"
	"time"
)

// Status represents the lifecycle status of a startup as reported by a source.
type Status string

// Valid startup statuses. Anything a source reports outside this set maps to
// StatusUnknown.
const (
	StatusActive   Status = "active"
	StatusAcquired Status = "acquired"
	StatusPublic   Status = "public"
	StatusInactive Status = "inactive"
	StatusUnknown  Status = "unknown"
)

// ParseStatus maps a raw status string from a source payload to a Status.
// Sources are inconsistent about casing ("ACTIVE", "Active"), so the input is
// folded before matching. Unrecognized values map to StatusUnknown rather
// than failing.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return StatusActive
	case "acquired":
		return StatusAcquired
	case "public", "ipo":
		return StatusPublic
	case "inactive", "closed", "dead":
		return StatusInactive
	default:
		return StatusUnknown
	}
}

// Location is a structured geographic location extracted from a raw blob.
// Raw always preserves the source string; the structured parts are set only
// when they could be separated with confidence.
type Location struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

// String renders the structured parts as "City, Region, Country", skipping
// empty parts. Falls back to Raw when nothing was parsed.
func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.Region, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return l.Raw
	}
	return strings.Join(parts, ", ")
}

// Startup represents one accelerator-listed company.
// The (Source, ExternalID) pair is the stable identity across runs: a record
// with the same pair is an update to the same entity, never a duplicate
// insert. Startups are never deleted by the scraper itself.
type Startup struct {
	ID          int64
	Source      string
	ExternalID  string
	Name        string
	Description string
	URL         string
	LogoURL     string
	Batch       string
	Status      Status
	Tags        []string
	TeamSize    *int
	Location    *Location
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Founders are owned exclusively by this startup and replaced wholesale
	// whenever the startup is updated.
	Founders []Founder
}

// Validate checks the fields required for a Startup to be persisted.
func (s *Startup) Validate() error {
	if s.Source == "" {
		return &ValidationError{Field: "source", Message: "source is required"}
	}
	if s.ExternalID == "" {
		return &ValidationError{Field: "external_id", Message: "external id is required"}
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}

// Founder is a person associated with exactly one Startup.
type Founder struct {
	ID         int64
	StartupID  int64
	Name       string
	Title      string
	ProfileURL string
}

var batchPattern = regexp.MustCompile(`^([WSFX])(\d{2})$`)

// YearFromBatch derives the program year from a batch label such as "W23".
// Prefixes: W (winter), S (spring), F (fall, 2024 onwards), X (summer, 2025
// onwards). Returns false for labels outside the two-digit convention.
func YearFromBatch(batch string) (int, bool) {
	m := batchPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(batch)))
	if m == nil {
		return 0, false
	}
	year := 2000 + int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	switch m[1] {
	case "F":
		if year < 2024 {
			return 0, false
		}
	case "X":
		if year < 2025 {
			return 0, false
		}
	}
	return year, true
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveExternalID builds a stable identity for sources that expose no native
// company id. Name and batch are slugified together ("Stripe" + "S09" →
// "stripe-s09") so the same company resolves to the same entity every run.
func DeriveExternalID(name, batch string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	batch = strings.ToLower(strings.TrimSpace(batch))
	if batch == "" {
		return slug
	}
	return slug + "-" + batch
}
