package reconcile

import (
	"context"
	"fmt"
	"time"

	"startup-radar/internal/domain/entity"
	"startup-radar/internal/usecase/normalize"
)

// Decision classifies the outcome of reconciling one record against the
// stored state.
type Decision int

const (
	// DecisionUnchanged means the stored fingerprint matched; no write.
	DecisionUnchanged Decision = iota
	// DecisionInserted means no startup with this identity existed.
	DecisionInserted
	// DecisionUpdated means the fingerprint differed and the startup was
	// rewritten, founders replaced wholesale.
	DecisionUpdated
)

// String returns the decision name for logs and metrics labels.
func (d Decision) String() string {
	switch d {
	case DecisionInserted:
		return "inserted"
	case DecisionUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// reconcileOne applies the insert/update/skip decision for one normalized
// record. The identity key always includes the source, so records from
// different sources never merge even when their derived ids collide.
// The repository makes each write atomic for this single startup.
func (s *Service) reconcileOne(ctx context.Context, source string, rec *normalize.NormalizedRecord) (Decision, error) {
	existing, err := s.startups.FindByIdentity(ctx, source, rec.ExternalID)
	if err != nil {
		return DecisionUnchanged, fmt.Errorf("find startup by identity: %w", err)
	}

	fp := Fingerprint(rec)
	now := time.Now()

	if existing == nil {
		st := buildStartup(source, rec, fp, now)
		if err := st.Validate(); err != nil {
			return DecisionUnchanged, fmt.Errorf("validate startup: %w", err)
		}
		if err := s.startups.Insert(ctx, st); err != nil {
			return DecisionUnchanged, fmt.Errorf("insert startup: %w", err)
		}
		return DecisionInserted, nil
	}

	if existing.Fingerprint == fp {
		return DecisionUnchanged, nil
	}

	st := buildStartup(source, rec, fp, now)
	st.ID = existing.ID
	st.CreatedAt = existing.CreatedAt
	if err := s.startups.Update(ctx, st); err != nil {
		return DecisionUnchanged, fmt.Errorf("update startup: %w", err)
	}
	return DecisionUpdated, nil
}

// buildStartup maps a normalized record to a persistable entity.
func buildStartup(source string, rec *normalize.NormalizedRecord, fingerprint string, now time.Time) *entity.Startup {
	founders := make([]entity.Founder, len(rec.Founders))
	copy(founders, rec.Founders)

	return &entity.Startup{
		Source:      source,
		ExternalID:  rec.ExternalID,
		Name:        rec.Name,
		Description: rec.Description,
		URL:         rec.URL,
		LogoURL:     rec.LogoURL,
		Batch:       rec.Batch,
		Status:      rec.Status,
		Tags:        rec.Tags,
		TeamSize:    rec.TeamSize,
		Location:    rec.Location,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		UpdatedAt:   now,
		Founders:    founders,
	}
}
