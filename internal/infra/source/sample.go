package source

import (
	"context"

	"startup-radar/internal/domain/entity"
	"startup-radar/internal/usecase/normalize"
	"startup-radar/internal/usecase/reconcile"
)

// SampleSource yields a fixed set of company records bundled with the
// binary. It exists for local development and smoke runs against a fresh
// database without touching any real directory.
type SampleSource struct {
	name    string
	records []*normalize.RawRecord
}

// NewSampleSource creates a SampleSource backed by the bundled record set.
func NewSampleSource(name string) *SampleSource {
	return &SampleSource{name: name, records: sampleRecords}
}

func (s *SampleSource) Name() string { return s.name }

func (s *SampleSource) Open(ctx context.Context, opts reconcile.FetchOptions) (reconcile.RecordIterator, error) {
	filtered := make([]*normalize.RawRecord, 0, len(s.records))
	for _, rec := range s.records {
		if opts.Year != 0 {
			year, ok := entity.YearFromBatch(rec.Batch)
			if !ok || year != opts.Year {
				continue
			}
		}
		filtered = append(filtered, rec)
	}
	return newSliceIterator(filtered), nil
}

// sampleRecords mirrors the blob shapes real directories emit: multi-line
// cards, single-line cards with dash separators, and cards where the
// location line is missing or ambiguous.
var sampleRecords = []*normalize.RawRecord{
	{
		Text:     "Lumenly\nSan Francisco, CA\nCollaborative spreadsheet with real-time code execution for data teams.",
		Batch:    "W24",
		URL:      "https://lumenly.example.com",
		TeamSize: "11-50",
		Tags:     []string{"Developer Tools", "B2B"},
	},
	{
		Text:  "Ferrite Labs, Boston, MA - Battery chemistry simulation software for grid storage manufacturers.",
		Batch: "W24",
		Tags:  []string{"Climate", "Energy"},
		Founders: []normalize.RawFounder{
			{Name: "Dana Whitfield", Title: "CEO"},
			{Name: "Marco Alves", Title: "CTO"},
		},
	},
	{
		Text:     "Parcelo\nLagos, Nigeria\nLast-mile delivery routing for African e-commerce.",
		Batch:    "S24",
		Status:   "Active",
		TeamSize: "7",
		Tags:     []string{"Logistics"},
	},
	{
		Text:  "Quillback – AI-native customer support inbox that drafts replies from your docs.",
		Batch: "F24",
		Tags:  []string{"AI", "SaaS"},
	},
	{
		Text:  "Hearthstone Robotics\nRemote\nKitchen automation arms for mid-size restaurant chains.",
		Batch: "X25",
		URL:   "https://hearthstone.example.com",
	},
	{
		Text:     "Veldt\nPlatform for managing carbon credit portfolios across registries.",
		Batch:    "S23",
		TeamSize: "2-10",
		Tags:     []string{"Climate", "Fintech"},
	},
	{
		Text:   "Nimbara Health, Austin, TX – Remote patient monitoring for rural clinics.",
		Batch:  "W23",
		Status: "Acquired",
		Tags:   []string{"Healthcare"},
	},
}
