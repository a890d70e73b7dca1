package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"startup-radar/internal/observability/metrics"
	"startup-radar/internal/resilience/circuitbreaker"
	"startup-radar/internal/resilience/retry"
	"startup-radar/internal/usecase/normalize"
	"startup-radar/internal/usecase/reconcile"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Selectors holds the CSS selectors used to pull company cards out of a
// directory page. Only Card and Text are required; the rest degrade to
// absent fields when empty or unmatched.
type Selectors struct {
	Card     string `yaml:"card"`
	Text     string `yaml:"text"`
	Link     string `yaml:"link"`
	Logo     string `yaml:"logo"`
	Tag      string `yaml:"tag"`
	TeamSize string `yaml:"team_size"`
	Status   string `yaml:"status"`
	Founder  string `yaml:"founder"`
}

// DirectorySource scrapes a batch-organized accelerator directory. The
// directory is paginated by batch label (W24, S24, ...), one page per batch,
// and each page lists company cards whose body is one unstructured text blob.
type DirectorySource struct {
	name           string
	pageURL        string // must contain one %s, replaced with the batch label
	firstYear      int
	selectors      Selectors
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	limiter        *rate.Limiter
}

// NewDirectorySource creates a DirectorySource with the given HTTP client.
// It automatically configures circuit breaker, retry logic and a polite
// per-page rate limit.
func NewDirectorySource(name, pageURL string, firstYear int, sel Selectors, client *http.Client) *DirectorySource {
	return &DirectorySource{
		name:           name,
		pageURL:        pageURL,
		firstYear:      firstYear,
		selectors:      sel,
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.DirectoryFetchConfig()),
		retryConfig:    retry.DirectoryFetchConfig(),
		limiter:        rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

func (d *DirectorySource) Name() string { return d.name }

// Open expands the batch labels to visit and returns an iterator that
// fetches one batch page at a time.
func (d *DirectorySource) Open(ctx context.Context, opts reconcile.FetchOptions) (reconcile.RecordIterator, error) {
	if !strings.Contains(d.pageURL, "%s") {
		return nil, fmt.Errorf("directory %s: page URL has no batch placeholder: %s", d.name, d.pageURL)
	}
	batches := expandBatches(d.firstYear, opts.Year, time.Now())
	if len(batches) == 0 {
		return nil, fmt.Errorf("directory %s: no batches for year %d", d.name, opts.Year)
	}
	return &directoryIterator{src: d, batches: batches, limit: opts.Limit}, nil
}

// expandBatches lists the batch labels for the requested year, or for every
// program year when year is zero. Fall batches exist from 2024 and summer
// batches from 2025, matching the label convention.
func expandBatches(firstYear, year int, now time.Time) []string {
	from, to := firstYear, now.Year()
	if from < 2005 {
		from = 2005
	}
	if year != 0 {
		from, to = year, year
	}

	var batches []string
	for y := from; y <= to; y++ {
		yy := y % 100
		batches = append(batches, fmt.Sprintf("W%02d", yy), fmt.Sprintf("S%02d", yy))
		if y >= 2024 {
			batches = append(batches, fmt.Sprintf("F%02d", yy))
		}
		if y >= 2025 {
			batches = append(batches, fmt.Sprintf("X%02d", yy))
		}
	}
	return batches
}

// directoryIterator walks batch pages lazily: the next page is fetched only
// once every record of the current one has been yielded.
type directoryIterator struct {
	src     *DirectorySource
	batches []string
	pending []*normalize.RawRecord
	yielded int
	limit   int
}

func (it *directoryIterator) Next(ctx context.Context) (*normalize.RawRecord, error) {
	for len(it.pending) == 0 {
		if len(it.batches) == 0 {
			return nil, reconcile.ErrEndOfRecords
		}
		// リミット到達後は残りのバッチページを取得しない
		if it.limit > 0 && it.yielded >= it.limit {
			return nil, reconcile.ErrEndOfRecords
		}
		batch := it.batches[0]
		it.batches = it.batches[1:]

		records, err := it.src.fetchBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		it.pending = records
	}

	rec := it.pending[0]
	it.pending = it.pending[1:]
	it.yielded++
	return rec, nil
}

func (it *directoryIterator) Close() error {
	it.pending = nil
	it.batches = nil
	return nil
}

// fetchBatch retrieves one batch page through the rate limiter, retry logic
// and circuit breaker, and extracts its company cards.
func (d *DirectorySource) fetchBatch(ctx context.Context, batch string) ([]*normalize.RawRecord, error) {
	pageURL := fmt.Sprintf(d.pageURL, batch)
	if err := validateFetchURL(pageURL); err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var records []*normalize.RawRecord
	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.doFetch(ctx, pageURL, batch)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("directory fetch circuit breaker open, request rejected",
					slog.String("source", d.name),
					slog.String("url", pageURL),
					slog.String("state", d.circuitBreaker.State().String()))
				return err
			}
			return err
		}
		records = cbResult.([]*normalize.RawRecord)
		return nil
	})

	if retryErr != nil {
		metrics.RecordDirectoryFetch(d.name, "error")
		return nil, fmt.Errorf("fetch batch %s: %w", batch, retryErr)
	}
	metrics.RecordDirectoryFetch(d.name, "success")

	slog.Debug("directory batch fetched",
		slog.String("source", d.name),
		slog.String("batch", batch),
		slog.Int("records", len(records)))
	return records, nil
}

// doFetch performs the actual page fetch without retry or circuit breaker.
func (d *DirectorySource) doFetch(ctx context.Context, pageURL, batch string) ([]*normalize.RawRecord, error) {
	doc, err := fetchDocument(ctx, d.client, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch HTML failed: %w", err)
	}
	return d.extractRecords(doc, batch), nil
}

// extractRecords pulls company cards out of the page. A page with no cards
// is an empty batch, not an error: directories legitimately publish batch
// pages before announcing companies.
func (d *DirectorySource) extractRecords(doc *goquery.Document, batch string) []*normalize.RawRecord {
	var records []*normalize.RawRecord
	doc.Find(d.selectors.Card).Each(func(_ int, card *goquery.Selection) {
		rec := &normalize.RawRecord{Batch: batch}

		if d.selectors.Text != "" {
			rec.Text = strings.TrimSpace(card.Find(d.selectors.Text).Text())
		}
		if rec.Text == "" {
			rec.Text = strings.TrimSpace(card.Text())
		}
		if rec.Text == "" {
			return // 空のカードはスキップ
		}

		if d.selectors.Link != "" {
			if href, ok := card.Find(d.selectors.Link).Attr("href"); ok {
				rec.URL = strings.TrimSpace(href)
			}
		}
		if d.selectors.Logo != "" {
			if src, ok := card.Find(d.selectors.Logo).Attr("src"); ok {
				rec.LogoURL = strings.TrimSpace(src)
			}
		}
		if d.selectors.Tag != "" {
			card.Find(d.selectors.Tag).Each(func(_ int, tag *goquery.Selection) {
				if t := strings.TrimSpace(tag.Text()); t != "" {
					rec.Tags = append(rec.Tags, t)
				}
			})
		}
		if d.selectors.TeamSize != "" {
			rec.TeamSize = strings.TrimSpace(card.Find(d.selectors.TeamSize).Text())
		}
		if d.selectors.Status != "" {
			rec.Status = strings.TrimSpace(card.Find(d.selectors.Status).Text())
		}
		if d.selectors.Founder != "" {
			card.Find(d.selectors.Founder).Each(func(_ int, f *goquery.Selection) {
				name := strings.TrimSpace(f.Text())
				if name == "" {
					return
				}
				founder := normalize.RawFounder{Name: name}
				if href, ok := f.Attr("href"); ok {
					founder.ProfileURL = strings.TrimSpace(href)
				}
				rec.Founders = append(rec.Founders, founder)
			})
		}
		if id, ok := card.Attr("data-company-id"); ok {
			rec.ExternalID = strings.TrimSpace(id)
		}

		records = append(records, rec)
	})
	return records
}
