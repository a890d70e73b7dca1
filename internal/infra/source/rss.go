package source

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"startup-radar/internal/domain/entity"
	"startup-radar/internal/resilience/circuitbreaker"
	"startup-radar/internal/resilience/retry"
	"startup-radar/internal/usecase/normalize"
	"startup-radar/internal/usecase/reconcile"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// RSSSource reads company announcements from an RSS/Atom feed. Some
// accelerators publish new cohort companies as feed entries where the title
// carries the name and location and the body carries the description, so
// each entry maps to one raw record.
type RSSSource struct {
	name           string
	feedURL        string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSSource creates a new RSSSource with the given HTTP client.
// It automatically configures circuit breaker and retry logic.
func NewRSSSource(name, feedURL string, client *http.Client) *RSSSource {
	return &RSSSource{
		name:           name,
		feedURL:        feedURL,
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

func (r *RSSSource) Name() string { return r.name }

// Open fetches the whole feed up front and iterates over its entries.
// Feeds carry no batch labels, so a year filter yields nothing unless the
// entry category happens to be a parseable batch label.
func (r *RSSSource) Open(ctx context.Context, opts reconcile.FetchOptions) (reconcile.RecordIterator, error) {
	if err := validateFetchURL(r.feedURL); err != nil {
		return nil, err
	}

	var feed *gofeed.Feed
	retryErr := retry.WithBackoff(ctx, r.retryConfig, func() error {
		cbResult, err := r.circuitBreaker.Execute(func() (interface{}, error) {
			return r.doFetch(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("source", r.name),
					slog.String("url", r.feedURL),
					slog.String("state", r.circuitBreaker.State().String()))
				return err
			}
			return err
		}
		feed = cbResult.(*gofeed.Feed)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	records := make([]*normalize.RawRecord, 0, len(feed.Items))
	for _, it := range feed.Items {
		rec := itemToRecord(it)
		if rec == nil {
			continue
		}
		if opts.Year != 0 {
			year, ok := entity.YearFromBatch(rec.Batch)
			if !ok || year != opts.Year {
				continue
			}
		}
		records = append(records, rec)
	}
	return newSliceIterator(records), nil
}

func (r *RSSSource) doFetch(ctx context.Context) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = r.client
	return fp.ParseURLWithContext(r.feedURL, ctx)
}

// itemToRecord maps one feed entry to a raw record. The title line joins the
// body so the normalizer sees the same multi-line blob shape a directory
// card produces.
func itemToRecord(it *gofeed.Item) *normalize.RawRecord {
	title := strings.TrimSpace(it.Title)
	if title == "" {
		return nil
	}

	// Content優先、なければDescriptionを使用
	body := strings.TrimSpace(it.Content)
	if body == "" {
		body = strings.TrimSpace(it.Description)
	}

	text := title
	if body != "" {
		text = title + "\n" + body
	}

	rec := &normalize.RawRecord{
		Text: text,
		URL:  strings.TrimSpace(it.Link),
	}
	for _, cat := range it.Categories {
		cat = strings.TrimSpace(cat)
		if cat == "" {
			continue
		}
		// バッチラベルに見えるカテゴリはバッチとして扱う
		if _, ok := entity.YearFromBatch(cat); ok && rec.Batch == "" {
			rec.Batch = cat
			continue
		}
		rec.Tags = append(rec.Tags, cat)
	}
	if it.GUID != "" {
		rec.ExternalID = strings.TrimSpace(it.GUID)
	}
	return rec
}
