// Package collector drives one ingestion run: fetch a batch of crime
// articles, push each through the dedup/filter/classify/locate pipeline,
// persist surviving incidents, and audit the upstream call.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/averyc/sentinel/internal/classify"
	"github.com/averyc/sentinel/internal/location"
	"github.com/averyc/sentinel/internal/newsapi"
	"github.com/averyc/sentinel/internal/store"
)

// pageSize caps the articles requested per fetch.
const pageSize = 100

// searcher is the upstream article source, satisfied by *newsapi.Client.
// Interface for dependency injection (testing).
type searcher interface {
	Everything(ctx context.Context, since time.Time, pageSize int) ([]newsapi.Article, newsapi.CallStats, error)
}

// Summary aggregates one run's outcome for the caller. The run never
// raises for per-article problems; they surface here as counts and
// messages.
type Summary struct {
	Success           bool     `json:"success"`
	ArticlesFound     int      `json:"articles_found"`
	ArticlesProcessed int      `json:"articles_processed"`
	Errors            []string `json:"errors"`
}

// Collector runs the ingestion pipeline against a store and an upstream
// article source.
type Collector struct {
	store    *store.Store
	news     searcher
	taxonomy *classify.Taxonomy
	logger   *log.Logger
	now      func() time.Time
}

// New creates a Collector. A nil taxonomy uses the defaults.
func New(st *store.Store, news searcher, taxonomy *classify.Taxonomy, logger *log.Logger) *Collector {
	if taxonomy == nil {
		taxonomy = classify.DefaultTaxonomy()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		store:    st,
		news:     news,
		taxonomy: taxonomy,
		logger:   logger,
		now:      time.Now,
	}
}

// Collect performs one ingestion run over the lookback window.
//
// Transport failures are fatal: the run writes one audit row and returns
// a failed Summary without touching incidents. Per-article failures are
// recovered locally; processing continues and the messages are collected
// into the Summary and the audit row.
func (c *Collector) Collect(ctx context.Context, hoursBack int) Summary {
	since := c.now().Add(-time.Duration(hoursBack) * time.Hour)

	articles, stats, err := c.news.Everything(ctx, since, pageSize)
	if err != nil {
		msg := fmt.Sprintf("API request failed: %v", err)
		c.logger.Error("fetch failed", "status", stats.Status, "err", err)

		// No HTTP status means the request never completed; audit it as
		// a server-side failure the way per-run exceptions are logged.
		status := stats.Status
		if status == 0 {
			status = 500
		}
		c.writeAuditRow(stats, status, 0, 0, []string{msg})

		return Summary{Success: false, Errors: []string{msg}}
	}

	var errs []string
	processed := 0
	for _, a := range articles {
		ok, err := c.processArticle(a)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if ok {
			processed++
		}
	}

	c.writeAuditRow(stats, stats.Status, len(articles), processed, errs)

	c.logger.Info("collection complete",
		"found", len(articles),
		"processed", processed,
		"errors", len(errs),
		"elapsed", stats.Elapsed,
	)

	return Summary{
		Success:           true,
		ArticlesFound:     len(articles),
		ArticlesProcessed: processed,
		Errors:            errs,
	}
}

// processArticle runs one article through the pipeline. Returns true when
// an incident was persisted. Expected rejections (incomplete article,
// duplicate URL, filtered content) return (false, nil); only persistence
// failures return an error.
func (c *Collector) processArticle(a newsapi.Article) (bool, error) {
	// Eligibility: title, URL, and published timestamp must be present.
	if a.Title == "" || a.URL == "" || a.PublishedAt == "" {
		return false, nil
	}
	publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return false, nil
	}

	// Dedup gate, pre-classification.
	exists, err := c.store.HasIncidentURL(a.URL)
	if err != nil {
		return false, fmt.Errorf("dedup lookup for %s: %w", a.URL, err)
	}
	if exists {
		return false, nil
	}

	result := c.taxonomy.Classify(a.Title, a.Description)
	if result.Type == classify.TypeFilteredOut {
		return false, nil
	}

	loc := location.Extract(a.Title + " " + a.Description)

	src, err := c.store.FindOrCreateSource(a.Source)
	if err != nil {
		return false, fmt.Errorf("resolve source %q: %w", a.Source, err)
	}

	_, err = c.store.InsertIncident(store.Incident{
		Title:        a.Title,
		Description:  a.Description,
		URL:          a.URL,
		SourceID:     src.ID,
		State:        loc.State,
		City:         loc.City,
		CrimeType:    result.Type,
		Severity:     result.Severity,
		PublishedAt:  publishedAt,
		DiscoveredAt: c.now().UTC(),
		Confidence:   result.Confidence,
	})
	if err == store.ErrDuplicateURL {
		// Lost the race to a concurrent run; the incident exists, which
		// is all the dedup gate promises.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persist incident %s: %w", a.URL, err)
	}

	c.logger.Debug("incident stored",
		"type", result.Type,
		"severity", result.Severity,
		"confidence", result.Confidence,
		"url", a.URL,
	)
	return true, nil
}

// writeAuditRow appends the single api_logs row for this run's fetch.
// Audit failures are logged, never propagated: losing an audit row must
// not fail a run that already ingested incidents.
func (c *Collector) writeAuditRow(stats newsapi.CallStats, status, found, processed int, errs []string) {
	var errText *string
	if len(errs) > 0 {
		joined := strings.Join(errs, "; ")
		errText = &joined
	}

	err := c.store.InsertAPILog(store.APILog{
		Endpoint:          stats.Endpoint,
		Query:             stats.Params,
		Status:            status,
		ResponseTimeMS:    stats.Elapsed.Milliseconds(),
		ArticlesFound:     found,
		ArticlesProcessed: processed,
		Errors:            errText,
	})
	if err != nil {
		c.logger.Error("audit log write failed", "err", err)
	}
}
