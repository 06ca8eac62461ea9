package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/budget"
	"github.com/ternarybob/colligo/internal/services/extract"
)

// outcome is a unit's terminal result before it is persisted.
type outcome struct {
	status     models.ScrapeStatus
	skipReason models.SkipReason
	errMsg     string
	documentID string
	method     string
}

// Worker processes one scrape job end to end: fetch, extract, dedupe,
// budget, persist. Whatever happens inside - errors, timeouts, panics - the
// unit always reaches a terminal status and the parent is always notified,
// because a unit stuck in "scraping" would block its job from ever
// completing.
type Worker struct {
	storage     interfaces.StorageManager
	fetcher     *extract.Fetcher
	extractor   *extract.Extractor
	gate        *budget.Gate
	tracker     *Tracker
	logger      arbor.ILogger
	unitTimeout time.Duration
}

// NewWorker creates a Worker.
func NewWorker(storage interfaces.StorageManager, fetcher *extract.Fetcher, extractor *extract.Extractor, gate *budget.Gate, tracker *Tracker, cfg *common.ExtractConfig, logger arbor.ILogger) *Worker {
	timeout := cfg.UnitTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Worker{
		storage:     storage,
		fetcher:     fetcher,
		extractor:   extractor,
		gate:        gate,
		tracker:     tracker,
		logger:      logger,
		unitTimeout: timeout,
	}
}

// Process runs one unit to a terminal status. The whole operation is
// bounded by the unit timeout, independent of the fetcher's own timeout.
func (w *Worker) Process(ctx context.Context, unit *models.ScrapeJob, config *models.ThemeConfig) {
	runCtx, cancel := context.WithTimeout(ctx, w.unitTimeout)
	defer cancel()

	started := time.Now()

	var result *outcome
	defer func() {
		if r := recover(); r != nil {
			result = &outcome{
				status: models.ScrapeStatusFailed,
				errMsg: fmt.Sprintf("panic during extraction: %v", r),
			}
		}
		w.finalize(unit, result, started)
	}()

	// pending -> scraping, marked before any network work.
	now := time.Now()
	unit.Status = models.ScrapeStatusScraping
	unit.StartedAt = &now
	if err := w.storage.Jobs().SaveScrapeJob(context.WithoutCancel(runCtx), unit); err != nil {
		w.logger.Warn().Err(err).Str("unit_id", unit.ID).Msg("Failed to mark unit scraping")
	}

	result = w.run(runCtx, unit, config)
}

// run performs the extraction pipeline and returns the terminal outcome.
// It never writes the terminal status itself; that is finalize's job.
func (w *Worker) run(ctx context.Context, unit *models.ScrapeJob, config *models.ThemeConfig) *outcome {
	canonical, err := common.CanonicalURL(unit.URL)
	if err != nil {
		return &outcome{status: models.ScrapeStatusFailed, errMsg: fmt.Sprintf("invalid url: %v", err)}
	}
	unit.CanonicalURL = canonical

	html, err := w.fetcher.Fetch(ctx, unit.URL)
	if err != nil {
		return &outcome{status: models.ScrapeStatusFailed, errMsg: fmt.Sprintf("fetch failed: %v", err)}
	}

	extraction, err := w.extractor.Extract(unit.URL, html)
	if err != nil {
		return &outcome{status: models.ScrapeStatusFailed, errMsg: fmt.Sprintf("extraction failed: %v", err)}
	}
	if ctx.Err() != nil {
		return &outcome{status: models.ScrapeStatusFailed, errMsg: "unit timed out during extraction", method: extraction.Method}
	}

	if config.MinTextLength > 0 && len(extraction.Text) < config.MinTextLength {
		return &outcome{
			status: models.ScrapeStatusFailed,
			errMsg: fmt.Sprintf("text too short: %d < %d characters", len(extraction.Text), config.MinTextLength),
			method: extraction.Method,
		}
	}

	score := extract.QualityScore(extraction.Text)
	if config.MinQualityScore > 0 && score < config.MinQualityScore {
		return &outcome{
			status: models.ScrapeStatusFailed,
			errMsg: fmt.Sprintf("quality score %.2f below floor %.2f", score, config.MinQualityScore),
			method: extraction.Method,
		}
	}

	fingerprint := extract.Fingerprint(extraction.Text)

	// Cheap pre-check; the atomic arbiter is CreateIfAbsent below.
	exists, err := w.storage.Documents().HasFingerprint(ctx, unit.ThemeID, fingerprint)
	if err != nil {
		return &outcome{status: models.ScrapeStatusFailed, errMsg: fmt.Sprintf("fingerprint check failed: %v", err), method: extraction.Method}
	}
	if exists {
		return &outcome{status: models.ScrapeStatusSkipped, skipReason: models.SkipDuplicateContent, method: extraction.Method}
	}

	publishedAt := extraction.PublishedAt
	if publishedAt == nil {
		publishedAt = unit.SeenAt
	}

	doc := &models.ExtractedDocument{
		ID:               common.NewDocumentID(),
		ThemeID:          unit.ThemeID,
		ScrapeJobID:      unit.ID,
		JobID:            unit.JobID,
		URL:              unit.URL,
		CanonicalURL:     canonical,
		SourceDomain:     common.SourceDomain(unit.URL),
		Title:            extraction.Title,
		Text:             extraction.Text,
		ContentMarkdown:  extraction.Markdown,
		TextLength:       len(extraction.Text),
		QualityScore:     score,
		Fingerprint:      fingerprint,
		ExtractionMethod: extraction.Method,
		PublishedAt:      publishedAt,
		ScrapedAt:        time.Now(),
	}

	created, err := w.storage.Documents().CreateIfAbsent(ctx, doc)
	if err != nil {
		return &outcome{status: models.ScrapeStatusFailed, errMsg: fmt.Sprintf("document save failed: %v", err), method: extraction.Method}
	}
	if !created {
		// A sibling claimed the fingerprint between pre-check and create.
		return &outcome{status: models.ScrapeStatusSkipped, skipReason: models.SkipDuplicateContent, method: extraction.Method}
	}

	// Only committed documents consume budget. When the gate refuses, the
	// document is rolled back so used == stored documents stays true.
	admitted, err := w.gate.Consume(ctx, unit.ThemeID, config.DailyBudget)
	if err != nil || !admitted {
		if delErr := w.storage.Documents().Delete(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			w.logger.Error().Err(delErr).Str("doc_id", doc.ID).Msg("Failed to roll back document after budget refusal")
		}
		if err != nil {
			return &outcome{status: models.ScrapeStatusFailed, errMsg: fmt.Sprintf("budget check failed: %v", err), method: extraction.Method}
		}
		return &outcome{status: models.ScrapeStatusSkipped, skipReason: models.SkipBudgetExhausted, method: extraction.Method}
	}

	return &outcome{status: models.ScrapeStatusExtracted, documentID: doc.ID, method: extraction.Method}
}

// finalize durably records the terminal status and attempt, then notifies
// the tracker. It runs on a fresh context: the unit timeout may already
// have fired, and an unrecorded terminal status would wedge the parent.
// This is the single notification point - no terminal path bypasses it.
func (w *Worker) finalize(unit *models.ScrapeJob, result *outcome, started time.Time) {
	if result == nil {
		result = &outcome{status: models.ScrapeStatusFailed, errMsg: "worker produced no result"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	unit.Status = result.status
	unit.SkipReason = result.skipReason
	unit.Error = result.errMsg
	unit.DocumentID = result.documentID
	unit.CompletedAt = &now

	if err := w.storage.Jobs().SaveScrapeJob(ctx, unit); err != nil {
		w.logger.Error().Err(err).Str("unit_id", unit.ID).Msg("Failed to persist unit terminal status")
	}

	strategy := result.method
	if strategy == "" {
		strategy = "fetch"
	}
	attempt := &models.ExtractionAttempt{
		ID:          common.NewAttemptID(),
		ScrapeJobID: unit.ID,
		JobID:       unit.JobID,
		Strategy:    strategy,
		Error:       result.errMsg,
		StartedAt:   started,
		Duration:    now.Sub(started),
	}
	if err := w.storage.Jobs().SaveAttempt(ctx, attempt); err != nil {
		w.logger.Warn().Err(err).Str("unit_id", unit.ID).Msg("Failed to persist extraction attempt")
	}

	w.logger.Debug().
		Str("unit_id", unit.ID).
		Str("status", string(result.status)).
		Dur("duration", attempt.Duration).
		Msg("Unit finished")

	w.tracker.OnUnitTerminal(ctx, unit.JobID)
}
