package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/budget"
	"github.com/ternarybob/colligo/internal/services/extract"
	"github.com/ternarybob/colligo/internal/services/gdelt"
)

// gdeltEnvelope renders a candidate list the way the article index returns
// them.
func gdeltEnvelope(urls ...string) string {
	parts := make([]string, 0, len(urls))
	for _, u := range urls {
		parts = append(parts, fmt.Sprintf(`{"url":"%s","title":"t","domain":"example.com"}`, u))
	}
	return `{"articles":[` + strings.Join(parts, ",") + `]}`
}

func articlePage(body string) string {
	return fmt.Sprintf(`<html><head><title>T</title></head><body><article><p>%s</p></article></body></html>`, body)
}

func newTestCoordinator(t *testing.T, storage interfaces.StorageManager, gdeltURL string, unitTimeout time.Duration) (*Coordinator, *Tracker) {
	t.Helper()
	logger := arbor.NewLogger()

	client := gdelt.NewClient(
		gdelt.WithBaseURL(gdeltURL),
		gdelt.WithBatchInterval(time.Millisecond),
		gdelt.WithRetry(1, time.Millisecond),
	)
	aggregator := gdelt.NewAggregator(client, logger, &common.GdeltConfig{
		MaxQueryLength: 200,
		MaxRecords:     75,
	})

	extractCfg := &common.ExtractConfig{
		FetchTimeout: 2 * time.Second,
		UnitTimeout:  unitTimeout,
	}
	fetcher := extract.NewFetcher(extractCfg, logger)
	extractor := extract.NewExtractor(logger)
	gate := budget.NewGate(storage.Budget(), logger)
	tracker := NewTracker(storage.Jobs(), logger)
	worker := NewWorker(storage, fetcher, extractor, gate, tracker, extractCfg, logger)

	return NewCoordinator(context.Background(), storage, aggregator, gate, worker, tracker, logger), tracker
}

func seedTheme(t *testing.T, storage interfaces.StorageManager, dailyBudget int) *models.Theme {
	t.Helper()
	ctx := context.Background()
	theme := &models.Theme{
		ID:   "theme_1",
		Name: "Economy",
		Slug: "economy",
		Terms: []models.TopicTerm{
			{Name: "economy", Weight: 1},
		},
	}
	if err := storage.Themes().SaveTheme(ctx, theme); err != nil {
		t.Fatal(err)
	}
	config := &models.ThemeConfig{
		ThemeID:     theme.ID,
		Version:     1,
		DailyBudget: dailyBudget,
	}
	if err := storage.Themes().SaveConfig(ctx, config); err != nil {
		t.Fatal(err)
	}
	return theme
}

func waitForTerminal(t *testing.T, tracker *Tracker, jobID string) *StatusReport {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		report, err := tracker.Report(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Report failed: %v", err)
		}
		if report.Status.IsTerminal() {
			return report
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal status in time")
	return nil
}

func TestTriggerExtractsAllCandidates(t *testing.T) {
	articles := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage("Unique article body for "+r.URL.Path+". It has enough words to read like prose."))
	}))
	defer articles.Close()

	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, gdeltEnvelope(
			articles.URL+"/one",
			articles.URL+"/two",
			articles.URL+"/three",
		))
	}))
	defer index.Close()

	storage := testStorage(t)
	seedTheme(t, storage, 100)
	coordinator, tracker := newTestCoordinator(t, storage, index.URL, 10*time.Second)

	result, err := coordinator.Trigger(context.Background(), "economy", models.TriggerManual)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if result.Status != models.JobStatusRunning {
		t.Errorf("trigger status = %s, want running", result.Status)
	}
	if result.URLsFound != 3 {
		t.Errorf("URLsFound = %d, want 3", result.URLsFound)
	}

	report := waitForTerminal(t, tracker, result.JobID)
	if report.Status != models.JobStatusCompleted {
		t.Fatalf("job status = %s, want completed", report.Status)
	}
	if report.CompletedUnits != 3 || report.FailedUnits != 0 || report.SkippedUnits != 0 {
		t.Errorf("completed=%d failed=%d skipped=%d, want 3/0/0",
			report.CompletedUnits, report.FailedUnits, report.SkippedUnits)
	}
	if report.Progress != 100 {
		t.Errorf("progress = %d, want 100", report.Progress)
	}

	docs, err := storage.Documents().ListDocuments(context.Background(), &interfaces.DocumentListOptions{ThemeID: "theme_1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Errorf("expected 3 stored documents, got %d", len(docs))
	}

	// Every committed document consumed one budget unit.
	usage, err := storage.Budget().GetUsage(context.Background(), "theme_1", models.BudgetDay(time.Now()), 100)
	if err != nil {
		t.Fatal(err)
	}
	if usage.Used != 3 {
		t.Errorf("budget used = %d, want 3", usage.Used)
	}
}

func TestTriggerDuplicateContentSkipped(t *testing.T) {
	// Two URLs serving byte-identical articles: one wins, one is skipped.
	articles := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage("The exact same article syndicated to two different URLs."))
	}))
	defer articles.Close()

	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, gdeltEnvelope(articles.URL+"/mirror-a", articles.URL+"/mirror-b"))
	}))
	defer index.Close()

	storage := testStorage(t)
	seedTheme(t, storage, 100)
	coordinator, tracker := newTestCoordinator(t, storage, index.URL, 10*time.Second)

	result, err := coordinator.Trigger(context.Background(), "economy", models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	report := waitForTerminal(t, tracker, result.JobID)

	if report.CompletedUnits != 1 || report.SkippedUnits != 1 {
		t.Errorf("completed=%d skipped=%d, want 1/1", report.CompletedUnits, report.SkippedUnits)
	}

	units, err := storage.Jobs().GetScrapeJobs(context.Background(), result.JobID)
	if err != nil {
		t.Fatal(err)
	}
	for _, unit := range units {
		if unit.Status == models.ScrapeStatusSkipped && unit.SkipReason != models.SkipDuplicateContent {
			t.Errorf("skip reason = %s, want duplicate_content", unit.SkipReason)
		}
	}

	usage, _ := storage.Budget().GetUsage(context.Background(), "theme_1", models.BudgetDay(time.Now()), 100)
	if usage.Used != 1 {
		t.Errorf("only the committed document should consume budget, used = %d", usage.Used)
	}
}

func TestTriggerUnitTimeoutFailsUnitNotJob(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(500 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage("A fast article that extracts normally before any timeout."))
	}))
	defer slow.Close()

	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, gdeltEnvelope(slow.URL+"/fast", slow.URL+"/slow"))
	}))
	defer index.Close()

	storage := testStorage(t)
	seedTheme(t, storage, 100)
	coordinator, tracker := newTestCoordinator(t, storage, index.URL, 100*time.Millisecond)

	result, err := coordinator.Trigger(context.Background(), "economy", models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	report := waitForTerminal(t, tracker, result.JobID)

	// The slow unit fails; the job still completes.
	if report.Status != models.JobStatusCompleted {
		t.Fatalf("job status = %s, want completed", report.Status)
	}
	if report.FailedUnits != 1 || report.CompletedUnits != 1 {
		t.Errorf("completed=%d failed=%d, want 1/1", report.CompletedUnits, report.FailedUnits)
	}
}

func TestTriggerZeroCandidatesCompletesImmediately(t *testing.T) {
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"articles":[]}`)
	}))
	defer index.Close()

	storage := testStorage(t)
	seedTheme(t, storage, 100)
	coordinator, _ := newTestCoordinator(t, storage, index.URL, time.Second)

	result, err := coordinator.Trigger(context.Background(), "economy", models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.JobStatusCompleted {
		t.Fatalf("empty run should complete synchronously, got %s", result.Status)
	}

	job, err := storage.Jobs().GetJob(context.Background(), result.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.CompletionReason != models.CompletionNoCandidates {
		t.Errorf("reason = %s, want no_candidates", job.CompletionReason)
	}
}

func TestTriggerDegradedUpstreamCompletesDegraded(t *testing.T) {
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer index.Close()

	storage := testStorage(t)
	seedTheme(t, storage, 100)
	coordinator, _ := newTestCoordinator(t, storage, index.URL, time.Second)

	result, err := coordinator.Trigger(context.Background(), "economy", models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	job, err := storage.Jobs().GetJob(context.Background(), result.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusCompleted || job.CompletionReason != models.CompletionDegraded {
		t.Errorf("status=%s reason=%s, want completed/degraded", job.Status, job.CompletionReason)
	}
}

func TestTriggerUnknownTheme(t *testing.T) {
	storage := testStorage(t)
	coordinator, _ := newTestCoordinator(t, storage, "http://localhost:0", time.Second)

	if _, err := coordinator.Trigger(context.Background(), "nope", models.TriggerManual); err != models.ErrThemeNotFound {
		t.Fatalf("expected ErrThemeNotFound, got %v", err)
	}
}

func TestTriggerMissingConfigCreatesNoJob(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()
	theme := &models.Theme{ID: "theme_1", Name: "Economy", Slug: "economy", Terms: []models.TopicTerm{{Name: "economy", Weight: 1}}}
	if err := storage.Themes().SaveTheme(ctx, theme); err != nil {
		t.Fatal(err)
	}
	coordinator, _ := newTestCoordinator(t, storage, "http://localhost:0", time.Second)

	if _, err := coordinator.Trigger(ctx, "economy", models.TriggerManual); err != models.ErrConfigMissing {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
	count, err := storage.Jobs().CountJobs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("pre-flight failure must not create a job, found %d", count)
	}
}

func TestTriggerExhaustedBudgetCreatesNoJob(t *testing.T) {
	storage := testStorage(t)
	seedTheme(t, storage, 2)
	ctx := context.Background()

	day := models.BudgetDay(time.Now())
	for i := 0; i < 2; i++ {
		if _, _, err := storage.Budget().TryConsume(ctx, "theme_1", day, 2); err != nil {
			t.Fatal(err)
		}
	}

	coordinator, _ := newTestCoordinator(t, storage, "http://localhost:0", time.Second)
	if _, err := coordinator.Trigger(ctx, "economy", models.TriggerManual); err != models.ErrBudgetExhausted {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	count, _ := storage.Jobs().CountJobs(ctx)
	if count != 0 {
		t.Errorf("exhausted budget must not create a job, found %d", count)
	}
}
