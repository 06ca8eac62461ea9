package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

func testStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func seedJob(t *testing.T, storage interfaces.StorageManager, jobID string, unitStatuses []models.ScrapeStatus) {
	t.Helper()
	ctx := context.Background()
	job := &models.IngestionJob{
		ID:        jobID,
		ThemeID:   "theme_1",
		Status:    models.JobStatusRunning,
		CreatedAt: time.Now(),
	}
	if err := storage.Jobs().SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	for i, status := range unitStatuses {
		unit := &models.ScrapeJob{
			ID:      fmt.Sprintf("%s-unit-%d", jobID, i),
			JobID:   jobID,
			ThemeID: "theme_1",
			URL:     "https://example.com",
			Status:  status,
		}
		if err := storage.Jobs().SaveScrapeJob(ctx, unit); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReportProgressFloors(t *testing.T) {
	storage := testStorage(t)
	tracker := NewTracker(storage.Jobs(), arbor.NewLogger())
	ctx := context.Background()

	cases := []struct {
		name     string
		statuses []models.ScrapeStatus
		want     int
	}{
		{"all pending", []models.ScrapeStatus{models.ScrapeStatusPending, models.ScrapeStatusPending}, 2},
		{"actively scraping", []models.ScrapeStatus{models.ScrapeStatusScraping, models.ScrapeStatusPending}, 5},
		{"half done", []models.ScrapeStatus{models.ScrapeStatusExtracted, models.ScrapeStatusPending}, 50},
		{"all terminal pre-transition", []models.ScrapeStatus{models.ScrapeStatusExtracted, models.ScrapeStatusFailed}, 99},
	}

	for i, tc := range cases {
		jobID := fmt.Sprintf("job_%d", i)
		seedJob(t, storage, jobID, tc.statuses)
		report, err := tracker.Report(ctx, jobID)
		if err != nil {
			t.Fatalf("%s: Report failed: %v", tc.name, err)
		}
		if report.Progress != tc.want {
			t.Errorf("%s: progress = %d, want %d", tc.name, report.Progress, tc.want)
		}
	}
}

func TestReportCountsSkippedSeparately(t *testing.T) {
	storage := testStorage(t)
	tracker := NewTracker(storage.Jobs(), arbor.NewLogger())

	seedJob(t, storage, "job_1", []models.ScrapeStatus{
		models.ScrapeStatusExtracted,
		models.ScrapeStatusSkipped,
		models.ScrapeStatusFailed,
	})

	report, err := tracker.Report(context.Background(), "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if report.CompletedUnits != 1 {
		t.Errorf("CompletedUnits must count only extractions, got %d", report.CompletedUnits)
	}
	if report.SkippedUnits != 1 || report.FailedUnits != 1 {
		t.Errorf("skipped=%d failed=%d", report.SkippedUnits, report.FailedUnits)
	}
}

func TestReportUnknownJob(t *testing.T) {
	storage := testStorage(t)
	tracker := NewTracker(storage.Jobs(), arbor.NewLogger())

	if _, err := tracker.Report(context.Background(), "job_missing"); err != models.ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestOnUnitTerminalCompletesJob(t *testing.T) {
	storage := testStorage(t)
	tracker := NewTracker(storage.Jobs(), arbor.NewLogger())
	ctx := context.Background()

	seedJob(t, storage, "job_1", []models.ScrapeStatus{
		models.ScrapeStatusExtracted,
		models.ScrapeStatusScraping,
	})

	// One sibling still running: no transition.
	tracker.OnUnitTerminal(ctx, "job_1")
	job, err := storage.Jobs().GetJob(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusRunning {
		t.Fatalf("job completed early: %s", job.Status)
	}

	// Last sibling lands.
	unit, err := storage.Jobs().GetScrapeJob(ctx, "job_1-unit-1")
	if err != nil {
		t.Fatal(err)
	}
	unit.Status = models.ScrapeStatusFailed
	if err := storage.Jobs().SaveScrapeJob(ctx, unit); err != nil {
		t.Fatal(err)
	}
	tracker.OnUnitTerminal(ctx, "job_1")

	job, err = storage.Jobs().GetJob(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("job should be completed, got %s", job.Status)
	}
	if job.CompletionReason != models.CompletionOK {
		t.Errorf("reason = %s, want ok", job.CompletionReason)
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if job.ExtractedUnits != 1 || job.FailedUnits != 1 {
		t.Errorf("snapshot counters wrong: extracted=%d failed=%d", job.ExtractedUnits, job.FailedUnits)
	}

	report, err := tracker.Report(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if report.Progress != 100 {
		t.Errorf("terminal job progress = %d, want 100", report.Progress)
	}
}

func TestOnUnitTerminalConcurrentIsIdempotent(t *testing.T) {
	storage := testStorage(t)
	tracker := NewTracker(storage.Jobs(), arbor.NewLogger())
	ctx := context.Background()

	seedJob(t, storage, "job_1", []models.ScrapeStatus{
		models.ScrapeStatusExtracted,
		models.ScrapeStatusExtracted,
		models.ScrapeStatusSkipped,
	})

	// Every unit's completion path fires the re-check; only one transition
	// may land.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.OnUnitTerminal(ctx, "job_1")
		}()
	}
	wg.Wait()

	job, err := storage.Jobs().GetJob(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("job should be completed, got %s", job.Status)
	}
	firstCompleted := *job.CompletedAt

	// A late straggler call must not touch the completed job.
	tracker.OnUnitTerminal(ctx, "job_1")
	job, _ = storage.Jobs().GetJob(ctx, "job_1")
	if !job.CompletedAt.Equal(firstCompleted) {
		t.Error("late re-check overwrote completion timestamp")
	}
}

func TestOnUnitTerminalKeepsPresetReason(t *testing.T) {
	storage := testStorage(t)
	tracker := NewTracker(storage.Jobs(), arbor.NewLogger())
	ctx := context.Background()

	seedJob(t, storage, "job_1", []models.ScrapeStatus{models.ScrapeStatusExtracted})

	job, _ := storage.Jobs().GetJob(ctx, "job_1")
	job.CompletionReason = models.CompletionDegraded
	if err := storage.Jobs().SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	tracker.OnUnitTerminal(ctx, "job_1")
	job, _ = storage.Jobs().GetJob(ctx, "job_1")
	if job.CompletionReason != models.CompletionDegraded {
		t.Errorf("pre-set completion reason overwritten: %s", job.CompletionReason)
	}
}
