package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
)

const themeTOML = `
name = "Brazil Economy"
slug = "brazil-economy"
schedule = "0 */6 * * *"

[[terms]]
name = "inflation"
weight = 3

[[terms]]
name = "stock market"
weight = 1

[[domain_rules]]
domain = "example.com"
rule = "allow"

[config]
languages = ["pt"]
regions = ["BR"]
min_text_length = 400
min_quality_score = 0.4
daily_budget = 100
`

func writeThemeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadThemesFromFilesCreatesThemeAndConfig(t *testing.T) {
	db := testDB(t)
	storage := NewThemeStorage(db, arbor.NewLogger())
	ctx := context.Background()

	dir := t.TempDir()
	writeThemeFile(t, dir, "brazil.toml", themeTOML)

	if err := LoadThemesFromFiles(ctx, storage, dir, arbor.NewLogger()); err != nil {
		t.Fatalf("LoadThemesFromFiles failed: %v", err)
	}

	theme, err := storage.GetThemeBySlug(ctx, "brazil-economy")
	if err != nil {
		t.Fatalf("theme not created: %v", err)
	}
	if theme.Name != "Brazil Economy" || len(theme.Terms) != 2 {
		t.Errorf("unexpected theme: %+v", theme)
	}
	if theme.Schedule != "0 */6 * * *" {
		t.Errorf("schedule not loaded: %q", theme.Schedule)
	}

	config, err := storage.GetActiveConfig(ctx, theme.ID)
	if err != nil {
		t.Fatalf("config not created: %v", err)
	}
	if config.Version != 1 || config.DailyBudget != 100 || config.MinTextLength != 400 {
		t.Errorf("unexpected config: %+v", config)
	}
}

func TestLoadThemesFromFilesVersionsChangedConfig(t *testing.T) {
	db := testDB(t)
	storage := NewThemeStorage(db, arbor.NewLogger())
	ctx := context.Background()

	dir := t.TempDir()
	writeThemeFile(t, dir, "brazil.toml", themeTOML)

	if err := LoadThemesFromFiles(ctx, storage, dir, arbor.NewLogger()); err != nil {
		t.Fatal(err)
	}

	// Reloading the same file must not bump the version.
	if err := LoadThemesFromFiles(ctx, storage, dir, arbor.NewLogger()); err != nil {
		t.Fatal(err)
	}
	theme, _ := storage.GetThemeBySlug(ctx, "brazil-economy")
	config, err := storage.GetActiveConfig(ctx, theme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if config.Version != 1 {
		t.Fatalf("unchanged config should stay at v1, got v%d", config.Version)
	}

	// A changed budget appends a new version.
	changed := strings.Replace(themeTOML, "daily_budget = 100", "daily_budget = 250", 1)
	writeThemeFile(t, dir, "brazil.toml", changed)
	if err := LoadThemesFromFiles(ctx, storage, dir, arbor.NewLogger()); err != nil {
		t.Fatal(err)
	}
	config, err = storage.GetActiveConfig(ctx, theme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if config.Version != 2 || config.DailyBudget != 250 {
		t.Errorf("expected v2 with budget 250, got v%d budget=%d", config.Version, config.DailyBudget)
	}
}

func TestLoadThemesFromFilesRejectsUnknownKeys(t *testing.T) {
	db := testDB(t)
	storage := NewThemeStorage(db, arbor.NewLogger())
	ctx := context.Background()

	dir := t.TempDir()
	writeThemeFile(t, dir, "bad.toml", themeTOML+"\nmystery_knob = true\n")

	if err := LoadThemesFromFiles(ctx, storage, dir, arbor.NewLogger()); err != nil {
		t.Fatalf("loader should skip bad files, not fail: %v", err)
	}
	if _, err := storage.GetThemeBySlug(ctx, "brazil-economy"); err != models.ErrThemeNotFound {
		t.Errorf("file with unknown keys must be rejected whole, got %v", err)
	}
}

func TestLoadThemesFromFilesRejectsInvalidValues(t *testing.T) {
	db := testDB(t)
	storage := NewThemeStorage(db, arbor.NewLogger())
	ctx := context.Background()

	noTerms := `
name = "Empty"
slug = "empty"

[config]
daily_budget = 10
`
	dir := t.TempDir()
	writeThemeFile(t, dir, "empty.toml", noTerms)

	if err := LoadThemesFromFiles(ctx, storage, dir, arbor.NewLogger()); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.GetThemeBySlug(ctx, "empty"); err != models.ErrThemeNotFound {
		t.Errorf("theme without terms must be rejected, got %v", err)
	}
}

func TestLoadThemesFromFilesMissingDirIsNoop(t *testing.T) {
	db := testDB(t)
	storage := NewThemeStorage(db, arbor.NewLogger())

	err := LoadThemesFromFiles(context.Background(), storage, filepath.Join(t.TempDir(), "nope"), arbor.NewLogger())
	if err != nil {
		t.Fatalf("missing directory should be a no-op, got %v", err)
	}
}
