package gdelt

import (
	"strings"
	"testing"

	"github.com/ternarybob/colligo/internal/models"
)

func TestBuildQueriesSplitsBatchesAtCeiling(t *testing.T) {
	terms := []models.TopicTerm{
		{Name: "stock market", Weight: 3},
		{Name: "GDP", Weight: 2},
		{Name: "ações", Weight: 1},
	}

	queries := BuildQueries(terms, nil, nil, 30)
	if len(queries) < 2 {
		t.Fatalf("expected multiple batches, got %d: %v", len(queries), queries)
	}

	for _, q := range queries {
		if len(q) > 30 {
			t.Errorf("batch exceeds ceiling: %q (%d chars)", q, len(q))
		}
	}

	// Heaviest term lands in the first batch.
	if !strings.Contains(queries[0], `"stock market"`) {
		t.Errorf("first batch should carry the heaviest term: %q", queries[0])
	}
}

func TestBuildQueriesQuotesPhrasesAndNonASCII(t *testing.T) {
	terms := []models.TopicTerm{
		{Name: "GDP", Weight: 2},
		{Name: "stock market", Weight: 1},
		{Name: "ações", Weight: 1},
	}

	queries := BuildQueries(terms, nil, nil, 200)
	if len(queries) != 1 {
		t.Fatalf("expected one batch, got %d", len(queries))
	}
	q := queries[0]

	if !strings.Contains(q, `"stock market"`) {
		t.Errorf("multi-word term not quoted: %q", q)
	}
	if !strings.Contains(q, `"ações"`) {
		t.Errorf("non-ASCII term not quoted: %q", q)
	}
	if strings.Contains(q, `"GDP"`) {
		t.Errorf("single ASCII token should stay bare: %q", q)
	}
}

func TestBuildQueriesLanguageFilter(t *testing.T) {
	terms := []models.TopicTerm{{Name: "economy", Weight: 1}}

	queries := BuildQueries(terms, []string{"pt", "en"}, nil, 200)
	if len(queries) != 1 {
		t.Fatalf("expected one batch, got %d", len(queries))
	}
	q := queries[0]

	if !strings.Contains(q, "(sourcelang:portuguese OR sourcelang:english)") {
		t.Errorf("missing language OR-group: %q", q)
	}
	if strings.Contains(q, " AND ") {
		t.Errorf("query must never contain an explicit AND: %q", q)
	}
}

func TestBuildQueriesSingleLocaleStaysBare(t *testing.T) {
	terms := []models.TopicTerm{{Name: "economy", Weight: 1}}

	queries := BuildQueries(terms, []string{"pt"}, []string{"BR"}, 200)
	q := queries[0]

	if !strings.Contains(q, " sourcelang:portuguese") {
		t.Errorf("missing bare language filter: %q", q)
	}
	if !strings.Contains(q, " sourcecountry:brazil") {
		t.Errorf("missing bare country filter: %q", q)
	}
	if strings.Contains(q, "(sourcelang") || strings.Contains(q, "(sourcecountry") {
		t.Errorf("single-value filters should not be parenthesized: %q", q)
	}
}

func TestBuildQueriesZeroTermsEmitsDefault(t *testing.T) {
	queries := BuildQueries(nil, []string{"en"}, nil, 200)
	if len(queries) != 1 {
		t.Fatalf("expected one default query, got %d", len(queries))
	}
	if !strings.HasPrefix(queries[0], DefaultQuery) {
		t.Errorf("expected default query, got %q", queries[0])
	}
}

func TestBuildQueriesLocaleAppendedToEveryBatch(t *testing.T) {
	terms := []models.TopicTerm{
		{Name: "inflation report quarterly", Weight: 3},
		{Name: "central bank decision", Weight: 2},
		{Name: "currency devaluation", Weight: 1},
	}

	queries := BuildQueries(terms, []string{"en"}, nil, 30)
	if len(queries) < 2 {
		t.Fatalf("expected multiple batches, got %d", len(queries))
	}
	for _, q := range queries {
		if !strings.Contains(q, "sourcelang:english") {
			t.Errorf("batch missing locale filter: %q", q)
		}
	}
}

func TestLanguageAndCountryNames(t *testing.T) {
	if got := LanguageName("pt"); got != "portuguese" {
		t.Errorf("LanguageName(pt) = %q", got)
	}
	if got := LanguageName("PT"); got != "portuguese" {
		t.Errorf("LanguageName(PT) = %q", got)
	}
	if got := LanguageName("xx"); got != "xx" {
		t.Errorf("unknown code should fall through lowercased, got %q", got)
	}
	if got := CountryName("BR"); got != "brazil" {
		t.Errorf("CountryName(BR) = %q", got)
	}
	if got := CountryName("us"); got != "unitedstates" {
		t.Errorf("CountryName(us) = %q", got)
	}
}
