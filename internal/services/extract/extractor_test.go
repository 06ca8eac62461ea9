package extract

import (
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Rates Held Steady - Example News</title>
	<meta property="og:title" content="Central Bank Holds Rates Steady">
	<meta property="article:published_time" content="2025-01-15T10:30:00Z">
	<script>trackPageView();</script>
</head>
<body>
	<nav>Home | Economy | Markets</nav>
	<article>
		<h1>Central Bank Holds Rates Steady</h1>
		<p>The central bank kept its benchmark rate unchanged on Wednesday.</p>
		<p>Analysts had widely expected the decision after inflation cooled.</p>
	</article>
	<footer>Copyright 2025</footer>
</body>
</html>`

func TestExtractArticleBody(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	result, err := extractor.Extract("https://example.com/article", articleHTML)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Title != "Central Bank Holds Rates Steady" {
		t.Errorf("og:title should win over <title>, got %q", result.Title)
	}
	if result.Method != "article" {
		t.Errorf("expected article selector, got %q", result.Method)
	}
	if !strings.Contains(result.Text, "benchmark rate unchanged") {
		t.Errorf("body text missing: %q", result.Text)
	}
	if strings.Contains(result.Text, "Home | Economy") {
		t.Errorf("nav chrome leaked into body text: %q", result.Text)
	}
	if strings.Contains(result.Text, "trackPageView") {
		t.Errorf("script content leaked into body text: %q", result.Text)
	}
	if result.PublishedAt == nil {
		t.Fatal("published date not extracted")
	}
	if result.PublishedAt.Year() != 2025 || result.PublishedAt.Hour() != 10 {
		t.Errorf("published date parsed wrong: %v", result.PublishedAt)
	}
	if result.Markdown == "" {
		t.Error("markdown rendering missing")
	}
}

func TestExtractFallsBackToBody(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	html := `<html><body><p>Plain page with no semantic markup at all.</p></body></html>`
	result, err := extractor.Extract("https://example.com", html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Method != "body" {
		t.Errorf("expected body fallback, got %q", result.Method)
	}
	if !strings.Contains(result.Text, "no semantic markup") {
		t.Errorf("text missing: %q", result.Text)
	}
}

func TestExtractEmptyPageIsError(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	if _, err := extractor.Extract("https://example.com", "<html><body></body></html>"); err == nil {
		t.Fatal("page without text must be an error")
	}
}

func TestExtractTitleFallbackChain(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	html := `<html><head><title>Doc Title</title></head><body><h1>Heading Title</h1><p>Some body text here.</p></body></html>`
	result, err := extractor.Extract("https://example.com", html)
	if err != nil {
		t.Fatal(err)
	}
	if result.Title != "Heading Title" {
		t.Errorf("h1 should beat <title>, got %q", result.Title)
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  hello\n\tworld  \n  again ")
	if got != "hello world again" {
		t.Errorf("NormalizeText = %q", got)
	}
	if NormalizeText("   \n\t ") != "" {
		t.Error("whitespace-only input should normalize to empty")
	}
}

func TestFingerprintIgnoresLayoutWhitespace(t *testing.T) {
	a := Fingerprint("The quick brown fox.")
	b := Fingerprint("The  quick\n brown\t fox.")
	if a != b {
		t.Error("fingerprints must match across whitespace variants")
	}
	if a == Fingerprint("A different article.") {
		t.Error("different content must not collide")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %d chars", len(a))
	}
}

func TestQualityScore(t *testing.T) {
	if got := QualityScore(""); got != 0 {
		t.Errorf("empty text score = %v", got)
	}

	// A full-length article with healthy sentence shape scores near 1.
	sentence := "The committee reviewed the latest inflation figures before voting on rates. "
	article := strings.Repeat(sentence, 30)
	if got := QualityScore(article); got < 0.9 {
		t.Errorf("long prose article scored %v, want >= 0.9", got)
	}

	// A short fragment scores well under it.
	if got := QualityScore("Click here"); got > 0.2 {
		t.Errorf("boilerplate fragment scored %v, want <= 0.2", got)
	}

	// Link-list shape (tiny words-per-sentence) loses the prose bonus.
	linkList := strings.Repeat("Read. More. Here. ", 50)
	prose := QualityScore(article)
	if QualityScore(linkList) >= prose {
		t.Error("link-list text should score below prose of similar length")
	}
}
