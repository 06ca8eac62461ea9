package gdelt

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ternarybob/colligo/internal/models"
)

// DefaultQuery is emitted when a theme has no terms, so the upstream never
// receives an empty boolean expression.
const DefaultQuery = "news"

// BuildQueries renders weighted terms plus locale filters into one or more
// query strings of the form `(term1 OR term2) sourcelang:X sourcecountry:Y`.
//
// The OR-term portion is capped at maxTermLength characters; terms are
// sorted by descending weight and greedily packed, so heavier terms land in
// earlier batches and an overflowing term opens the next batch. Locale
// filters are appended to every batch with implicit AND (space separated) -
// the upstream parses space as AND and rejects an explicit AND keyword.
func BuildQueries(terms []models.TopicTerm, languages, regions []string, maxTermLength int) []string {
	suffix := localeSuffix(languages, regions)

	rendered := renderTerms(terms)
	if len(rendered) == 0 {
		return []string{DefaultQuery + suffix}
	}

	var queries []string
	var batch []string
	batchLen := 0
	for _, term := range rendered {
		// "(a OR b)" = terms + " OR " joiners + 2 parens
		next := batchLen + len(term)
		if len(batch) > 0 {
			next += len(" OR ")
		}
		if len(batch) > 0 && next+2 > maxTermLength {
			queries = append(queries, "("+strings.Join(batch, " OR ")+")"+suffix)
			batch = batch[:0]
			batchLen = 0
			next = len(term)
		}
		batch = append(batch, term)
		batchLen = next
	}
	if len(batch) > 0 {
		queries = append(queries, "("+strings.Join(batch, " OR ")+")"+suffix)
	}
	return queries
}

// renderTerms quotes phrases and orders terms by descending weight. Sorting
// is stable so equal-weight terms keep their configured order.
func renderTerms(terms []models.TopicTerm) []string {
	sorted := make([]models.TopicTerm, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	rendered := make([]string, 0, len(sorted))
	for _, term := range sorted {
		name := strings.TrimSpace(term.Name)
		if name == "" {
			continue
		}
		rendered = append(rendered, renderTerm(name))
	}
	return rendered
}

// renderTerm quotes terms containing whitespace or non-ASCII letters as
// phrases; single ASCII tokens stay bare.
func renderTerm(name string) string {
	needsQuotes := false
	for _, r := range name {
		if unicode.IsSpace(r) || r > unicode.MaxASCII {
			needsQuotes = true
			break
		}
	}
	if needsQuotes {
		return `"` + name + `"`
	}
	return name
}

// localeSuffix renders language and region filters. Multiple values become
// a parenthesized OR-group; a single value stays bare.
func localeSuffix(languages, regions []string) string {
	var sb strings.Builder
	if clause := filterClause("sourcelang", languages, LanguageName); clause != "" {
		sb.WriteString(" ")
		sb.WriteString(clause)
	}
	if clause := filterClause("sourcecountry", regions, CountryName); clause != "" {
		sb.WriteString(" ")
		sb.WriteString(clause)
	}
	return sb.String()
}

func filterClause(field string, codes []string, mapName func(string) string) string {
	var parts []string
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		parts = append(parts, field+":"+mapName(code))
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, " OR ") + ")"
	}
}
