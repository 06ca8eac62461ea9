package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes whitespace-normalized text for content deduplication.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// QualityScore rates extracted text on a 0..1 scale. The score is a cheap
// deterministic heuristic: enough length to be an article, sentence
// structure, and a reasonable words-per-sentence shape. It exists so theme
// configs can set a floor below which extractions are treated as failed.
func QualityScore(text string) float64 {
	text = NormalizeText(text)
	if text == "" {
		return 0
	}

	score := 0.0

	// Length: ramps up to 0.5 at 2000 characters.
	length := float64(len(text))
	lengthScore := length / 2000.0
	if lengthScore > 1 {
		lengthScore = 1
	}
	score += 0.5 * lengthScore

	// Sentence structure: ramps up to 0.3 at 10 sentences.
	sentences := countSentences(text)
	sentenceScore := float64(sentences) / 10.0
	if sentenceScore > 1 {
		sentenceScore = 1
	}
	score += 0.3 * sentenceScore

	// Prose shape: full marks for 8-40 words per sentence. Outside that
	// range the text reads like a link list or a wall of boilerplate.
	words := len(strings.Fields(text))
	if sentences > 0 {
		wps := float64(words) / float64(sentences)
		if wps >= 8 && wps <= 40 {
			score += 0.2
		} else if wps > 4 && wps < 60 {
			score += 0.1
		}
	}

	return score
}

func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	return count
}
