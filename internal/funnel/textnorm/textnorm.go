// Package textnorm cleans transcript text before it reaches the classifier and
// the extractor. Every function is idempotent.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"funnel-workers/internal/models"
)

// DefaultLanguage is reported for every text; only English is handled.
const DefaultLanguage = "en"

var (
	whitespace = regexp.MustCompile(`\s+`)

	fillers = regexp.MustCompile(`(?i)\b(uh+|um+|hmm+|hm+|ah+|er+|eh+|like\s+|you\s+know\s+|I\s+mean\s+)\b`)

	numberWords = map[string]string{
		"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
		"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
		"ten": "10", "eleven": "11", "twelve": "12", "fifteen": "15",
		"twenty": "20", "thirty": "30", "forty": "40", "fifty": "50",
		"hundred": "100", "half": "0.5", "quarter": "0.25",
	}

	// "five minutes" -> "5 minutes"
	numberWordUnit = regexp.MustCompile(`(?i)\b(zero|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|fifteen|twenty|thirty|forty|fifty|hundred|half|quarter)\s+(minute|minutes|min|sec|second|seconds|hr|hour|hours)\b`)
)

// NormalizeText applies NFC, collapses whitespace and trims.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	t := norm.NFC.String(text)
	return strings.TrimSpace(whitespace.ReplaceAllString(t, " "))
}

// NormalizeTurns returns the raw transcript, the clean text and the normalized turns.
// Raw joins the original texts; clean joins the non-empty normalized texts.
func NormalizeTurns(turns []models.SpeakerTurn) (string, string, []models.SpeakerTurn) {
	raw := make([]string, 0, len(turns))
	clean := make([]string, 0, len(turns))
	normalized := make([]models.SpeakerTurn, 0, len(turns))

	for _, t := range turns {
		raw = append(raw, t.Text)
		n := NormalizeText(t.Text)
		if n != "" {
			clean = append(clean, n)
		}
		normalized = append(normalized, models.SpeakerTurn{
			SpeakerID: t.SpeakerID,
			Text:      n,
			Timestamp: t.Timestamp,
		})
	}

	return strings.Join(raw, "\n"), strings.Join(clean, "\n"), normalized
}

// RemoveFillers replaces hesitation words with a space.
func RemoveFillers(text string) string {
	return fillers.ReplaceAllString(text, " ")
}

// NormalizeNumberWords rewrites number words that precede a duration unit as digits.
func NormalizeNumberWords(text string) string {
	return numberWordUnit.ReplaceAllStringFunc(text, func(m string) string {
		parts := numberWordUnit.FindStringSubmatch(m)
		return numberWords[strings.ToLower(parts[1])] + " " + parts[2]
	})
}

// DetectLanguage always reports English.
func DetectLanguage(string) string {
	return DefaultLanguage
}

// Preprocess removes fillers, normalizes number words and collapses whitespace.
func Preprocess(text string) (string, string) {
	if text == "" {
		return "", DefaultLanguage
	}
	t := NormalizeNumberWords(RemoveFillers(text))
	t = strings.TrimSpace(whitespace.ReplaceAllString(t, " "))
	return t, DetectLanguage(t)
}
