// Package intent scores text against per-intent trigger patterns.
package intent

import (
	"math"
	"strings"

	"funnel-workers/internal/models"
)

const (
	// matchesForFullConfidence is the number of distinct pattern hits that saturate confidence.
	matchesForFullConfidence = 3.0

	// NoSignalConfidence is reported when nothing matched.
	NoSignalConfidence = 0.2

	// DefaultTentativeTurns is how many opening turns feed the tentative intent.
	DefaultTentativeTurns = 3
)

// Classifier is stateless and safe for concurrent use.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Score is the confidence of one intent before the winner is picked.
type Score struct {
	Intent     models.Intent
	Confidence float64
}

// Scores returns the confidence of every intent in table order.
func (c *Classifier) Scores(text string) []Score {
	lower := strings.ToLower(text)
	norm := normalize(text)

	out := make([]Score, 0, len(signals))
	for _, s := range signals {
		count := 0
		for _, p := range s.patterns {
			if p.MatchString(lower) || p.MatchString(norm) {
				count++
			}
		}
		out = append(out, Score{Intent: s.intent, Confidence: math.Min(1, float64(count)/matchesForFullConfidence)})
	}
	return out
}

// Classify returns the final intent of text.
func (c *Classifier) Classify(text string) models.IntentResult {
	return c.detect(text, false)
}

// ClassifyTentative classifies the opening turns of a conversation.
func (c *Classifier) ClassifyTentative(text string) models.IntentResult {
	return c.detect(text, true)
}

func (c *Classifier) detect(text string, tentative bool) models.IntentResult {
	if strings.TrimSpace(text) == "" {
		return models.IntentResult{
			PrimaryIntent: models.IntentUnknownChitchat,
			Confidence:    0,
			SecondaryTags: []string{},
			IsTentative:   tentative,
		}
	}

	primary, confidence := pickPrimary(c.Scores(text))
	return models.IntentResult{
		PrimaryIntent: primary,
		Confidence:    confidence,
		SecondaryTags: Tags(text),
		IsTentative:   tentative,
	}
}

// pickPrimary keeps the first maximum so ties go to the earlier intent.
func pickPrimary(scores []Score) (models.Intent, float64) {
	best := Score{Confidence: -1}
	for _, s := range scores {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	if best.Confidence <= 0 {
		return models.IntentUnknownChitchat, NoSignalConfidence
	}
	return best.Intent, math.Round(best.Confidence*100) / 100
}

// Tags returns the secondary content tags mentioned in text.
func Tags(text string) []string {
	tags := []string{}
	for _, t := range tagPatterns {
		if t.pattern.MatchString(text) {
			tags = append(tags, t.tag)
		}
	}
	return tags
}

// normalize lowercases, collapses runs of a repeated character ("heyyy" -> "hey")
// and splits "i2d"/"i3d" so the 2d/3d patterns see them.
func normalize(text string) string {
	t := strings.TrimSpace(strings.ToLower(text))
	if t == "" {
		return t
	}

	var b strings.Builder
	b.Grow(len(t))
	var prev rune = -1
	for _, r := range t {
		if r != prev {
			b.WriteRune(r)
		}
		prev = r
	}

	t = i2dPattern.ReplaceAllString(b.String(), "i 2d")
	return i3dPattern.ReplaceAllString(t, "i 3d")
}
