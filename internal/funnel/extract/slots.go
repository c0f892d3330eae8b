package extract

import (
	"regexp"
	"strings"
	"time"

	"funnel-workers/internal/models"
)

// DefaultConfidence is the confidence assigned to every pattern-based candidate.
const DefaultConfidence = 0.8

const maxCaptureLen = 200

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my name is|i'm|i am|this is|call me)\s+([A-Za-z][A-Za-z\s\-']{1,48})\b`),
	regexp.MustCompile(`(?i)\b(?:name|contact)\s*[:\s]+\s*([A-Za-z][A-Za-z\s\-']{1,48})\b`),
}

// The leading \b keeps "in" from matching inside words such as "Spain today".
var countryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:from|based in|in|we're in|located in)\s+([A-Za-z][A-Za-z\s\-']{1,48})\b`),
	regexp.MustCompile(`(?i)\b(?:country|region)\s*[:\s]+\s*([A-Za-z][A-Za-z\s\-']{1,48})\b`),
}

var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)budget\s*(?:is|of)?\s*[:\s]*([0-9,]+\s*(?:k|K|USD|usd|\$|dollars?)?)`),
	regexp.MustCompile(`(?i)(?:around|about)\s+([0-9,]+\s*(?:k|K|USD|usd|\$|dollars?))`),
}

var timelinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:by|before|deadline|need it by)\s+([A-Za-z0-9\s,]+?)(?:\.|$|\s+and)`),
	regexp.MustCompile(`(?i)timeline\s*[:\s]+\s*([A-Za-z0-9\s,]+?)(?:\.|$)`),
}

// entityToSlot maps conversation entities onto slot names.
var entityToSlot = []struct {
	slot string
	get  func(Entities) interface{}
}{
	{"project_type", func(e Entities) interface{} { return derefString(e.ContentType) }},
	{"animation_type", func(e Entities) interface{} { return derefString(e.Style) }},
	{"approx_duration", func(e Entities) interface{} { return derefFloat(e.DurationMinutes) }},
	{"usage", func(e Entities) interface{} { return derefString(e.Platform) }},
}

// Extractor turns one message into slot candidates. It is stateless.
type Extractor struct {
	now func() time.Time
}

// NewExtractor returns an extractor stamping candidates with now.
func NewExtractor(now func() time.Time) *Extractor {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Extractor{now: now}
}

// ExtractSlots returns slot name -> filled candidate for every slot text mentions.
func (x *Extractor) ExtractSlots(text, sourceID string, confidence float64) map[string]models.SlotValue {
	out := make(map[string]models.SlotValue)
	if strings.TrimSpace(text) == "" {
		return out
	}

	ts := x.now()
	candidate := func(v interface{}) models.SlotValue {
		return models.SlotValue{
			Value:      v,
			Status:     models.SlotFilled,
			Confidence: confidence,
			Source:     sourceID,
			Timestamp:  &ts,
		}
	}

	entities := ExtractEntities(text)
	for _, m := range entityToSlot {
		v := m.get(entities)
		if v == nil {
			continue
		}
		out[m.slot] = candidate(v)
		if m.slot == "approx_duration" {
			out["duration"] = out[m.slot]
		}
	}

	if name := firstCapture(namePatterns, text); name != "" {
		out["name"] = candidate(name)
		out["caller_name"] = candidate(name)
	}
	if country := firstCapture(countryPatterns, text); country != "" {
		out["country_location"] = candidate(country)
	}
	if budget := firstCapture(budgetPatterns, text); budget != "" {
		out["budget_or_range"] = candidate(budget)
	}
	if deadline := firstCapture(timelinePatterns, text); deadline != "" {
		out["deadline"] = candidate(deadline)
	}

	return out
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(m[1])
		if len(v) > maxCaptureLen {
			v = v[:maxCaptureLen]
		}
		return v
	}
	return ""
}

func derefString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func derefFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
