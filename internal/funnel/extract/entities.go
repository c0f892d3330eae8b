// Package extract pulls structured details out of a single message with fixed
// pattern tables.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

type labeled struct {
	label   string
	pattern *regexp.Regexp
}

var contentTypePatterns = []labeled{
	{"short_film", regexp.MustCompile(`(?i)\b(short\s+film|short\s+video|short\s+clip|advertisement|\bad)\b`)},
	{"feature", regexp.MustCompile(`(?i)\b(feature\s+film|feature\s+length|full\s+length)\b`)},
	{"series", regexp.MustCompile(`(?i)\b(series|episode|web\s+series)\b`)},
	{"commercial", regexp.MustCompile(`(?i)\b(commercial|promo|trailer)\b`)},
}

var stylePatterns = []labeled{
	{"pixar_like", regexp.MustCompile(`(?i)\b(pixar|pixar-?like|pixar\s+style)\b`)},
	{"2d", regexp.MustCompile(`(?i)\b(2d|2-d|traditional\s+animation)\b`)},
	{"3d", regexp.MustCompile(`(?i)\b(3d|3-d|cgi)\b`)},
	{"cartoon", regexp.MustCompile(`(?i)\b(cartoon|cartoon\s+style)\b`)},
}

var platformPatterns = []labeled{
	{"youtube", regexp.MustCompile(`(?i)\byoutube\b`)},
	{"instagram", regexp.MustCompile(`(?i)\binstagram\b`)},
	{"tiktok", regexp.MustCompile(`(?i)\btiktok\b`)},
	{"facebook", regexp.MustCompile(`(?i)\bfacebook\b`)},
	{"tv", regexp.MustCompile(`(?i)\b(tv|television|broadcast)\b`)},
	{"theatrical", regexp.MustCompile(`(?i)\b(theatrical|cinema|theater)\b`)},
}

// "2 minutes", "2-minute", "30 sec", "1.5 hrs"
var durationPattern = regexp.MustCompile(`(?i)(?:^|\s)(\d+(?:\.\d+)?)\s*[-]?\s*(min(?:ute)?s?|sec(?:ond)?s?|hr(?:s?)|hour(?:s?))\b`)

// Entities are the conversation-level fields kept on the conversation record.
// Nil pointers mean "not found"; incomplete results are still stored.
type Entities struct {
	ContentType         *string  `json:"content_type"`
	Style               *string  `json:"style"`
	DurationMinutes     *float64 `json:"duration_minutes"`
	Platform            *string  `json:"platform"`
	RawDurationMentions []string `json:"raw_duration_mentions"`
}

// ExtractEntities runs the category matchers over text. Empty text yields an empty result.
func ExtractEntities(text string) Entities {
	out := Entities{RawDurationMentions: []string{}}
	if text == "" {
		return out
	}

	out.ContentType = firstLabel(contentTypePatterns, text)
	out.Style = firstLabel(stylePatterns, text)
	out.Platform = firstLabel(platformPatterns, text)

	for i, m := range durationPattern.FindAllStringSubmatch(text, -1) {
		mins := toMinutes(m[1], m[2])
		out.RawDurationMentions = append(out.RawDurationMentions,
			strings.TrimSpace(m[0])+" (~"+formatMinutes(mins)+" min)")
		if i == 0 {
			first := round(mins, 2)
			out.DurationMinutes = &first
		}
	}

	return out
}

// ToMap flattens entities for the extracted_fields column.
func (e Entities) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"content_type":          nil,
		"style":                 nil,
		"duration_minutes":      nil,
		"platform":              nil,
		"raw_duration_mentions": e.RawDurationMentions,
	}
	if e.ContentType != nil {
		m["content_type"] = *e.ContentType
	}
	if e.Style != nil {
		m["style"] = *e.Style
	}
	if e.DurationMinutes != nil {
		m["duration_minutes"] = *e.DurationMinutes
	}
	if e.Platform != nil {
		m["platform"] = *e.Platform
	}
	return m
}

func firstLabel(patterns []labeled, text string) *string {
	for _, p := range patterns {
		if p.pattern.MatchString(text) {
			label := p.label
			return &label
		}
	}
	return nil
}

func toMinutes(value, unit string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	unit = strings.ToLower(unit)
	switch {
	case strings.HasPrefix(unit, "sec"):
		return round(v/60, 2)
	case strings.HasPrefix(unit, "hr"), strings.HasPrefix(unit, "hour"):
		return v * 60
	default:
		return v
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// formatMinutes renders 2 as "2.0" and 0.5 as "0.5".
func formatMinutes(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
