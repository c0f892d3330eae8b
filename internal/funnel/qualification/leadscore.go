package qualification

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"funnel-workers/internal/models"
)

var intentWeight = map[models.Intent]float64{
	models.IntentNewProjectSales:      40,
	models.IntentPriceEstimation:      30,
	models.IntentGeneralServicesQuery: 10,
	models.IntentComplaintIssue:       5,
	models.IntentCareerHiring:         5,
	models.IntentSuggestionFeedback:   5,
	models.IntentUnknownChitchat:      0,
}

// keyed by number of missing required slots
var completenessPoints = map[int]float64{0: 30, 1: 20, 2: 10}

const (
	budgetProvided = 20
	budgetRange    = 15
	budgetRefused  = 5
	budgetNone     = 0

	engagementMax   = 10
	closureBonus    = 4
	hotThreshold    = 80
	warmThreshold   = 50
	maxLeadScore    = 100
	noRequiredScore = 30
)

var budgetSlots = []string{"budget_or_range", "budget_expectation"}

var rangePattern = regexp.MustCompile(`(?i)\b(to|–|-|and|between)\b|\d+\s*k\s*[-–]\s*\d+`)

// LeadScore sums intent weight, slot completeness, budget signal and engagement.
// fullText is accepted for transcript-level signals; the current model uses none.
func (e *Evaluator) LeadScore(st models.ConversationState, numTurns int, fullText string) models.LeadScoreResult {
	required := e.registry.RequiredSlots(st.Intent.Or(e.fallback))

	allFilled := len(required) > 0
	for _, slot := range required {
		if !isFilled(st, slot) {
			allFilled = false
			break
		}
	}

	b := models.LeadBreakdown{
		IntentWeight:      intentWeight[st.Intent.Or(models.IntentUnknownChitchat)],
		SlotCompleteness:  slotCompleteness(st, required),
		BudgetSignal:      budgetSignal(st),
		EngagementQuality: engagement(numTurns, allFilled),
	}

	total := b.IntentWeight + b.SlotCompleteness + b.BudgetSignal + b.EngagementQuality
	total = round1(math.Max(0, math.Min(maxLeadScore, total)))
	b.Total = total

	return models.LeadScoreResult{Score: total, Band: Band(total), Breakdown: b}
}

// Band maps a score onto hot, warm or cold.
func Band(score float64) models.LeadBand {
	switch {
	case score >= hotThreshold:
		return models.BandHot
	case score >= warmThreshold:
		return models.BandWarm
	default:
		return models.BandCold
	}
}

// slotCompleteness does not count refused slots as missing.
func slotCompleteness(st models.ConversationState, required []string) float64 {
	if len(required) == 0 {
		return noRequiredScore
	}
	missing := 0
	for _, slot := range required {
		if !isFilled(st, slot) && st.GetSlot(slot).Status != models.SlotRefused {
			missing++
		}
	}
	return completenessPoints[missing]
}

// budgetSignal reads the first budget slot that is not missing.
func budgetSignal(st models.ConversationState) float64 {
	for _, slot := range budgetSlots {
		sv := st.GetSlot(slot)
		switch sv.Status {
		case models.SlotMissing:
			continue
		case models.SlotRefused:
			return budgetRefused
		case models.SlotFilled:
			if !sv.HasValue() {
				continue
			}
			if IsBudgetRange(valueString(sv.Value)) {
				return budgetRange
			}
			return budgetProvided
		default:
			return budgetNone
		}
	}
	return budgetNone
}

// IsBudgetRange reports whether a budget answer names a range rather than a figure.
func IsBudgetRange(value string) bool {
	v := strings.TrimSpace(value)
	if rangePattern.MatchString(v) {
		return true
	}
	return strings.Contains(strings.ToLower(v), " to ") || strings.Contains(v, " - ") || strings.Contains(v, "–")
}

func engagement(numTurns int, allRequiredFilled bool) float64 {
	score := 0.0
	switch {
	case numTurns >= 4:
		score = 6
	case numTurns >= 2:
		score = 3
	}
	if allRequiredFilled {
		score += closureBonus
	}
	return math.Min(engagementMax, score)
}

func valueString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
