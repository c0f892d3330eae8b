// Package qualification grades a conversation snapshot: how complete the
// mandatory capture is, and how good a sales lead it represents. The two are
// deliberately separate; a refused slot hurts completeness but not the lead.
package qualification

import (
	"math"

	"funnel-workers/internal/models"
)

// RequiredSlotSource yields the mandatory slots of an intent.
type RequiredSlotSource interface {
	RequiredSlots(intent models.Intent) []string
}

type Evaluator struct {
	registry RequiredSlotSource
	fallback models.Intent
}

func NewEvaluator(registry RequiredSlotSource, fallback models.Intent) *Evaluator {
	if fallback == "" {
		fallback = models.IntentNewProjectSales
	}
	return &Evaluator{registry: registry, fallback: fallback}
}

func isFilled(st models.ConversationState, slot string) bool {
	sv := st.GetSlot(slot)
	return sv.Status == models.SlotFilled && sv.HasValue()
}

// Completeness reports the share of required slots captured. Refused slots stay
// in the missing list; unavailable ones are dropped from it.
func (e *Evaluator) Completeness(st models.ConversationState) models.CompletenessResult {
	required := e.registry.RequiredSlots(st.Intent.Or(e.fallback))
	if len(required) == 0 {
		return models.CompletenessResult{
			Percent:          100,
			MandatoryMissing: []string{},
			Status:           models.CompletenessInfoOnly,
		}
	}

	missing := []string{}
	filled := 0
	for _, slot := range required {
		if isFilled(st, slot) {
			filled++
			continue
		}
		if st.GetSlot(slot).Status != models.SlotUnavailable {
			missing = append(missing, slot)
		}
	}

	pct := int(math.Round(100 * float64(filled) / float64(len(required))))
	pct = clampInt(pct, 0, 100)

	status := models.CompletenessIncomplete
	switch {
	case len(missing) == 0:
		status = models.CompletenessComplete
	case len(missing) <= 2:
		status = models.CompletenessActionable
	}

	return models.CompletenessResult{Percent: pct, MandatoryMissing: missing, Status: status}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
