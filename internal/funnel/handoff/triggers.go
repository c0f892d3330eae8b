// Package handoff decides when a conversation should go to a human agent.
package handoff

import (
	"regexp"

	"funnel-workers/internal/models"
)

// ConfidenceThreshold is the intent confidence below which a human is asked to review.
const ConfidenceThreshold = 0.5

const (
	ReasonLowConfidence = "low_confidence"
	ReasonComplaint     = "complaint_intent"
	ReasonFrustration   = "frustration_detected"
)

var frustrationPattern = regexp.MustCompile(
	`(?i)\b(frustrated|angry|terrible|worst|horrible|unacceptable|ridiculous|again\?|still not)\b`,
)

// Evaluate returns whether a human should take over and why. A nil confidence
// means the conversation was never classified.
func Evaluate(confidence *float64, intent models.Intent, fullText string) (bool, []string) {
	reasons := []string{}
	if confidence != nil && *confidence < ConfidenceThreshold {
		reasons = append(reasons, ReasonLowConfidence)
	}
	if intent == models.IntentComplaintIssue {
		reasons = append(reasons, ReasonComplaint)
	}
	if fullText != "" && frustrationPattern.MatchString(fullText) {
		reasons = append(reasons, ReasonFrustration)
	}
	return len(reasons) > 0, reasons
}
