package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"funnel-workers/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		confidence  *float64
		intent      models.Intent
		text        string
		wantHuman   bool
		wantReasons []string
	}{
		{"confident sales lead", ptr(0.9), models.IntentNewProjectSales, "I need a 2d explainer", false, []string{}},
		{"unclassified", nil, "", "", false, []string{}},
		{"low confidence", ptr(0.33), models.IntentPriceEstimation, "how much", true, []string{ReasonLowConfidence}},
		{"threshold is exclusive", ptr(0.5), models.IntentPriceEstimation, "", false, []string{}},
		{"complaint", ptr(1), models.IntentComplaintIssue, "the delivery was late", true, []string{ReasonComplaint}},
		{"frustration", ptr(0.67), models.IntentNewProjectSales, "This is RIDICULOUS, still not delivered", true, []string{ReasonFrustration}},
		{"all three", ptr(0.2), models.IntentComplaintIssue, "worst service ever", true, []string{ReasonLowConfidence, ReasonComplaint, ReasonFrustration}},
		{"substring is not a match", ptr(0.9), models.IntentNewProjectSales, "we want an angryBirds style", false, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			human, reasons := Evaluate(tt.confidence, tt.intent, tt.text)
			assert.Equal(t, tt.wantHuman, human)
			assert.Equal(t, tt.wantReasons, reasons)
		})
	}
}
