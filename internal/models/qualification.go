package models

type CompletenessStatus string

const (
	CompletenessComplete   CompletenessStatus = "complete"
	CompletenessActionable CompletenessStatus = "actionable"
	CompletenessIncomplete CompletenessStatus = "incomplete"
	CompletenessInfoOnly   CompletenessStatus = "info_only"
)

// Qualifies reports whether a lead record should be written for this status.
func (s CompletenessStatus) Qualifies() bool {
	return s == CompletenessComplete || s == CompletenessActionable
}

type CompletenessResult struct {
	Percent          int                `json:"completeness_pct"`
	MandatoryMissing []string           `json:"mandatory_missing"`
	Status           CompletenessStatus `json:"completeness_status"`
}

type LeadBand string

const (
	BandCold LeadBand = "cold"
	BandWarm LeadBand = "warm"
	BandHot  LeadBand = "hot"
)

// LeadBreakdown carries the four sub-scores and their clamped total.
type LeadBreakdown struct {
	IntentWeight      float64 `json:"A_intent_weight"`
	SlotCompleteness  float64 `json:"B_slot_completeness"`
	BudgetSignal      float64 `json:"C_budget_signal"`
	EngagementQuality float64 `json:"D_engagement_quality"`
	Total             float64 `json:"total"`
}

type LeadScoreResult struct {
	Score     float64       `json:"lead_score"`
	Band      LeadBand      `json:"lead_band"`
	Breakdown LeadBreakdown `json:"lead_breakdown"`
}

// IntentResult is the classifier output.
type IntentResult struct {
	PrimaryIntent Intent   `json:"primary_intent"`
	Confidence    float64  `json:"confidence"`
	SecondaryTags []string `json:"secondary_tags"`
	IsTentative   bool     `json:"is_tentative"`
}

// NextQuestion is the single follow-up chosen for a turn.
type NextQuestion struct {
	Slot     string `json:"slot"`
	Question string `json:"question"`
}
