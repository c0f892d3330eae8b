package models

import (
	"fmt"
	"time"
)

// ProcessingRun is an append-only record of one state build.
type ProcessingRun struct {
	RunID             int64                  `json:"run_id"`
	ConversationID    string                 `json:"conversation_id"`
	CreatedAt         time.Time              `json:"created_at"`
	NLPOutput         map[string]interface{} `json:"nlp_output,omitempty"`
	State             ConversationState      `json:"state"`
	CompletenessPct   int                    `json:"completeness_pct"`
	MandatoryMissing  []string               `json:"mandatory_missing"`
	CompletenessLabel CompletenessStatus     `json:"completeness_label"`
	LeadScore         float64                `json:"lead_score"`
	LeadBand          LeadBand               `json:"lead_band"`
	LeadBreakdown     LeadBreakdown          `json:"lead_breakdown"`
}

// LeadRecord is written when a build reaches an actionable or complete status.
type LeadRecord struct {
	LeadID            int64                `json:"lead_id"`
	ConversationID    string               `json:"conversation_id"`
	CreatedAt         time.Time            `json:"created_at"`
	Intent            Intent               `json:"intent"`
	Slots             map[string]SlotValue `json:"slots"`
	CompletenessPct   int                  `json:"completeness_pct"`
	CompletenessLabel CompletenessStatus   `json:"completeness_label"`
	LeadScore         float64              `json:"lead_score"`
	LeadBand          LeadBand             `json:"lead_band"`
	LeadBreakdown     LeadBreakdown        `json:"lead_breakdown"`
}

type HumanActionKind string

const (
	ActionClose   HumanActionKind = "close"
	ActionConvert HumanActionKind = "convert"
	ActionNone    HumanActionKind = "none"
)

// HumanAction records a takeover or a manual correction.
type HumanAction struct {
	ActionID        int64                  `json:"action_id"`
	ConversationID  string                 `json:"conversation_id"`
	CreatedAt       time.Time              `json:"created_at"`
	TriggerReason   string                 `json:"trigger_reason,omitempty"`
	CorrectedIntent Intent                 `json:"corrected_intent,omitempty"`
	FilledSlots     map[string]interface{} `json:"filled_slots,omitempty"`
	Action          HumanActionKind        `json:"action"`
	Notes           string                 `json:"notes,omitempty"`
}

// DashboardRow is the summary line shown on the sales dashboard.
type DashboardRow struct {
	ConversationID     string    `json:"conversation_id"`
	CreatedAt          time.Time `json:"created_at"`
	PrimaryIntent      Intent    `json:"primary_intent,omitempty"`
	LeadScore          *float64  `json:"lead_score,omitempty"`
	LeadBand           string    `json:"lead_band,omitempty"`
	CompletenessStatus string    `json:"completeness_status"`
}

// SlotText returns the first filled slot among names, formatted as text.
func (l *LeadRecord) SlotText(names ...string) string {
	for _, n := range names {
		sv, ok := l.Slots[n]
		if ok && sv.Status == SlotFilled && sv.HasValue() {
			return fmt.Sprint(sv.Value)
		}
	}
	return ""
}
