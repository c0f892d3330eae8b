package qualification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"funnel-workers/internal/models"
	"funnel-workers/pkg/registry"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(registry.Default(), "")
}

func filled(v interface{}) models.SlotValue {
	return models.SlotValue{Value: v, Status: models.SlotFilled, Confidence: 0.8}
}

func salesState(overrides map[string]models.SlotValue) models.ConversationState {
	slots := map[string]models.SlotValue{
		"caller_name":      filled("Asha"),
		"country_location": filled("Kenya"),
		"project_type":     filled("short_film"),
		"animation_type":   filled("3d"),
		"budget_or_range":  filled("50000"),
	}
	for k, v := range overrides {
		slots[k] = v
	}
	return models.ConversationState{Intent: models.IntentNewProjectSales, Slots: slots, Stage: models.StageSlotFilling}
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name        string
		state       models.ConversationState
		wantPct     int
		wantMissing []string
		wantStatus  models.CompletenessStatus
	}{
		{
			name:        "all required filled",
			state:       salesState(nil),
			wantPct:     100,
			wantMissing: []string{},
			wantStatus:  models.CompletenessComplete,
		},
		{
			name: "refused counts as missing",
			state: salesState(map[string]models.SlotValue{
				"budget_or_range": {Status: models.SlotRefused},
			}),
			wantPct:     80,
			wantMissing: []string{"budget_or_range"},
			wantStatus:  models.CompletenessActionable,
		},
		{
			name: "unavailable is neither filled nor missing",
			state: salesState(map[string]models.SlotValue{
				"country_location": {Status: models.SlotUnavailable},
			}),
			wantPct:     80,
			wantMissing: []string{},
			wantStatus:  models.CompletenessComplete,
		},
		{
			name: "filled with empty value is missing",
			state: salesState(map[string]models.SlotValue{
				"caller_name": {Value: "", Status: models.SlotFilled},
			}),
			wantPct:     80,
			wantMissing: []string{"caller_name"},
			wantStatus:  models.CompletenessActionable,
		},
		{
			name: "name country budget only",
			state: salesState(map[string]models.SlotValue{
				"project_type":   models.MissingSlot(),
				"animation_type": models.MissingSlot(),
			}),
			wantPct:     60,
			wantMissing: []string{"project_type", "animation_type"},
			wantStatus:  models.CompletenessActionable,
		},
		{
			name:        "nothing captured",
			state:       models.ConversationState{Intent: models.IntentNewProjectSales},
			wantPct:     0,
			wantMissing: []string{"caller_name", "country_location", "project_type", "animation_type", "budget_or_range"},
			wantStatus:  models.CompletenessIncomplete,
		},
		{
			name:        "two of three",
			state:       models.ConversationState{Intent: models.IntentComplaintIssue, Slots: map[string]models.SlotValue{"name": filled("Ravi"), "issue_category": filled("delay")}},
			wantPct:     67,
			wantMissing: []string{"project_reference"},
			wantStatus:  models.CompletenessActionable,
		},
	}

	e := newTestEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Completeness(tt.state)
			assert.Equal(t, tt.wantPct, got.Percent)
			assert.Equal(t, tt.wantMissing, got.MandatoryMissing)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestCompleteness_InfoOnlyIgnoresSlots(t *testing.T) {
	e := newTestEvaluator()
	for _, st := range []models.ConversationState{
		{Intent: models.IntentGeneralServicesQuery},
		{Intent: models.IntentGeneralServicesQuery, Slots: map[string]models.SlotValue{"area_of_interest": filled("pricing")}},
		{Intent: models.IntentUnknownChitchat, Slots: map[string]models.SlotValue{"caller_name": {Status: models.SlotRefused}}},
	} {
		got := e.Completeness(st)
		assert.Equal(t, models.CompletenessResult{Percent: 100, MandatoryMissing: []string{}, Status: models.CompletenessInfoOnly}, got)
	}
}

func TestCompleteness_MonotonicUnderFills(t *testing.T) {
	e := newTestEvaluator()
	st := models.ConversationState{Intent: models.IntentNewProjectSales, Slots: map[string]models.SlotValue{}}
	prev := e.Completeness(st).Percent
	for _, slot := range registry.Default().RequiredSlots(models.IntentNewProjectSales) {
		st.Slots[slot] = filled("x")
		pct := e.Completeness(st).Percent
		assert.GreaterOrEqual(t, pct, prev)
		prev = pct
	}
	assert.Equal(t, 100, prev)
}

func TestLeadScore_AllCapturedIsHot(t *testing.T) {
	got := newTestEvaluator().LeadScore(salesState(nil), 5, "")

	assert.Equal(t, 100.0, got.Score)
	assert.Equal(t, models.BandHot, got.Band)
	assert.Equal(t, models.LeadBreakdown{
		IntentWeight:      40,
		SlotCompleteness:  30,
		BudgetSignal:      20,
		EngagementQuality: 10,
		Total:             100,
	}, got.Breakdown)
}

func TestLeadScore_GeneralQuery(t *testing.T) {
	got := newTestEvaluator().LeadScore(models.ConversationState{Intent: models.IntentGeneralServicesQuery}, 1, "")

	assert.Equal(t, 10.0, got.Breakdown.IntentWeight)
	assert.Equal(t, 30.0, got.Breakdown.SlotCompleteness)
	assert.Equal(t, 0.0, got.Breakdown.EngagementQuality)
	assert.Equal(t, 40.0, got.Score)
	assert.Equal(t, models.BandCold, got.Band)
}

func TestLeadScore_RefusalDivergence(t *testing.T) {
	e := newTestEvaluator()
	st := salesState(map[string]models.SlotValue{"budget_or_range": {Status: models.SlotRefused}})

	assert.Equal(t, []string{"budget_or_range"}, e.Completeness(st).MandatoryMissing)

	got := e.LeadScore(st, 4, "")
	assert.Equal(t, 30.0, got.Breakdown.SlotCompleteness)
	assert.Equal(t, 5.0, got.Breakdown.BudgetSignal)
	// no closure bonus while a required slot is refused
	assert.Equal(t, 6.0, got.Breakdown.EngagementQuality)
	assert.Equal(t, 81.0, got.Score)
}

func TestLeadScore_BudgetSignal(t *testing.T) {
	tests := []struct {
		name   string
		slots  map[string]models.SlotValue
		expect float64
	}{
		{"exact figure", map[string]models.SlotValue{"budget_or_range": filled("50k")}, 20},
		{"numeric value", map[string]models.SlotValue{"budget_or_range": filled(50000.0)}, 20},
		{"range with to", map[string]models.SlotValue{"budget_or_range": filled("40k to 60k")}, 15},
		{"range with hyphen", map[string]models.SlotValue{"budget_or_range": filled("40k-60k")}, 15},
		{"range with en dash", map[string]models.SlotValue{"budget_or_range": filled("40k – 60k")}, 15},
		{"between", map[string]models.SlotValue{"budget_or_range": filled("between 5000 and 8000")}, 15},
		{"refused", map[string]models.SlotValue{"budget_or_range": {Status: models.SlotRefused}}, 5},
		{"unavailable stops the scan", map[string]models.SlotValue{
			"budget_or_range":    {Status: models.SlotUnavailable},
			"budget_expectation": filled("20k"),
		}, 0},
		{"falls through to expectation", map[string]models.SlotValue{
			"budget_or_range":    models.MissingSlot(),
			"budget_expectation": filled("10k to 12k"),
		}, 15},
		{"nothing", map[string]models.SlotValue{}, 0},
	}

	e := newTestEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := models.ConversationState{Intent: models.IntentPriceEstimation, Slots: tt.slots}
			assert.Equal(t, tt.expect, e.LeadScore(st, 0, "").Breakdown.BudgetSignal)
		})
	}
}

func TestLeadScore_SlotCompletenessAndEngagement(t *testing.T) {
	tests := []struct {
		name           string
		state          models.ConversationState
		turns          int
		wantSlots      float64
		wantEngagement float64
	}{
		{"one missing, two turns", salesState(map[string]models.SlotValue{"caller_name": models.MissingSlot()}), 2, 20, 3},
		{"two missing, one turn", salesState(map[string]models.SlotValue{"caller_name": models.MissingSlot(), "project_type": models.MissingSlot()}), 1, 10, 0},
		{"three missing", salesState(map[string]models.SlotValue{
			"caller_name":    models.MissingSlot(),
			"project_type":   models.MissingSlot(),
			"animation_type": {Status: models.SlotUnavailable},
		}), 8, 0, 6},
		{"chitchat gets no closure bonus", models.ConversationState{Intent: models.IntentUnknownChitchat}, 3, 30, 3},
	}

	e := newTestEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.LeadScore(tt.state, tt.turns, "")
			assert.Equal(t, tt.wantSlots, got.Breakdown.SlotCompleteness)
			assert.Equal(t, tt.wantEngagement, got.Breakdown.EngagementQuality)
		})
	}
}

func TestBand(t *testing.T) {
	assert.Equal(t, models.BandHot, Band(80))
	assert.Equal(t, models.BandWarm, Band(79.9))
	assert.Equal(t, models.BandWarm, Band(50))
	assert.Equal(t, models.BandCold, Band(49.9))
}
