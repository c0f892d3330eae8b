package followup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/funnel/state"
	"funnel-workers/internal/models"
	"funnel-workers/pkg/registry"
)

var testNow = time.Date(2026, 5, 12, 14, 0, 0, 0, time.UTC)

func newTestSelector() *Selector {
	return NewSelector(registry.Default(), "", func() time.Time { return testNow })
}

func filled(v string) models.SlotValue {
	return models.SlotValue{Value: v, Status: models.SlotFilled, Confidence: 0.8}
}

func TestIsClosure(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"That's all, thank you", true},
		{"ok goodbye", true},
		{"please stop calling", true},
		{"We are done here", true},
		{"no", true},
		{" Nope ", true},
		{"that's it", true},
		{"no, it is a 3d film", false},
		{"my name is Asha", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClosure(tt.message))
		})
	}
}

func TestNextQuestion_AfterNameCountryBudget(t *testing.T) {
	m := state.NewMachine(registry.Default(), state.Options{})
	st := m.ApplyMessage(m.Initial(models.IntentNewProjectSales),
		"My name is Asha, I'm based in Kenya, budget is 50k", "turn_0", "", true)

	q, ok := newTestSelector().NextQuestion(st, 0, "")
	require.True(t, ok)
	assert.Equal(t, "project_type", q.Slot)
	assert.Equal(t, "What type of project is it—short film, series, ad, or explainer?", q.Question)
}

func TestNextQuestion_TemplateRotation(t *testing.T) {
	s := newTestSelector()
	st := models.ConversationState{Intent: models.IntentNewProjectSales, Stage: models.StageSlotFilling}

	templates := registry.Default().QuestionTemplates("caller_name", models.IntentNewProjectSales)
	for turn := 0; turn < 6; turn++ {
		q, ok := s.NextQuestion(st, turn, "")
		require.True(t, ok)
		assert.Equal(t, "caller_name", q.Slot)
		assert.Equal(t, templates[turn%len(templates)], q.Question)
	}
}

func TestNextQuestion_SkipsLastAskedAndResolvedSlots(t *testing.T) {
	s := newTestSelector()
	st := models.ConversationState{
		Intent: models.IntentNewProjectSales,
		Stage:  models.StageSlotFilling,
		Slots: map[string]models.SlotValue{
			"caller_name":      filled("Asha"),
			"country_location": {Status: models.SlotRefused},
		},
		LastQuestionAsked: "project_type",
	}

	q, ok := s.NextQuestion(st, 1, "")
	require.True(t, ok)
	assert.Equal(t, "animation_type", q.Slot)
	assert.Equal(t, "Do you need 2D, 3D, or mixed animation?", q.Question)
}

func TestNextQuestion_OptionalAfterRequired(t *testing.T) {
	s := newTestSelector()
	st := models.ConversationState{
		Intent: models.IntentNewProjectSales,
		Stage:  models.StageSlotFilling,
		Slots: map[string]models.SlotValue{
			"caller_name":      filled("Asha"),
			"country_location": filled("Kenya"),
			"project_type":     filled("short_film"),
			"animation_type":   filled("2d"),
			"budget_or_range":  {Status: models.SlotRefused},
		},
	}

	q, ok := s.NextQuestion(st, 0, "")
	require.True(t, ok)
	assert.Equal(t, "duration", q.Slot)
}

func TestNextQuestion_StopConditions(t *testing.T) {
	s := newTestSelector()
	allFilled := map[string]models.SlotValue{
		"name":              filled("Ravi"),
		"project_reference": {Status: models.SlotUnavailable},
		"issue_category":    filled("delay"),
	}

	tests := []struct {
		name    string
		state   models.ConversationState
		message string
	}{
		{"closure stage", models.ConversationState{Intent: models.IntentNewProjectSales, Stage: models.StageConversationClosure}, ""},
		{"minimum reached", models.ConversationState{Intent: models.IntentNewProjectSales, Stage: models.StageMinimumCompletenessReached}, ""},
		{"required filled or unavailable", models.ConversationState{Intent: models.IntentComplaintIssue, Stage: models.StageSlotFilling, Slots: allFilled}, ""},
		{"user closes", models.ConversationState{Intent: models.IntentNewProjectSales, Stage: models.StageSlotFilling}, "that's all"},
		{"nothing to ask", models.ConversationState{Intent: models.IntentUnknownChitchat, Stage: models.StageSlotFilling}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.NextQuestion(tt.state, 0, tt.message)
			assert.False(t, ok)
		})
	}
}

func TestNextQuestion_NeverRepeatsLastAsked(t *testing.T) {
	s := newTestSelector()
	reg := registry.Default()

	for _, intent := range models.AllIntents {
		for _, slot := range reg.AllSlots(intent) {
			st := models.ConversationState{Intent: intent, Stage: models.StageSlotFilling, LastQuestionAsked: slot}
			for turn := 0; turn < 3; turn++ {
				q, ok := s.NextQuestion(st, turn, "")
				if ok {
					assert.NotEqual(t, slot, q.Slot, "%s/%s", intent, slot)
				}
			}
		}
	}
}

func TestNextQuestion_GeneralQueryAsksOptional(t *testing.T) {
	s := newTestSelector()
	st := models.ConversationState{Intent: models.IntentGeneralServicesQuery, Stage: models.StageSlotFilling}

	// with no required slots the state is already complete
	_, ok := s.NextQuestion(st, 0, "")
	assert.False(t, ok)
}

func TestQuestionAsked(t *testing.T) {
	s := newTestSelector()
	st := models.ConversationState{
		Intent: models.IntentNewProjectSales,
		Slots:  map[string]models.SlotValue{"caller_name": filled("Asha")},
	}

	next := s.QuestionAsked(st, "country_location")
	assert.Equal(t, "country_location", next.LastQuestionAsked)
	require.NotNil(t, next.LastQuestionAt)
	assert.Equal(t, testNow, *next.LastQuestionAt)
	assert.Equal(t, testNow, *next.UpdatedAt)
	assert.Equal(t, st.Slots, next.Slots)
	assert.Empty(t, st.LastQuestionAsked)
}
