package applyconversationmessage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type mockService struct {
	applyMessage func(ctx context.Context, id, text string) (*intake.MessageResult, error)
}

func (m *mockService) ApplyMessage(ctx context.Context, id, text string) (*intake.MessageResult, error) {
	return m.applyMessage(ctx, id, text)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{
		ActivatedJob: &pb.ActivatedJob{
			Key:                key,
			Type:               TaskType,
			ProcessInstanceKey: key * 10,
			BpmnProcessId:      "test-process",
			ElementId:          "apply-message-task",
			CustomHeaders:      "{}",
			Worker:             "test-worker",
			Retries:            3,
			Variables:          string(variablesJSON),
		},
	}
}

func createTestHandler(t *testing.T, svc Service) *Handler {
	return NewHandler(&Config{}, svc, logger.NewTestLogger(t), nil)
}

// ==========================
// Tests
// ==========================

func TestParseInput(t *testing.T) {
	h := createTestHandler(t, &mockService{})

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{
		"conversationId": "conv_1",
		"message":        "I'm from Kenya",
	}))
	require.NoError(t, err)
	assert.Equal(t, "I'm from Kenya", input.Message)

	_, err = h.parseInput(createMockJob(2, map[string]interface{}{"conversationId": "conv_1", "message": ""}))
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))

	_, err = h.parseInput(createMockJob(3, map[string]interface{}{"message": "hello"}))
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))
}

func TestExecute(t *testing.T) {
	svc := &mockService{
		applyMessage: func(_ context.Context, id, text string) (*intake.MessageResult, error) {
			assert.Equal(t, "conv_1", id)
			assert.Equal(t, "I'm from Kenya", text)
			return &intake.MessageResult{
				ConversationID: id,
				State: models.ConversationState{
					Intent: models.IntentNewProjectSales,
					Stage:  models.StageSlotFilling,
					Slots: map[string]models.SlotValue{
						"country_location": {Value: "Kenya", Status: models.SlotFilled},
						"project_type":     {Value: "2D short film", Status: models.SlotFilled},
						"budget_or_range":  {Status: models.SlotRefused},
						"name":             {Status: models.SlotMissing},
					},
				},
				NextQuestion: &models.NextQuestion{Slot: "name", Question: "May I know your name?"},
			}, nil
		},
	}

	out, err := createTestHandler(t, svc).Execute(context.Background(), &Input{ConversationID: "conv_1", Message: "I'm from Kenya"})
	require.NoError(t, err)
	assert.Equal(t, "new_project_sales", out.Intent)
	assert.Equal(t, "slot_filling", out.Stage)
	assert.Equal(t, 2, out.FilledSlots)
	assert.True(t, out.QuestionPending)
	assert.Equal(t, "name", out.NextSlot)
}

func TestExecute_NothingLeftToAsk(t *testing.T) {
	svc := &mockService{
		applyMessage: func(_ context.Context, id, _ string) (*intake.MessageResult, error) {
			return &intake.MessageResult{
				ConversationID: id,
				State:          models.ConversationState{Intent: models.IntentCareerHiring, Stage: models.StageConversationClosure},
			}, nil
		},
	}

	out, err := createTestHandler(t, svc).Execute(context.Background(), &Input{ConversationID: "conv_1", Message: "thanks"})
	require.NoError(t, err)
	assert.False(t, out.QuestionPending)
	assert.Empty(t, out.NextQuestion)
	assert.Zero(t, out.FilledSlots)
}

func TestExecute_UnknownConversation(t *testing.T) {
	svc := &mockService{
		applyMessage: func(_ context.Context, id, _ string) (*intake.MessageResult, error) {
			return nil, appErrors.NewConversationNotFoundError(id)
		},
	}

	_, err := createTestHandler(t, svc).Execute(context.Background(), &Input{ConversationID: "conv_x", Message: "hi"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeConversationNotFound))
}
