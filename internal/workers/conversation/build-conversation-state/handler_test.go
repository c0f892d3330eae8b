package buildconversationstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/models"
)

type mockService struct {
	buildState func(ctx context.Context, id string) (*intake.BuildResult, error)
}

func (m *mockService) BuildState(ctx context.Context, id string) (*intake.BuildResult, error) {
	return m.buildState(ctx, id)
}

func createTestHandler(t *testing.T, svc Service) *Handler {
	return NewHandler(&Config{}, svc, logger.NewTestLogger(t), nil)
}

func int64Ptr(v int64) *int64 { return &v }

func TestExecute(t *testing.T) {
	tests := []struct {
		name   string
		result *intake.BuildResult
		check  func(t *testing.T, out *Output)
	}{
		{
			name: "complete hot lead",
			result: &intake.BuildResult{
				ConversationID: "conv_1",
				State:          models.ConversationState{Intent: models.IntentNewProjectSales, Stage: models.StageConversationClosure},
				Completeness:   models.CompletenessResult{Percent: 100, Status: models.CompletenessComplete},
				Lead:           models.LeadScoreResult{Score: 82.5, Band: models.BandHot},
				RunID:          3,
				LeadID:         int64Ptr(9),
			},
			check: func(t *testing.T, out *Output) {
				assert.Equal(t, "new_project_sales", out.Intent)
				assert.Equal(t, "conversation_closure", out.Stage)
				assert.Equal(t, "complete", out.CompletenessStatus)
				assert.Equal(t, 100, out.CompletenessPct)
				assert.Equal(t, []string{}, out.MandatoryMissing)
				assert.True(t, out.Qualified)
				assert.Equal(t, "hot", out.LeadBand)
				require.NotNil(t, out.LeadID)
				assert.Equal(t, int64(9), *out.LeadID)
				assert.Equal(t, int64(3), out.RunID)
				assert.Empty(t, out.NextQuestion)
			},
		},
		{
			name: "incomplete with next question",
			result: &intake.BuildResult{
				ConversationID: "conv_2",
				State:          models.ConversationState{Intent: models.IntentNewProjectSales, Stage: models.StageSlotFilling},
				Completeness: models.CompletenessResult{
					Percent:          40,
					Status:           models.CompletenessIncomplete,
					MandatoryMissing: []string{"name", "country_location"},
				},
				Lead:         models.LeadScoreResult{Score: 31, Band: models.BandCold},
				RunID:        1,
				NextQuestion: &models.NextQuestion{Slot: "name", Question: "May I know your name?"},
			},
			check: func(t *testing.T, out *Output) {
				assert.False(t, out.Qualified)
				assert.Nil(t, out.LeadID)
				assert.Equal(t, []string{"name", "country_location"}, out.MandatoryMissing)
				assert.Equal(t, "name", out.NextSlot)
				assert.Equal(t, "May I know your name?", out.NextQuestion)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{
				buildState: func(_ context.Context, id string) (*intake.BuildResult, error) {
					assert.Equal(t, tt.result.ConversationID, id)
					return tt.result, nil
				},
			}
			out, err := createTestHandler(t, svc).Execute(context.Background(), &Input{ConversationID: tt.result.ConversationID})
			require.NoError(t, err)
			assert.Equal(t, tt.result.ConversationID, out.ConversationID)
			tt.check(t, out)
		})
	}
}

func TestExecute_SaveFailureIsRetryable(t *testing.T) {
	svc := &mockService{
		buildState: func(_ context.Context, id string) (*intake.BuildResult, error) {
			return nil, appErrors.NewStateSaveFailedError(id, errors.New("connection reset"))
		},
	}

	_, err := createTestHandler(t, svc).Execute(context.Background(), &Input{ConversationID: "conv_1"})
	require.Error(t, err)
	stdErr := appErrors.Normalize(err)
	assert.Equal(t, appErrors.ErrCodeStateSaveFailed, stdErr.Code)
	assert.Equal(t, 3, appErrors.GetRetryCount(stdErr.Code))
}
