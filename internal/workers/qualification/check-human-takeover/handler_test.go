package checkhumantakeover

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/intake"
)

type mockService struct {
	checkHandoff  func(ctx context.Context, id string) (*intake.HandoffResult, error)
	humanTakeover func(ctx context.Context, id, reason string) (*intake.HumanActionResult, error)
}

func (m *mockService) CheckHandoff(ctx context.Context, id string) (*intake.HandoffResult, error) {
	return m.checkHandoff(ctx, id)
}

func (m *mockService) HumanTakeover(ctx context.Context, id, reason string) (*intake.HumanActionResult, error) {
	return m.humanTakeover(ctx, id, reason)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name         string
		needsHuman   bool
		reasons      []string
		record       bool
		wantRecorded bool
	}{
		{name: "no trigger", needsHuman: false},
		{name: "no trigger, record requested", needsHuman: false, record: true},
		{name: "trigger, check only", needsHuman: true, reasons: []string{"complaint_intent"}},
		{name: "trigger, recorded", needsHuman: true, reasons: []string{"low_confidence", "frustration_detected"}, record: true, wantRecorded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReason string
			svc := &mockService{
				checkHandoff: func(_ context.Context, id string) (*intake.HandoffResult, error) {
					return &intake.HandoffResult{ConversationID: id, NeedsHuman: tt.needsHuman, TriggerReasons: tt.reasons}, nil
				},
				humanTakeover: func(_ context.Context, id, reason string) (*intake.HumanActionResult, error) {
					gotReason = reason
					return &intake.HumanActionResult{ConversationID: id, ActionID: 12, Status: "recorded"}, nil
				},
			}
			h := NewHandler(&Config{}, svc, logger.NewTestLogger(t), nil)

			out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1", RecordTakeover: tt.record})
			require.NoError(t, err)
			assert.Equal(t, tt.needsHuman, out.NeedsHuman)
			assert.NotNil(t, out.TriggerReasons)
			assert.Equal(t, tt.wantRecorded, out.TakeoverRecorded)
			if tt.wantRecorded {
				assert.Equal(t, "low_confidence,frustration_detected", gotReason)
				assert.Equal(t, int64(12), out.TakeoverActionID)
			} else {
				assert.Empty(t, gotReason)
			}
		})
	}
}

func TestExecute_TakeoverFailure(t *testing.T) {
	svc := &mockService{
		checkHandoff: func(_ context.Context, id string) (*intake.HandoffResult, error) {
			return &intake.HandoffResult{ConversationID: id, NeedsHuman: true, TriggerReasons: []string{"complaint_intent"}}, nil
		},
		humanTakeover: func(context.Context, string, string) (*intake.HumanActionResult, error) {
			return nil, appErrors.NewDatabaseInsertFailedError(errors.New("disk full"))
		},
	}
	h := NewHandler(&Config{}, svc, logger.NewTestLogger(t), nil)

	out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1", RecordTakeover: true})
	assert.Nil(t, out)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeDatabaseInsertFailed))
}
