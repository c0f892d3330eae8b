package notifyhotlead

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/common/config"
	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/models"
	"funnel-workers/internal/notify"
)

// ==========================
// Mock Implementations
// ==========================

type mockLeads struct {
	leadRecord func(ctx context.Context, id string) (*models.LeadRecord, error)
}

func (m *mockLeads) LeadRecord(ctx context.Context, id string) (*models.LeadRecord, error) {
	return m.leadRecord(ctx, id)
}

type mockEmail struct {
	sent []string
	err  error
}

func (m *mockEmail) SendText(_ context.Context, _ string, _ []string, subject, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, subject)
	return "ses-1", nil
}

type mockSMS struct {
	sent []string
}

func (m *mockSMS) SendSMS(_ context.Context, _ string, message string) (string, error) {
	m.sent = append(m.sent, message)
	return "sns-1", nil
}

func (m *mockSMS) PublishTopic(_ context.Context, _, _, message string) (string, error) {
	m.sent = append(m.sent, message)
	return "sns-topic-1", nil
}

func leadWithBand(band models.LeadBand) *mockLeads {
	return &mockLeads{
		leadRecord: func(_ context.Context, id string) (*models.LeadRecord, error) {
			return &models.LeadRecord{
				ConversationID: id,
				Intent:         models.IntentNewProjectSales,
				LeadScore:      82,
				LeadBand:       band,
				Slots: map[string]models.SlotValue{
					"name":             {Value: "Asha", Status: models.SlotFilled},
					"country_location": {Value: "Kenya", Status: models.SlotFilled},
				},
			}, nil
		},
	}
}

func createNotifier(t *testing.T, email *mockEmail, sms *mockSMS) *notify.Notifier {
	var cfg config.NotificationConfig
	cfg.Email.Enabled = true
	cfg.Email.FromEmail = "funnel@example.com"
	cfg.Email.Recipients = []string{"sales@example.com"}
	cfg.SMS.Enabled = true
	cfg.SMS.PhoneNumber = "+254700000000"
	return notify.NewNotifier(cfg, email, sms, logger.NewTestLogger(t))
}

// ==========================
// Tests
// ==========================

func TestExecute_HotLead(t *testing.T) {
	email, sms := &mockEmail{}, &mockSMS{}
	h := NewHandler(LoadConfig(config.WorkerConfig{}), leadWithBand(models.BandHot), createNotifier(t, email, sms), logger.NewTestLogger(t), nil)

	leadID := int64(9)
	out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1", LeadID: &leadID})
	require.NoError(t, err)
	assert.Equal(t, notify.StatusSent, out.NotificationStatus)
	assert.True(t, out.EmailSent)
	assert.True(t, out.SMSSent)
	assert.ElementsMatch(t, []string{"ses-1", "sns-1"}, out.MessageIDs)
	assert.Equal(t, "hot", out.LeadBand)
	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0], "Asha")
	require.Len(t, sms.sent, 1)
	assert.NotEmpty(t, out.NotifiedAt)
}

func TestExecute_NotHotIsSkipped(t *testing.T) {
	email, sms := &mockEmail{}, &mockSMS{}
	h := NewHandler(&Config{}, leadWithBand(models.BandWarm), createNotifier(t, email, sms), logger.NewTestLogger(t), nil)

	out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1"})
	require.NoError(t, err)
	assert.Equal(t, notify.StatusSkipped, out.NotificationStatus)
	assert.False(t, out.EmailSent)
	assert.Empty(t, email.sent)
	assert.Empty(t, sms.sent)
}

func TestExecute_PartialFailure(t *testing.T) {
	email, sms := &mockEmail{err: errors.New("throttled")}, &mockSMS{}
	h := NewHandler(&Config{}, leadWithBand(models.BandHot), createNotifier(t, email, sms), logger.NewTestLogger(t), nil)

	out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1"})
	require.NoError(t, err)
	assert.Equal(t, notify.StatusPartial, out.NotificationStatus)
	assert.False(t, out.EmailSent)
	assert.True(t, out.SMSSent)
}

func TestExecute_StateNotBuilt(t *testing.T) {
	leads := &mockLeads{
		leadRecord: func(_ context.Context, id string) (*models.LeadRecord, error) {
			return nil, appErrors.NewStateNotBuiltError(id)
		},
	}
	h := NewHandler(&Config{}, leads, createNotifier(t, &mockEmail{}, &mockSMS{}), logger.NewTestLogger(t), nil)

	_, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeStateNotBuilt))
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 20*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
}
