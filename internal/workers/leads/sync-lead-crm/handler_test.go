package syncleadcrm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/common/config"
	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/zoho"
	"funnel-workers/internal/models"
	"funnel-workers/internal/notify"
)

// ==========================
// Test Helper Functions
// ==========================

type mockLeads struct {
	band models.LeadBand
	err  error
}

func (m *mockLeads) LeadRecord(_ context.Context, id string) (*models.LeadRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.LeadRecord{
		ConversationID: id,
		Intent:         models.IntentNewProjectSales,
		LeadScore:      77,
		LeadBand:       m.band,
		Slots: map[string]models.SlotValue{
			"name":             {Value: "Asha Mwangi", Status: models.SlotFilled},
			"country_location": {Value: "Kenya", Status: models.SlotFilled},
		},
	}, nil
}

type mockCRM struct {
	syncLead func(ctx context.Context, lead *models.LeadRecord) (*notify.CRMResult, error)
	calls    int
}

func (m *mockCRM) SyncLead(ctx context.Context, lead *models.LeadRecord) (*notify.CRMResult, error) {
	m.calls++
	return m.syncLead(ctx, lead)
}

func created(id string) *mockCRM {
	return &mockCRM{
		syncLead: func(context.Context, *models.LeadRecord) (*notify.CRMResult, error) {
			return &notify.CRMResult{CRMLeadID: id, Created: true}, nil
		},
	}
}

// ==========================
// Tests
// ==========================

func TestLoadConfig(t *testing.T) {
	var integrations config.IntegrationConfig
	integrations.Zoho.Enabled = true

	cfg := LoadConfig(config.WorkerConfig{Timeout: 5000}, integrations)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, models.BandWarm, cfg.MinBand)

	cfg = LoadConfig(config.WorkerConfig{}, config.IntegrationConfig{})
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name        string
		enabled     bool
		band        models.LeadBand
		wantSynced  bool
		wantSkip    string
		wantCRMCall bool
	}{
		{name: "disabled", enabled: false, band: models.BandHot, wantSkip: skipDisabled},
		{name: "cold below min band", enabled: true, band: models.BandCold, wantSkip: skipBelowBand},
		{name: "warm synced", enabled: true, band: models.BandWarm, wantSynced: true, wantCRMCall: true},
		{name: "hot synced", enabled: true, band: models.BandHot, wantSynced: true, wantCRMCall: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crm := created("zoho-1")
			cfg := DefaultConfig()
			cfg.Enabled = tt.enabled
			h := NewHandler(cfg, &mockLeads{band: tt.band}, crm, logger.NewTestLogger(t), nil)

			out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSynced, out.Synced)
			assert.Equal(t, tt.wantSkip, out.SkipReason)
			assert.Equal(t, tt.wantCRMCall, crm.calls == 1)
			if tt.wantSynced {
				assert.Equal(t, "zoho-1", out.CRMLeadID)
				assert.True(t, out.Created)
			}
		})
	}
}

func TestExecute_NoCRMClient(t *testing.T) {
	h := NewHandler(DefaultConfig(), &mockLeads{band: models.BandHot}, notify.NewCRMSync(nil, nil), logger.NewTestLogger(t), nil)

	out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1"})
	require.NoError(t, err)
	assert.False(t, out.Synced)
	assert.Equal(t, skipNoClient, out.SkipReason)
}

func TestExecute_CRMFailureIsRetryable(t *testing.T) {
	crm := &mockCRM{
		syncLead: func(context.Context, *models.LeadRecord) (*notify.CRMResult, error) {
			return nil, appErrors.NewCRMSyncFailedError(assert.AnError)
		},
	}
	h := NewHandler(DefaultConfig(), &mockLeads{band: models.BandHot}, crm, logger.NewTestLogger(t), nil)

	_, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1"})
	require.Error(t, err)
	assert.Equal(t, 3, appErrors.GetRetryCount(appErrors.Normalize(err).Code))
}

// The worker wired to the real Zoho client, against a stub CRM endpoint.
func TestExecute_WithZohoClient(t *testing.T) {
	var createdLead map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			var body struct {
				Data []map[string]interface{} `json:"data"`
			}
			if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) && assert.Len(t, body.Data, 1) {
				createdLead = body.Data[0]
			}
			_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","details":{"id":"5725767000000524157"},"status":"success"}]}`))
		}
	}))
	defer srv.Close()

	client := zoho.NewCRMClient("token", srv.URL, 5*time.Second)
	h := NewHandler(DefaultConfig(), &mockLeads{band: models.BandHot}, notify.NewCRMSync(client, nil), logger.NewTestLogger(t), nil)

	out, err := h.Execute(context.Background(), &Input{ConversationID: "conv_1"})
	require.NoError(t, err)
	assert.True(t, out.Synced)
	assert.Equal(t, "5725767000000524157", out.CRMLeadID)
	assert.Equal(t, "Kenya", createdLead["Country"])
}
