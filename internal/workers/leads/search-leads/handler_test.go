package searchleads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/common/config"
	"funnel-workers/internal/common/database"
	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/models"
	"funnel-workers/internal/search"
)

// ==========================
// Test Helper Functions
// ==========================

type mockSearcher struct {
	searchLeads func(ctx context.Context, q search.Query) (*search.Result, error)
}

func (m *mockSearcher) SearchLeads(ctx context.Context, q search.Query) (*search.Result, error) {
	return m.searchLeads(ctx, q)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{
		ActivatedJob: &pb.ActivatedJob{
			Key:                key,
			Type:               TaskType,
			ProcessInstanceKey: key * 10,
			BpmnProcessId:      "test-process",
			ElementId:          "search-leads-task",
			CustomHeaders:      "{}",
			Worker:             "test-worker",
			Retries:            3,
			Variables:          string(variablesJSON),
		},
	}
}

func createTestHandler(t *testing.T, s Searcher) *Handler {
	return NewHandler(LoadConfig(config.WorkerConfig{}), s, logger.NewTestLogger(t), nil)
}

// ==========================
// Input Parsing
// ==========================

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
		check     func(t *testing.T, in *Input)
	}{
		{
			name:      "empty is allowed",
			variables: map[string]interface{}{},
			check: func(t *testing.T, in *Input) {
				assert.Empty(t, in.Band)
				assert.Zero(t, in.Size)
			},
		},
		{
			name:      "filters",
			variables: map[string]interface{}{"band": "hot", "intent": " price_estimation ", "minScore": 70, "size": 25},
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, "hot", in.Band)
				assert.Equal(t, "price_estimation", in.Intent)
				assert.Equal(t, 70.0, in.MinScore)
				assert.Equal(t, 25, in.Size)
			},
		},
		{name: "unknown band", variables: map[string]interface{}{"band": "lukewarm"}, wantErr: true},
		{name: "score out of range", variables: map[string]interface{}{"minScore": 120}, wantErr: true},
		{name: "page too large", variables: map[string]interface{}{"size": 500}, wantErr: true},
	}

	h := createTestHandler(t, &mockSearcher{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))
				return
			}
			require.NoError(t, err)
			tt.check(t, in)
		})
	}
}

// ==========================
// Execute
// ==========================

func TestExecute(t *testing.T) {
	var got search.Query
	s := &mockSearcher{
		searchLeads: func(_ context.Context, q search.Query) (*search.Result, error) {
			got = q
			return &search.Result{
				TotalHits: 2,
				Leads: []search.LeadDocument{
					{ConversationID: "conv_1", Intent: models.IntentNewProjectSales, LeadScore: 92, LeadBand: models.BandHot, Name: "Asha"},
					{ConversationID: "conv_2", Intent: models.IntentNewProjectSales, LeadScore: 75, LeadBand: models.BandHot},
				},
			}, nil
		},
	}

	out, err := createTestHandler(t, s).Execute(context.Background(), &Input{Band: "hot", Intent: "new_project_sales"})
	require.NoError(t, err)
	assert.Equal(t, models.BandHot, got.Band)
	assert.Equal(t, models.IntentNewProjectSales, got.Intent)
	assert.Equal(t, 10, got.Size)

	assert.Equal(t, int64(2), out.TotalHits)
	assert.Equal(t, []string{"conv_1", "conv_2"}, out.ConversationIDs)
	require.Len(t, out.Leads, 2)
	assert.Equal(t, "Asha", out.Leads[0].Name)
}

func TestExecute_NoHits(t *testing.T) {
	s := &mockSearcher{
		searchLeads: func(context.Context, search.Query) (*search.Result, error) {
			return &search.Result{}, nil
		},
	}

	out, err := createTestHandler(t, s).Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.NotNil(t, out.Leads)
	assert.NotNil(t, out.ConversationIDs)
	assert.Empty(t, out.Leads)
}

func TestExecute_UnknownIntent(t *testing.T) {
	out, err := createTestHandler(t, &mockSearcher{}).Execute(context.Background(), &Input{Intent: "refund"})
	assert.Nil(t, out)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))
}

// The worker against the Elasticsearch-backed index.
func TestExecute_LeadIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "/funnel-leads/_search", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("size"))
		_, _ = w.Write([]byte(`{
			"took": 2,
			"hits": {
				"total": {"value": 1},
				"hits": [{"_source": {"conversation_id": "conv_9", "intent": "price_estimation", "lead_score": 66, "lead_band": "warm", "country": "Kenya"}}]
			}
		}`))
	}))
	defer srv.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)
	idx := search.NewLeadIndex(es, "funnel-leads", logger.NewTestLogger(t))

	out, err := createTestHandler(t, idx).Execute(context.Background(), &Input{Band: "warm", Size: 5})
	require.NoError(t, err)
	require.Len(t, out.Leads, 1)
	assert.Equal(t, "conv_9", out.Leads[0].ConversationID)
	assert.Equal(t, "warm", out.Leads[0].LeadBand)
	assert.Equal(t, "Kenya", out.Leads[0].Country)
}
