package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCRM(t *testing.T, handler http.HandlerFunc) *CRMClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCRMClient("test-token", srv.URL, 5*time.Second)
}

func TestCreateLead(t *testing.T) {
	client := newTestCRM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Leads", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken test-token", r.Header.Get("Authorization"))

		var payload struct {
			Data []Lead `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Data, 1)
		assert.Equal(t, "Asha", payload.Data[0].LastName)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","status":"success","details":{"id":"5000001"}}]}`))
	})

	id, err := client.CreateLead(context.Background(), &Lead{LastName: "Asha", Reference: "conv_1"})
	require.NoError(t, err)
	assert.Equal(t, "5000001", id)
}

func TestCreateLead_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"code":"INVALID_TOKEN"}`},
		{"record error", http.StatusCreated, `{"data":[{"status":"error","message":"required field not found"}]}`},
		{"empty data", http.StatusOK, `{"data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestCRM(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.CreateLead(context.Background(), &Lead{LastName: "Asha"})
			assert.Error(t, err)
		})
	}
}

func TestSearchLeads(t *testing.T) {
	client := newTestCRM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Leads/search", r.URL.Path)
		assert.Equal(t, "(Conversation_Id:equals:conv_1)", r.URL.Query().Get("criteria"))
		_, _ = w.Write([]byte(`{"data":[{"id":"5000001","Last_Name":"Asha"}]}`))
	})

	leads, err := client.SearchLeads(context.Background(), "conv_1")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "5000001", leads[0].ID)
}

func TestSearchLeads_NoContent(t *testing.T) {
	client := newTestCRM(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	leads, err := client.SearchLeads(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Empty(t, leads)
}
