package zoho

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	httpclient "funnel-workers/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	oauthToken string
	baseURL    string
	httpClient *httpclient.Client
}

// Lead is the subset of Zoho CRM Lead fields the funnel fills in.
type Lead struct {
	ID          string  `json:"id,omitempty"`
	LastName    string  `json:"Last_Name"`
	FirstName   string  `json:"First_Name,omitempty"`
	Company     string  `json:"Company,omitempty"`
	Country     string  `json:"Country,omitempty"`
	Description string  `json:"Description,omitempty"`
	Source      string  `json:"Lead_Source,omitempty"`
	Status      string  `json:"Lead_Status,omitempty"`
	Rating      string  `json:"Rating,omitempty"`
	Score       float64 `json:"Lead_Score,omitempty"`
	Reference   string  `json:"Conversation_Id,omitempty"`
}

type writeResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

// NewCRMClient talks to baseURL, or DefaultBaseURL when empty.
func NewCRMClient(oauthToken, baseURL string, timeout time.Duration) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    baseURL,
		httpClient: httpclient.NewClient(timeout),
	}
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}
}

// CreateLead inserts lead and returns the CRM record id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	payload := map[string]interface{}{
		"data": []Lead{*lead},
	}

	var resp writeResponse
	_, err := c.httpClient.DoJSON(ctx, http.MethodPost, c.baseURL+"/Leads", c.headers(), payload, &resp,
		http.StatusCreated, http.StatusOK)
	if err != nil {
		return "", fmt.Errorf("failed to create lead: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", fmt.Errorf("lead creation failed: %s", resp.Data[0].Message)
	}

	return resp.Data[0].Details.ID, nil
}

// SearchLeads finds leads whose Conversation_Id equals reference.
func (c *CRMClient) SearchLeads(ctx context.Context, reference string) ([]Lead, error) {
	endpoint := fmt.Sprintf("%s/Leads/search?criteria=%s", c.baseURL,
		url.QueryEscape("(Conversation_Id:equals:"+reference+")"))

	var result struct {
		Data []Lead `json:"data"`
	}
	status, err := c.httpClient.DoJSON(ctx, http.MethodGet, endpoint, c.headers(), nil, &result,
		http.StatusOK, http.StatusNoContent)
	if err != nil {
		return nil, fmt.Errorf("failed to search leads: %w", err)
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return result.Data, nil
}
