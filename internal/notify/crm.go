package notify

import (
	"context"
	"fmt"
	"strings"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/zoho"
	"funnel-workers/internal/models"
)

const leadSource = "Sales Funnel"

type CRMClient interface {
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	SearchLeads(ctx context.Context, reference string) ([]zoho.Lead, error)
}

type CRMResult struct {
	CRMLeadID string `json:"crmLeadId,omitempty"`
	Created   bool   `json:"created"`
	Skipped   bool   `json:"skipped"`
}

// CRMSync creates one CRM lead per conversation.
type CRMSync struct {
	client CRMClient
	logger logger.Logger
}

// NewCRMSync with a nil client skips every sync.
func NewCRMSync(client CRMClient, log logger.Logger) *CRMSync {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CRMSync{client: client, logger: log.WithFields(map[string]interface{}{"component": "crm-sync"})}
}

// SyncLead is idempotent: a conversation already in the CRM returns its existing id.
func (c *CRMSync) SyncLead(ctx context.Context, lead *models.LeadRecord) (*CRMResult, error) {
	if c.client == nil {
		return &CRMResult{Skipped: true}, nil
	}

	existing, err := c.client.SearchLeads(ctx, lead.ConversationID)
	if err != nil {
		return nil, appErrors.NewCRMSyncFailedError(err)
	}
	if len(existing) > 0 {
		c.logger.Debug("lead already in CRM", map[string]interface{}{
			"conversationId": lead.ConversationID,
			"crmLeadId":      existing[0].ID,
		})
		return &CRMResult{CRMLeadID: existing[0].ID}, nil
	}

	id, err := c.client.CreateLead(ctx, ToZohoLead(lead))
	if err != nil {
		return nil, appErrors.NewCRMSyncFailedError(err)
	}

	c.logger.Info("lead created in CRM", map[string]interface{}{
		"conversationId": lead.ConversationID,
		"crmLeadId":      id,
	})
	return &CRMResult{CRMLeadID: id, Created: true}, nil
}

// ToZohoLead maps the captured slots onto Zoho Lead fields.
func ToZohoLead(lead *models.LeadRecord) *zoho.Lead {
	first, last := splitName(lead.SlotText("name", "caller_name"))

	var desc []string
	if v := lead.SlotText("project_type"); v != "" {
		desc = append(desc, "Project: "+v)
	}
	if v := lead.SlotText("animation_type"); v != "" {
		desc = append(desc, "Style: "+v)
	}
	if v := lead.SlotText("budget_or_range"); v != "" {
		desc = append(desc, "Budget: "+v)
	}
	if v := lead.SlotText("deadline"); v != "" {
		desc = append(desc, "Deadline: "+v)
	}
	desc = append(desc, fmt.Sprintf("Intent: %s, completeness %d%%", lead.Intent, lead.CompletenessPct))

	return &zoho.Lead{
		FirstName:   first,
		LastName:    last,
		Country:     lead.SlotText("country_location"),
		Description: strings.Join(desc, "\n"),
		Source:      leadSource,
		Status:      "Not Contacted",
		Rating:      rating(lead.LeadBand),
		Score:       lead.LeadScore,
		Reference:   lead.ConversationID,
	}
}

// splitName keeps everything after the first word as the last name; Zoho requires one.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", "Unknown"
	case 1:
		return "", parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func rating(band models.LeadBand) string {
	switch band {
	case models.BandHot:
		return "Hot"
	case models.BandWarm:
		return "Warm"
	default:
		return "Cold"
	}
}
