// Package notify alerts the sales team about hot leads and pushes leads into the CRM.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"funnel-workers/internal/common/config"
	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/metrics"
	"funnel-workers/internal/models"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

const (
	hotLeadSubject = "Hot lead: {{name}} ({{leadScore}})"
	hotLeadBody    = "New hot lead {{conversationId}}.\n" +
		"Name: {{name}}\nCountry: {{country}}\nProject: {{projectType}}\nBudget: {{budget}}\n" +
		"Intent: {{intent}}\nLead score: {{leadScore}} ({{leadBand}}), completeness {{completenessPct}}%"
	hotLeadSMS = "Hot lead {{name}} ({{leadScore}}): {{projectType}}, {{country}}. Ref {{conversationId}}"
)

type EmailSender interface {
	SendText(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
	PublishTopic(ctx context.Context, topicARN, subject, message string) (string, error)
}

// Result reports which channels went out for one lead.
type Result struct {
	Status     string   `json:"status"`
	EmailSent  bool     `json:"emailSent"`
	SMSSent    bool     `json:"smsSent"`
	MessageIDs []string `json:"messageIds,omitempty"`
	SentAt     string   `json:"sentAt"`
}

type Notifier struct {
	cfg    config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
	now    func() time.Time
}

// NewNotifier accepts nil senders; the matching channel is then treated as disabled.
func NewNotifier(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "hot-lead-notifier"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (n *Notifier) emailEnabled() bool {
	return n.cfg.Email.Enabled && n.email != nil && len(n.cfg.Email.Recipients) > 0
}

func (n *Notifier) smsEnabled() bool {
	return n.cfg.SMS.Enabled && n.sms != nil && (n.cfg.SMS.PhoneNumber != "" || n.cfg.SMS.TopicARN != "")
}

// NotifyHotLead alerts sales about lead when it is in the hot band. Channel
// failures are logged; an error is returned only when nothing could be sent.
func (n *Notifier) NotifyHotLead(ctx context.Context, lead *models.LeadRecord) (*Result, error) {
	res := &Result{Status: StatusSkipped, SentAt: n.now().Format(time.RFC3339)}
	if lead.LeadBand != models.BandHot {
		return res, nil
	}

	data := templateData(lead)
	var failures []string
	var firstErr error
	fail := func(channel string, err error) {
		failures = append(failures, channel)
		if firstErr == nil {
			firstErr = appErrors.NewNotificationSendFailedError(channel, err)
		}
		n.logger.Error("hot lead notification failed", map[string]interface{}{
			"conversationId": lead.ConversationID,
			"channel":        channel,
			"error":          err.Error(),
		})
		metrics.NotificationsSent.WithLabelValues(channel, StatusFailed).Inc()
	}

	if n.emailEnabled() {
		id, err := n.email.SendText(ctx, n.cfg.Email.FromEmail, n.cfg.Email.Recipients,
			renderTemplate(hotLeadSubject, data), renderTemplate(hotLeadBody, data))
		if err != nil {
			fail(ChannelEmail, err)
		} else {
			res.EmailSent = true
			res.MessageIDs = append(res.MessageIDs, id)
			metrics.NotificationsSent.WithLabelValues(ChannelEmail, StatusSent).Inc()
		}
	}

	if n.smsEnabled() {
		text := renderTemplate(hotLeadSMS, data)
		var id string
		var err error
		if n.cfg.SMS.TopicARN != "" {
			id, err = n.sms.PublishTopic(ctx, n.cfg.SMS.TopicARN, renderTemplate(hotLeadSubject, data), text)
		} else {
			id, err = n.sms.SendSMS(ctx, n.cfg.SMS.PhoneNumber, text)
		}
		if err != nil {
			fail(ChannelSMS, err)
		} else {
			res.SMSSent = true
			res.MessageIDs = append(res.MessageIDs, id)
			metrics.NotificationsSent.WithLabelValues(ChannelSMS, StatusSent).Inc()
		}
	}

	sent := res.EmailSent || res.SMSSent
	switch {
	case sent && len(failures) > 0:
		res.Status = StatusPartial
	case sent:
		res.Status = StatusSent
	case len(failures) > 0:
		res.Status = StatusFailed
		return res, firstErr
	default:
		res.Status = StatusDisabled
	}

	n.logger.Info("hot lead notified", map[string]interface{}{
		"conversationId": lead.ConversationID,
		"status":         res.Status,
		"failed":         failures,
	})
	return res, nil
}

func templateData(lead *models.LeadRecord) map[string]interface{} {
	return map[string]interface{}{
		"conversationId":  lead.ConversationID,
		"name":            orUnknown(lead.SlotText("name", "caller_name")),
		"country":         orUnknown(lead.SlotText("country_location")),
		"projectType":     orUnknown(lead.SlotText("project_type")),
		"budget":          orUnknown(lead.SlotText("budget_or_range")),
		"intent":          string(lead.Intent),
		"leadScore":       fmt.Sprintf("%.1f", lead.LeadScore),
		"leadBand":        string(lead.LeadBand),
		"completenessPct": lead.CompletenessPct,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// renderTemplate replaces {{key}} placeholders and drops the ones with no value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
