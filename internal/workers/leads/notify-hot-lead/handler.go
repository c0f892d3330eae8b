package notifyhotlead

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/models"
	"funnel-workers/internal/notify"
)

const TaskType = "notify-hot-lead"

// LeadSource scores a conversation into a lead record.
type LeadSource interface {
	LeadRecord(ctx context.Context, id string) (*models.LeadRecord, error)
}

type Notifier interface {
	NotifyHotLead(ctx context.Context, lead *models.LeadRecord) (*notify.Result, error)
}

type Handler struct {
	config   *Config
	leads    LeadSource
	notifier Notifier
	logger   logger.Logger
	runner   *camunda.Runner
}

func NewHandler(cfg *Config, leads LeadSource, notifier Notifier, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		leads:    leads,
		notifier: notifier,
		logger:   log,
		runner:   camunda.NewRunner(TaskType, cfg.Timeout, log, obs),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, func(ctx context.Context) (interface{}, error) {
		input, err := h.parseInput(job)
		if err != nil {
			return nil, err
		}
		return h.Execute(ctx, input)
	})
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(job, validation.ConversationJob, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Execute alerts sales about the conversation's lead. Leads outside the hot
// band complete with notificationStatus "skipped".
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	lead, err := h.leads.LeadRecord(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if input.LeadID != nil {
		lead.LeadID = *input.LeadID
	}

	res, err := h.notifier.NotifyHotLead(ctx, lead)
	if err != nil {
		return nil, err
	}

	h.logger.Info("hot lead notification processed", map[string]interface{}{
		"conversationId": input.ConversationID,
		"leadBand":       lead.LeadBand,
		"status":         res.Status,
	})
	return &Output{
		ConversationID:     input.ConversationID,
		LeadBand:           string(lead.LeadBand),
		LeadScore:          lead.LeadScore,
		NotificationStatus: res.Status,
		EmailSent:          res.EmailSent,
		SMSSent:            res.SMSSent,
		MessageIDs:         res.MessageIDs,
		NotifiedAt:         res.SentAt,
	}, nil
}
