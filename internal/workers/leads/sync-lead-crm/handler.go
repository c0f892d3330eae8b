package syncleadcrm

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

const TaskType = "sync-lead-crm"

const (
	skipDisabled  = "crm_disabled"
	skipBelowBand = "below_min_band"
	skipNoClient  = "crm_not_configured"
)

type LeadSource interface {
	LeadRecord(ctx context.Context, id string) (*models.LeadRecord, error)
}

type CRM interface {
	SyncLead(ctx context.Context, lead *models.LeadRecord) (*notify.CRMResult, error)
}

type Handler struct {
	config *Config
	leads  LeadSource
	crm    CRM
	logger logger.Logger
	runner *camunda.Runner
}

func NewHandler(cfg *Config, leads LeadSource, crm CRM, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: cfg,
		leads:  leads,
		crm:    crm,
		logger: log,
		runner: camunda.NewRunner(TaskType, cfg.Timeout, log, obs),
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{ConversationID: input.ConversationID}
	if !h.config.Enabled {
		out.SkipReason = skipDisabled
		return out, nil
	}

	lead, err := h.leads.LeadRecord(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	out.LeadBand = string(lead.LeadBand)
	out.LeadScore = lead.LeadScore

	if bandRank(lead.LeadBand) < bandRank(h.config.MinBand) {
		out.SkipReason = skipBelowBand
		return out, nil
	}

	res, err := h.crm.SyncLead(ctx, lead)
	if err != nil {
		return nil, err
	}
	if res.Skipped {
		out.SkipReason = skipNoClient
		return out, nil
	}

	out.Synced = true
	out.Created = res.Created
	out.CRMLeadID = res.CRMLeadID
	h.logger.Info("lead synced to CRM", map[string]interface{}{
		"conversationId": input.ConversationID,
		"crmLeadId":      res.CRMLeadID,
		"created":        res.Created,
	})
	return out, nil
}

func bandRank(b models.LeadBand) int {
	switch b {
	case models.BandHot:
		return 2
	case models.BandWarm:
		return 1
	default:
		return 0
	}
}
