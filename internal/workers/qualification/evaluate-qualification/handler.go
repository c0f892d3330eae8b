package evaluatequalification

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/intake"
)

const TaskType = "evaluate-qualification"

type Service interface {
	Qualification(ctx context.Context, id string) (*intake.QualificationResult, error)
}

type Handler struct {
	config  *Config
	service Service
	logger  logger.Logger
	runner  *camunda.Runner
}

func NewHandler(cfg *Config, service Service, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  cfg,
		service: service,
		logger:  log,
		runner:  camunda.NewRunner(TaskType, cfg.Timeout, log, obs),
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

// Execute scores the stored snapshot without writing anything.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Qualification(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	out := &Output{ConversationID: res.ConversationID, MandatoryMissing: []string{}}
	if res.Completeness == nil || res.Lead == nil {
		if h.config.RequireState {
			return nil, errors.NewStateNotBuiltError(input.ConversationID)
		}
		return out, nil
	}

	out.StateBuilt = true
	out.CompletenessPct = res.Completeness.Percent
	out.CompletenessStatus = string(res.Completeness.Status)
	if res.Completeness.MandatoryMissing != nil {
		out.MandatoryMissing = res.Completeness.MandatoryMissing
	}
	out.LeadScore = res.Lead.Score
	out.LeadBand = string(res.Lead.Band)
	out.Qualified = res.Completeness.Status.Qualifies()

	h.logger.Info("qualification evaluated", map[string]interface{}{
		"conversationId": input.ConversationID,
		"completeness":   out.CompletenessStatus,
		"leadScore":      out.LeadScore,
	})
	return out, nil
}
