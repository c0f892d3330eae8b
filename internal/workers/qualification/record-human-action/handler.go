package recordhumanaction

import (
	"context"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/models"
)

const TaskType = "record-human-action"

type Service interface {
	HumanAction(ctx context.Context, id string, payload *intake.HumanActionPayload) (*intake.HumanActionResult, error)
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
	input.CorrectedIntent = strings.TrimSpace(input.CorrectedIntent)
	input.Action = strings.ToLower(strings.TrimSpace(input.Action))
	return &input, nil
}

// Execute hands the correction to the intake service, which validates it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.HumanAction(ctx, input.ConversationID, &intake.HumanActionPayload{
		CorrectedIntent: models.Intent(input.CorrectedIntent),
		FilledSlots:     input.FilledSlots,
		Action:          models.HumanActionKind(input.Action),
		Notes:           input.Notes,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		ConversationID:  res.ConversationID,
		ActionID:        res.ActionID,
		ActionStatus:    res.Status,
		IntentCorrected: input.CorrectedIntent != "",
	}, nil
}
