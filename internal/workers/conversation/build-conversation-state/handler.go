package buildconversationstate

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/intake"
)

const TaskType = "build-conversation-state"

type Service interface {
	BuildState(ctx context.Context, id string) (*intake.BuildResult, error)
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

// Execute replays the stored conversation into a fresh state, scores it and
// records the processing run. A qualifying build also writes a lead.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.BuildState(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	missing := res.Completeness.MandatoryMissing
	if missing == nil {
		missing = []string{}
	}
	out := &Output{
		ConversationID:     res.ConversationID,
		Intent:             string(res.State.Intent),
		Stage:              string(res.State.Stage),
		CompletenessPct:    res.Completeness.Percent,
		CompletenessStatus: string(res.Completeness.Status),
		MandatoryMissing:   missing,
		LeadScore:          res.Lead.Score,
		LeadBand:           string(res.Lead.Band),
		Qualified:          res.Completeness.Status.Qualifies(),
		LeadID:             res.LeadID,
		RunID:              res.RunID,
	}
	if res.NextQuestion != nil {
		out.NextSlot = res.NextQuestion.Slot
		out.NextQuestion = res.NextQuestion.Question
	}

	h.logger.Info("conversation state built", map[string]interface{}{
		"conversationId": out.ConversationID,
		"completeness":   out.CompletenessStatus,
		"leadBand":       out.LeadBand,
		"runId":          out.RunID,
	})
	return out, nil
}
