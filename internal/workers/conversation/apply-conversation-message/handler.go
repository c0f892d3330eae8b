package applyconversationmessage

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/models"
)

const TaskType = "apply-conversation-message"

type Service interface {
	ApplyMessage(ctx context.Context, id, text string) (*intake.MessageResult, error)
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
	if err := camunda.DecodeVariables(job, validation.MessageJob, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.ApplyMessage(ctx, input.ConversationID, input.Message)
	if err != nil {
		return nil, err
	}

	filled := 0
	for _, v := range res.State.Slots {
		if v.Status == models.SlotFilled {
			filled++
		}
	}

	out := &Output{
		ConversationID: res.ConversationID,
		Intent:         string(res.State.Intent),
		Stage:          string(res.State.Stage),
		FilledSlots:    filled,
	}
	if res.NextQuestion != nil {
		out.QuestionPending = true
		out.NextSlot = res.NextQuestion.Slot
		out.NextQuestion = res.NextQuestion.Question
	}

	h.logger.Debug("message applied", map[string]interface{}{
		"conversationId": out.ConversationID,
		"stage":          out.Stage,
		"nextSlot":       out.NextSlot,
	})
	return out, nil
}
