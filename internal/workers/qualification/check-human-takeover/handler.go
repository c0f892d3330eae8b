package checkhumantakeover

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
)

const TaskType = "check-human-takeover"

type Service interface {
	CheckHandoff(ctx context.Context, id string) (*intake.HandoffResult, error)
	HumanTakeover(ctx context.Context, id, reason string) (*intake.HumanActionResult, error)
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

// Execute evaluates the takeover triggers. When asked to, a fired trigger is
// also recorded as a takeover with the trigger names as its reason.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.CheckHandoff(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	reasons := res.TriggerReasons
	if reasons == nil {
		reasons = []string{}
	}
	out := &Output{
		ConversationID: res.ConversationID,
		NeedsHuman:     res.NeedsHuman,
		TriggerReasons: reasons,
	}
	if !res.NeedsHuman || !input.RecordTakeover {
		return out, nil
	}

	action, err := h.service.HumanTakeover(ctx, input.ConversationID, strings.Join(reasons, ","))
	if err != nil {
		return nil, err
	}
	out.TakeoverRecorded = true
	out.TakeoverActionID = action.ActionID

	h.logger.Info("human takeover recorded", map[string]interface{}{
		"conversationId": input.ConversationID,
		"reasons":        reasons,
		"actionId":       action.ActionID,
	})
	return out, nil
}
