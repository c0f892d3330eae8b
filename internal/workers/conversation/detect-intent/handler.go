package detectintent

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

const TaskType = "detect-intent"

type Service interface {
	ProcessNLP(ctx context.Context, id string) (*intake.NLPResult, error)
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

// Execute runs the NLP pipeline and surfaces the final intent as process variables
// so gateways can branch on primaryIntent.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.ProcessNLP(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	tags := res.NLP.FinalIntent.SecondaryTags
	if tags == nil {
		tags = []string{}
	}

	h.logger.Info("intent detected", map[string]interface{}{
		"conversationId": input.ConversationID,
		"intent":         res.NLP.FinalIntent.PrimaryIntent,
		"confidence":     res.NLP.FinalIntent.Confidence,
	})
	return &Output{
		ConversationID:   res.ConversationID,
		PrimaryIntent:    string(res.NLP.FinalIntent.PrimaryIntent),
		IntentConfidence: res.NLP.FinalIntent.Confidence,
		SecondaryTags:    tags,
		Language:         res.NLP.Language,
		ExtractedFields:  res.NLP.ExtractedFields(),
		NLPStatus:        res.Status,
	}, nil
}
