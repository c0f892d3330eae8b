package ingestconversation

import (
	"context"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/models"
)

const TaskType = "ingest-conversation"

type Service interface {
	IngestChat(ctx context.Context, payload *intake.ChatPayload) (*intake.IngestResult, error)
	IngestVoice(ctx context.Context, payload *intake.VoicePayload) (*intake.IngestResult, error)
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
	if err := camunda.DecodeVariables(job, nil, &input); err != nil {
		return nil, err
	}
	input.Channel = strings.ToLower(strings.TrimSpace(input.Channel))
	return &input, nil
}

// Execute registers the conversation on the channel it arrived on. Without an
// explicit channel, turns mean chat and anything else is treated as a call.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	channel := input.Channel
	if channel == "" {
		channel = string(models.ChannelVoice)
		if len(input.Turns) > 0 {
			channel = string(models.ChannelChat)
		}
	}

	var (
		res *intake.IngestResult
		err error
	)
	switch models.ChannelSource(channel) {
	case models.ChannelChat:
		turns := make([]intake.IncomingTurn, 0, len(input.Turns))
		for _, t := range input.Turns {
			turns = append(turns, intake.IncomingTurn{SpeakerID: t.SpeakerID, Text: t.Text, Timestamp: t.Timestamp})
		}
		res, err = h.service.IngestChat(ctx, &intake.ChatPayload{
			Channel:        channel,
			ConversationID: input.ConversationID,
			Turns:          turns,
		})
	case models.ChannelVoice:
		res, err = h.service.IngestVoice(ctx, &intake.VoicePayload{
			Channel:        channel,
			ConversationID: input.ConversationID,
			AudioURL:       input.AudioURL,
			Transcript:     input.Transcript,
		})
	default:
		return nil, errors.NewInvalidPayloadError("unsupported channel: " + channel)
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("conversation ingested", map[string]interface{}{
		"conversationId": res.ConversationID,
		"channel":        channel,
	})
	return &Output{
		ConversationID: res.ConversationID,
		Channel:        channel,
		IngestStatus:   res.Status,
		Message:        res.Message,
	}, nil
}
