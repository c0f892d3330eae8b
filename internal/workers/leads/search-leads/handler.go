package searchleads

import (
	"context"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/models"
	"funnel-workers/internal/search"
)

const TaskType = "search-leads"

type Searcher interface {
	SearchLeads(ctx context.Context, q search.Query) (*search.Result, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	logger   logger.Logger
	runner   *camunda.Runner
}

func NewHandler(cfg *Config, searcher Searcher, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		searcher: searcher,
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
	if err := camunda.DecodeVariables(job, validation.LeadSearchJob, &input); err != nil {
		return nil, err
	}
	input.Band = strings.ToLower(strings.TrimSpace(input.Band))
	input.Intent = strings.TrimSpace(input.Intent)
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	q := search.Query{
		Band:     models.LeadBand(input.Band),
		MinScore: input.MinScore,
		Text:     input.Text,
		From:     input.From,
		Size:     input.Size,
	}
	if input.Intent != "" {
		q.Intent = models.Intent(input.Intent)
		if !q.Intent.Valid() {
			return nil, errors.NewInvalidPayloadError("unknown intent: " + input.Intent)
		}
	}
	if q.Size == 0 {
		q.Size = h.config.DefaultSize
	}

	res, err := h.searcher.SearchLeads(ctx, q)
	if err != nil {
		return nil, err
	}

	out := &Output{
		TotalHits:       res.TotalHits,
		Leads:           make([]LeadSummary, 0, len(res.Leads)),
		ConversationIDs: make([]string, 0, len(res.Leads)),
	}
	for _, doc := range res.Leads {
		out.Leads = append(out.Leads, LeadSummary{
			ConversationID: doc.ConversationID,
			Intent:         string(doc.Intent),
			LeadScore:      doc.LeadScore,
			LeadBand:       string(doc.LeadBand),
			Name:           doc.Name,
			Country:        doc.Country,
			ProjectType:    doc.ProjectType,
		})
		out.ConversationIDs = append(out.ConversationIDs, doc.ConversationID)
	}

	h.logger.Debug("leads searched", map[string]interface{}{
		"band":      q.Band,
		"intent":    q.Intent,
		"totalHits": res.TotalHits,
	})
	return out, nil
}
