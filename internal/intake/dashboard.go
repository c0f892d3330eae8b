package intake

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"funnel-workers/internal/funnel/handoff"
	"funnel-workers/internal/models"
)

type HomeView struct {
	Today              []models.DashboardRow `json:"today"`
	HotLeads           []models.DashboardRow `json:"hot_leads"`
	EstimationRequests []models.DashboardRow `json:"estimation_requests"`
	Complaints         []models.DashboardRow `json:"complaints"`
}

// Drilldown is the per-conversation view shown to a sales agent.
type Drilldown struct {
	ConversationID   string                    `json:"conversation_id"`
	Summary          string                    `json:"summary"`
	Intent           models.Intent             `json:"intent"`
	Tags             []string                  `json:"tags"`
	ExtractedDetails map[string]interface{}    `json:"extracted_details"`
	State            *models.ConversationState `json:"state"`
	MissingFields    []string                  `json:"missing_fields"`
	FullTranscript   string                    `json:"full_transcript"`
	LeadScore        *float64                  `json:"lead_score,omitempty"`
	LeadBand         string                    `json:"lead_band,omitempty"`
	NeedsHuman       bool                      `json:"needs_human"`
	TriggerReasons   []string                  `json:"trigger_reasons"`
}

// Today lists conversations created since midnight UTC.
func (s *Service) Today(ctx context.Context) ([]models.DashboardRow, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.store.ListConversationsSince(ctx, midnight)
}

func (s *Service) HotLeads(ctx context.Context) ([]models.DashboardRow, error) {
	return s.store.ListHotLeads(ctx, s.hotLeadMinScore)
}

func (s *Service) ByIntent(ctx context.Context, in models.Intent) ([]models.DashboardRow, error) {
	return s.store.ListConversationsByIntent(ctx, in)
}

// Home loads the four dashboard lists concurrently.
func (s *Service) Home(ctx context.Context) (*HomeView, error) {
	var view HomeView
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.Today, err = s.Today(ctx)
		return err
	})
	g.Go(func() (err error) {
		view.HotLeads, err = s.HotLeads(ctx)
		return err
	})
	g.Go(func() (err error) {
		view.EstimationRequests, err = s.ByIntent(ctx, models.IntentPriceEstimation)
		return err
	})
	g.Go(func() (err error) {
		view.Complaints, err = s.ByIntent(ctx, models.IntentComplaintIssue)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &view, nil
}

// Drilldown assembles the agent view of one conversation.
func (s *Service) Drilldown(ctx context.Context, id string) (*Drilldown, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.GetStateSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Drilldown{
		ConversationID:   id,
		Summary:          c.AutoSummary,
		Intent:           c.PrimaryIntent,
		Tags:             c.SecondaryTags,
		ExtractedDetails: c.ExtractedFields,
		State:            snap,
		MissingFields:    []string{},
		FullTranscript:   c.RawTranscript,
		LeadScore:        c.LeadScore,
		LeadBand:         c.LeadBand,
	}
	if snap != nil {
		d.MissingFields = s.engine.Evaluator.Completeness(*snap).MandatoryMissing
	}
	d.NeedsHuman, d.TriggerReasons = handoff.Evaluate(intentConfidence(c), c.PrimaryIntent, conversationText(c))
	return d, nil
}
