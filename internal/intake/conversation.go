package intake

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/metrics"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/funnel/nlp"
	"funnel-workers/internal/funnel/state"
	"funnel-workers/internal/models"
	"funnel-workers/internal/search"
	"funnel-workers/internal/store"
)

const StatusProcessed = "processed"

type NLPResult struct {
	ConversationID string     `json:"conversation_id"`
	Status         string     `json:"status"`
	NLP            nlp.Result `json:"nlp"`
}

// BuildResult is the outcome of a full state build.
type BuildResult struct {
	ConversationID string                    `json:"conversation_id"`
	State          models.ConversationState  `json:"state"`
	Completeness   models.CompletenessResult `json:"completeness"`
	Lead           models.LeadScoreResult    `json:"lead"`
	NextQuestion   *models.NextQuestion      `json:"next_question"`
	RunID          int64                     `json:"run_id"`
	LeadID         *int64                    `json:"lead_id,omitempty"`
}

type MessageResult struct {
	ConversationID string                   `json:"conversation_id"`
	State          models.ConversationState `json:"state"`
	NextQuestion   *models.NextQuestion     `json:"next_question"`
}

type QualificationResult struct {
	ConversationID string                     `json:"conversation_id"`
	Completeness   *models.CompletenessResult `json:"completeness"`
	Lead           *models.LeadScoreResult    `json:"lead"`
}

type StateResult struct {
	ConversationID string                    `json:"conversation_id"`
	State          *models.ConversationState `json:"state"`
	Message        string                    `json:"message,omitempty"`
}

// ProcessNLP runs the NLP pipeline on a stored conversation and persists the result.
func (s *Service) ProcessNLP(ctx context.Context, id string) (*NLPResult, error) {
	defer s.locks.Lock(id)()

	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	res := s.engine.Pipeline.Run(conversationText(c), c.TurnTexts())
	primary := res.FinalIntent.PrimaryIntent
	tags := res.FinalIntent.SecondaryTags
	if tags == nil {
		tags = []string{}
	}
	if err := s.store.UpdateNLPResults(ctx, id, store.NLPUpdate{
		PrimaryIntent:   &primary,
		SecondaryTags:   tags,
		ExtractedFields: res.ExtractedFields(),
		Language:        &res.Language,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("nlp processed", map[string]interface{}{
		"conversationId": id,
		"intent":         primary,
		"confidence":     res.FinalIntent.Confidence,
		"tentative":      res.TentativeIntent.PrimaryIntent,
	})
	return &NLPResult{ConversationID: id, Status: StatusProcessed, NLP: res}, nil
}

// BuildState replays the stored conversation into a fresh state and records the
// qualification. A failed snapshot save aborts the build before anything else is written.
func (s *Service) BuildState(ctx context.Context, id string) (*BuildResult, error) {
	defer s.locks.Lock(id)()

	ctx, span := s.obs.StartSpan(ctx, "intake.build_state", "conversation_id", id)
	defer span.End()

	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	text := conversationText(c)
	st := s.engine.Replay(c.SpeakerTurns, text, c.PrimaryIntent)
	if err := s.store.SaveStateSnapshot(ctx, id, st); err != nil {
		return nil, err
	}

	numTurns := len(c.SpeakerTurns)
	if numTurns == 0 {
		numTurns = 1
	}
	comp, lead := s.engine.Qualify(st, numTurns, text)

	if err := s.store.UpdateQualification(ctx, id, comp.Status, lead.Score, lead.Band); err != nil {
		return nil, err
	}

	runID, err := s.store.AppendProcessingRun(ctx, &models.ProcessingRun{
		ConversationID:    id,
		CreatedAt:         s.now(),
		NLPOutput:         c.ExtractedFields,
		State:             st,
		CompletenessPct:   comp.Percent,
		MandatoryMissing:  comp.MandatoryMissing,
		CompletenessLabel: comp.Status,
		LeadScore:         lead.Score,
		LeadBand:          lead.Band,
		LeadBreakdown:     lead.Breakdown,
	})
	if err != nil {
		return nil, err
	}

	result := &BuildResult{
		ConversationID: id,
		State:          st,
		Completeness:   comp,
		Lead:           lead,
		RunID:          runID,
	}

	if comp.Status.Qualifies() {
		record := &models.LeadRecord{
			ConversationID:    id,
			CreatedAt:         s.now(),
			Intent:            st.Intent,
			Slots:             st.Slots,
			CompletenessPct:   comp.Percent,
			CompletenessLabel: comp.Status,
			LeadScore:         lead.Score,
			LeadBand:          lead.Band,
			LeadBreakdown:     lead.Breakdown,
		}
		leadID, err := s.store.AppendLead(ctx, record)
		if err != nil {
			return nil, err
		}
		record.LeadID = leadID
		result.LeadID = &leadID
		metrics.LeadsRecorded.WithLabelValues(string(lead.Band)).Inc()
		s.leadSideEffects(ctx, record, c.SecondaryTags)
	}

	metrics.StateBuilds.WithLabelValues(string(st.Intent), string(comp.Status)).Inc()
	metrics.LeadScores.WithLabelValues(string(st.Intent)).Observe(lead.Score)

	if q, ok := s.engine.Selector.NextQuestion(st, len(c.SpeakerTurns), ""); ok {
		result.NextQuestion = &q
	}

	s.logger.Info("state built", map[string]interface{}{
		"conversationId": id,
		"intent":         st.Intent,
		"stage":          st.Stage,
		"completeness":   comp.Status,
		"leadScore":      lead.Score,
		"leadBand":       lead.Band,
	})
	return result, nil
}

// leadSideEffects indexes the lead and notifies on hot leads. Both are best effort.
func (s *Service) leadSideEffects(ctx context.Context, lead *models.LeadRecord, tags []string) {
	if s.index == nil && s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.sideEffectTimeout)
	defer cancel()

	var g errgroup.Group
	if s.index != nil {
		g.Go(func() error {
			if err := s.index.IndexLead(ctx, search.DocumentFromLead(lead, tags)); err != nil {
				s.logger.Warn("lead indexing failed", map[string]interface{}{
					"conversationId": lead.ConversationID,
					"error":          err.Error(),
				})
			}
			return nil
		})
	}
	if s.notifier != nil && lead.LeadBand == models.BandHot {
		g.Go(func() error {
			res, err := s.notifier.NotifyHotLead(ctx, lead)
			if err != nil {
				s.logger.Warn("hot lead notification failed", map[string]interface{}{
					"conversationId": lead.ConversationID,
					"error":          err.Error(),
				})
				return nil
			}
			s.logger.Debug("hot lead notified", map[string]interface{}{
				"conversationId": lead.ConversationID,
				"status":         res.Status,
			})
			return nil
		})
	}
	_ = g.Wait()
}

// ApplyMessage folds one user message into the stored state. The message is not
// appended to the transcript, so repeated calls on an unchanged conversation share
// the same turn_<n> source. When a follow-up question is returned it is recorded
// as asked in the saved snapshot.
func (s *Service) ApplyMessage(ctx context.Context, id, text string) (*MessageResult, error) {
	if res := validation.MessagePayload.Validate(map[string]interface{}{"text": text}); !res.Valid {
		return nil, appErrors.NewInvalidPayloadError(strings.Join(res.GetErrorMessages(), "; "))
	}

	defer s.locks.Lock(id)()

	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	st, err := s.currentState(ctx, c)
	if err != nil {
		return nil, err
	}

	in := st.Intent.Or(c.PrimaryIntent).Or(s.engine.Fallback)
	turn := len(c.SpeakerTurns) + 1
	next := s.engine.Machine.ApplyMessage(st, text, state.SourceID(turn), in, true)

	result := &MessageResult{ConversationID: id}
	if q, ok := s.engine.Selector.NextQuestion(next, turn, text); ok {
		next = s.engine.Selector.QuestionAsked(next, q.Slot)
		result.NextQuestion = &q
	}
	if err := s.store.SaveStateSnapshot(ctx, id, next); err != nil {
		return nil, err
	}
	s.obs.RecordMessageApplied(ctx, string(next.Intent), string(next.Stage))
	if result.NextQuestion != nil {
		s.obs.RecordQuestionAsked(ctx, result.NextQuestion.Slot)
	}

	result.State = next
	return result, nil
}

// currentState returns the stored snapshot, or a single-shot build from the full text.
func (s *Service) currentState(ctx context.Context, c *models.Conversation) (models.ConversationState, error) {
	snap, err := s.store.GetStateSnapshot(ctx, c.ConversationID)
	if err != nil {
		return models.ConversationState{}, err
	}
	if snap != nil {
		return *snap, nil
	}
	return s.engine.Machine.BuildFromFullText(conversationText(c), c.PrimaryIntent.Or(s.engine.Fallback)), nil
}

func (s *Service) Conversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// GetState returns the stored snapshot; State is nil when no build has run yet.
func (s *Service) GetState(ctx context.Context, id string) (*StateResult, error) {
	if _, err := s.store.GetConversation(ctx, id); err != nil {
		return nil, err
	}
	snap, err := s.store.GetStateSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return &StateResult{ConversationID: id, Message: appErrors.NewStateNotBuiltError(id).Message}, nil
	}
	return &StateResult{ConversationID: id, State: snap}, nil
}

// Qualification scores the stored snapshot without writing anything.
func (s *Service) Qualification(ctx context.Context, id string) (*QualificationResult, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.GetStateSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return &QualificationResult{ConversationID: id}, nil
	}

	numTurns := len(c.SpeakerTurns)
	if numTurns == 0 {
		numTurns = 1
	}
	comp, lead := s.engine.Qualify(*snap, numTurns, conversationText(c))
	return &QualificationResult{ConversationID: id, Completeness: &comp, Lead: &lead}, nil
}

// LeadRecord scores the stored snapshot into a lead record for downstream
// notification and CRM steps. Nothing is written.
func (s *Service) LeadRecord(ctx context.Context, id string) (*models.LeadRecord, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.GetStateSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, appErrors.NewStateNotBuiltError(id)
	}

	numTurns := len(c.SpeakerTurns)
	if numTurns == 0 {
		numTurns = 1
	}
	comp, lead := s.engine.Qualify(*snap, numTurns, conversationText(c))
	return &models.LeadRecord{
		ConversationID:    id,
		CreatedAt:         s.now(),
		Intent:            snap.Intent,
		Slots:             snap.Slots,
		CompletenessPct:   comp.Percent,
		CompletenessLabel: comp.Status,
		LeadScore:         lead.Score,
		LeadBand:          lead.Band,
		LeadBreakdown:     lead.Breakdown,
	}, nil
}
