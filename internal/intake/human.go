package intake

import (
	"context"
	"strings"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/metrics"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/funnel/handoff"
	"funnel-workers/internal/models"
	"funnel-workers/internal/store"
)

const defaultTakeoverReason = "manual"

type HumanActionPayload struct {
	CorrectedIntent models.Intent          `json:"corrected_intent,omitempty"`
	FilledSlots     map[string]interface{} `json:"filled_slots,omitempty"`
	Action          models.HumanActionKind `json:"action,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
}

type HumanActionResult struct {
	ConversationID string `json:"conversation_id"`
	ActionID       int64  `json:"action_id"`
	Status         string `json:"status"`
}

type HandoffResult struct {
	ConversationID string   `json:"conversation_id"`
	NeedsHuman     bool     `json:"needs_human"`
	TriggerReasons []string `json:"trigger_reasons"`
}

// HumanTakeover records that an agent took over the conversation.
func (s *Service) HumanTakeover(ctx context.Context, id, reason string) (*HumanActionResult, error) {
	if _, err := s.store.GetConversation(ctx, id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultTakeoverReason
	}

	actionID, err := s.store.AppendHumanAction(ctx, &models.HumanAction{
		ConversationID: id,
		CreatedAt:      s.now(),
		TriggerReason:  reason,
		Action:         models.ActionNone,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("human takeover recorded", map[string]interface{}{
		"conversationId": id,
		"reason":         reason,
	})
	return &HumanActionResult{ConversationID: id, ActionID: actionID, Status: "recorded"}, nil
}

// HumanAction records a manual correction. A corrected intent replaces the
// conversation's primary intent for later builds.
func (s *Service) HumanAction(ctx context.Context, id string, payload *HumanActionPayload) (*HumanActionResult, error) {
	if res := validation.HumanActionPayload.Validate(payload); !res.Valid {
		return nil, appErrors.NewInvalidPayloadError(strings.Join(res.GetErrorMessages(), "; "))
	}

	defer s.locks.Lock(id)()

	if _, err := s.store.GetConversation(ctx, id); err != nil {
		return nil, err
	}

	action := payload.Action
	if action == "" {
		action = models.ActionNone
	}
	actionID, err := s.store.AppendHumanAction(ctx, &models.HumanAction{
		ConversationID:  id,
		CreatedAt:       s.now(),
		CorrectedIntent: payload.CorrectedIntent,
		FilledSlots:     payload.FilledSlots,
		Action:          action,
		Notes:           payload.Notes,
	})
	if err != nil {
		return nil, err
	}

	if payload.CorrectedIntent != "" {
		corrected := payload.CorrectedIntent
		if err := s.store.UpdateNLPResults(ctx, id, store.NLPUpdate{PrimaryIntent: &corrected}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("human action recorded", map[string]interface{}{
		"conversationId":  id,
		"action":          action,
		"correctedIntent": payload.CorrectedIntent,
	})
	return &HumanActionResult{ConversationID: id, ActionID: actionID, Status: "recorded"}, nil
}

// CheckHandoff evaluates the takeover triggers against the stored conversation.
func (s *Service) CheckHandoff(ctx context.Context, id string) (*HandoffResult, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	needs, reasons := handoff.Evaluate(intentConfidence(c), c.PrimaryIntent, conversationText(c))
	for _, r := range reasons {
		metrics.HandoffTriggers.WithLabelValues(r).Inc()
	}
	return &HandoffResult{ConversationID: id, NeedsHuman: needs, TriggerReasons: reasons}, nil
}

// intentConfidence reads the stored classifier confidence; nil when NLP never ran.
func intentConfidence(c *models.Conversation) *float64 {
	switch v := c.ExtractedFields["intent_confidence"].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}
