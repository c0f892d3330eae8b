// Package followup picks the single next question to ask in a conversation.
package followup

import (
	"strings"
	"time"

	"funnel-workers/internal/models"
)

// QuestionSource is the slice of the slot registry the selector needs.
type QuestionSource interface {
	RequiredSlots(intent models.Intent) []string
	OptionalSlots(intent models.Intent) []string
	QuestionTemplates(slot string, intent models.Intent) []string
	FollowUpPriority() []string
}

var closurePhrases = []string{
	"that's all",
	"that is all",
	"goodbye",
	"good bye",
	"thanks that's it",
	"no more questions",
	"end conversation",
	"stop",
	"we're done",
	"we are done",
}

var closureExact = map[string]bool{
	"no":        true,
	"nope":      true,
	"that's it": true,
}

// IsClosure reports whether the user asked to end the conversation.
func IsClosure(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return false
	}
	if closureExact[msg] {
		return true
	}
	for _, p := range closurePhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

type Selector struct {
	registry QuestionSource
	fallback models.Intent
	now      func() time.Time
}

// NewSelector builds a selector. fallback is used for states without an intent.
func NewSelector(registry QuestionSource, fallback models.Intent, now func() time.Time) *Selector {
	if fallback == "" {
		fallback = models.IntentNewProjectSales
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Selector{registry: registry, fallback: fallback, now: now}
}

// ShouldStop reports whether the state needs no further questions.
func (s *Selector) ShouldStop(st models.ConversationState) bool {
	switch st.Stage {
	case models.StageConversationClosure, models.StageMinimumCompletenessReached:
		return true
	}
	for _, slot := range s.registry.RequiredSlots(st.Intent.Or(s.fallback)) {
		status := st.GetSlot(slot).Status
		if status != models.SlotFilled && status != models.SlotUnavailable {
			return false
		}
	}
	return true
}

// NextQuestion returns the question for the highest-priority missing slot.
// The bool is false when nothing should be asked.
func (s *Selector) NextQuestion(st models.ConversationState, turnIndex int, lastUserMessage string) (models.NextQuestion, bool) {
	if s.ShouldStop(st) || IsClosure(lastUserMessage) {
		return models.NextQuestion{}, false
	}

	intent := st.Intent.Or(s.fallback)
	for _, slot := range s.candidates(intent) {
		if st.GetSlot(slot).Status != models.SlotMissing {
			continue
		}
		if st.LastQuestionAsked == slot {
			continue
		}
		templates := s.registry.QuestionTemplates(slot, intent)
		if len(templates) == 0 {
			continue
		}
		idx := turnIndex % len(templates)
		if idx < 0 {
			idx += len(templates)
		}
		return models.NextQuestion{Slot: slot, Question: templates[idx]}, true
	}
	return models.NextQuestion{}, false
}

// candidates orders required slots then optional ones by the global priority list.
func (s *Selector) candidates(intent models.Intent) []string {
	required := toSet(s.registry.RequiredSlots(intent))
	optional := toSet(s.registry.OptionalSlots(intent))
	priority := s.registry.FollowUpPriority()

	out := make([]string, 0, len(required)+len(optional))
	for _, slot := range priority {
		if required[slot] {
			out = append(out, slot)
		}
	}
	for _, slot := range priority {
		if optional[slot] && !required[slot] {
			out = append(out, slot)
		}
	}
	return out
}

// QuestionAsked records that slot was just presented to the user.
func (s *Selector) QuestionAsked(st models.ConversationState, slot string) models.ConversationState {
	now := s.now()
	out := st.Clone()
	out.LastQuestionAsked = slot
	out.LastQuestionAt = &now
	out.UpdatedAt = &now
	return out
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, v := range items {
		m[v] = true
	}
	return m
}
