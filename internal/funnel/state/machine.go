// Package state owns the per-conversation slot map. Every transition is a pure
// function of the previous snapshot and one message; callers persist the result.
package state

import (
	"fmt"
	"strings"
	"time"

	"funnel-workers/internal/funnel/extract"
	"funnel-workers/internal/models"
)

// SlotRegistry is the part of the slot table the state machine reads.
type SlotRegistry interface {
	RequiredSlots(intent models.Intent) []string
	OptionalSlots(intent models.Intent) []string
	AllSlots(intent models.Intent) []string
	RefusalPhrases(slot string, intent models.Intent) []string
}

// FullTranscriptSource is the source id used for single-shot builds.
const FullTranscriptSource = "full_transcript"

// minRefusalLength keeps very short replies such as "no" from refusing a slot.
const minRefusalLength = 3

var bareNegatives = map[string]bool{
	"no": true, "nope": true, "skip": true, "pass": true, "rather not": true,
}

var agentRoles = map[string]bool{
	"agent": true, "bot": true, "system": true,
}

// Turn is one (speaker, text) pair for replay.
type Turn struct {
	SpeakerID string
	Text      string
}

// Options tunes a Machine. Zero values fall back to defaults.
type Options struct {
	FallbackIntent models.Intent
	BaseConfidence float64
	Now            func() time.Time
}

// Machine applies messages to conversation state. It holds no per-conversation data
// and is safe for concurrent use.
type Machine struct {
	registry   SlotRegistry
	extractor  *extract.Extractor
	fallback   models.Intent
	confidence float64
	now        func() time.Time
}

func NewMachine(registry SlotRegistry, opts Options) *Machine {
	if opts.FallbackIntent == "" {
		opts.FallbackIntent = models.IntentNewProjectSales
	}
	if opts.BaseConfidence == 0 {
		opts.BaseConfidence = extract.DefaultConfidence
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Machine{
		registry:   registry,
		extractor:  extract.NewExtractor(opts.Now),
		fallback:   opts.FallbackIntent,
		confidence: opts.BaseConfidence,
		now:        opts.Now,
	}
}

// FallbackIntent is the intent used when neither the caller nor the state has one.
func (m *Machine) FallbackIntent() models.Intent {
	return m.fallback
}

// Initial returns a fresh state in intent discovery.
func (m *Machine) Initial(intent models.Intent) models.ConversationState {
	return models.ConversationState{
		Intent: intent.Or(m.fallback),
		Slots:  map[string]models.SlotValue{},
		Stage:  models.StageIntentDiscovery,
	}
}

// ApplyMessage folds one message into state and returns the new snapshot.
func (m *Machine) ApplyMessage(st models.ConversationState, text, sourceID string, intent models.Intent, isUserTurn bool) models.ConversationState {
	effective := intent.Or(st.Intent).Or(m.fallback)
	if effective == "" {
		return st
	}

	now := m.now()
	required := m.registry.RequiredSlots(effective)
	all := m.registry.AllSlots(effective)
	inScope := make(map[string]bool, len(all))
	for _, s := range all {
		inScope[s] = true
	}

	slots := make(map[string]models.SlotValue, len(all))
	for name, v := range st.Slots {
		if inScope[name] {
			slots[name] = v
		}
	}

	if isUserTurn && inScope[st.LastQuestionAsked] && m.isRefusal(text, st.LastQuestionAsked, effective) {
		prev := st.GetSlot(st.LastQuestionAsked)
		slots[st.LastQuestionAsked] = models.SlotValue{
			Value:      prev.Value,
			Status:     models.SlotRefused,
			Confidence: prev.Confidence,
			Source:     prev.Source,
			Timestamp:  &now,
		}
	}

	for name, candidate := range m.extractor.ExtractSlots(text, sourceID, m.confidence) {
		if !inScope[name] {
			continue
		}
		existing, ok := slots[name]
		if ok && existing.Status.Frozen() {
			continue
		}
		if ok && existing.Value != nil && candidate.Confidence <= existing.Confidence {
			continue
		}
		slots[name] = candidate
	}

	for _, name := range all {
		sv, ok := slots[name]
		if ok && sv.Status.Frozen() {
			continue
		}
		if ok && sv.HasValue() {
			sv.Status = models.SlotFilled
			slots[name] = sv
		} else {
			slots[name] = models.MissingSlot()
		}
	}

	stage := models.StageMinimumCompletenessReached
	for _, name := range required {
		if slots[name].Status != models.SlotFilled {
			stage = models.StageSlotFilling
			break
		}
	}

	return models.ConversationState{
		Intent:            effective,
		Slots:             slots,
		LastQuestionAsked: st.LastQuestionAsked,
		LastQuestionAt:    st.LastQuestionAt,
		Stage:             stage,
		UpdatedAt:         &now,
	}
}

func (m *Machine) isRefusal(text, slot string, intent models.Intent) bool {
	msg := strings.ToLower(strings.TrimSpace(text))
	if len(msg) < minRefusalLength {
		return false
	}
	for _, phrase := range m.registry.RefusalPhrases(slot, intent) {
		if strings.Contains(msg, strings.ToLower(phrase)) {
			return true
		}
	}
	return bareNegatives[msg]
}

// IsUserSpeaker reports whether speakerID is not one of the agent roles.
func IsUserSpeaker(speakerID string) bool {
	return !agentRoles[strings.ToLower(speakerID)]
}

// SourceID names the turn a value came from.
func SourceID(index int) string {
	return fmt.Sprintf("turn_%d", index)
}

// BuildFromTurns replays turns in order. Blank turns are skipped but keep their index.
func (m *Machine) BuildFromTurns(turns []Turn, intent models.Intent) models.ConversationState {
	st := m.Initial(intent)
	for i, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		st = m.ApplyMessage(st, text, SourceID(i), intent, IsUserSpeaker(t.SpeakerID))
	}
	return st
}

// BuildFromFullText treats the whole transcript as one user message.
func (m *Machine) BuildFromFullText(fullText string, intent models.Intent) models.ConversationState {
	return m.ApplyMessage(m.Initial(intent), fullText, FullTranscriptSource, intent, true)
}

// TurnsFromSpeakerTurns adapts stored speaker turns for replay.
func TurnsFromSpeakerTurns(in []models.SpeakerTurn) []Turn {
	out := make([]Turn, len(in))
	for i, t := range in {
		out[i] = Turn{SpeakerID: t.SpeakerID, Text: t.Text}
	}
	return out
}
