package models

import "time"

// Intent is the detected purpose of a conversation.
type Intent string

const (
	IntentNewProjectSales      Intent = "new_project_sales"
	IntentPriceEstimation      Intent = "price_estimation"
	IntentGeneralServicesQuery Intent = "general_services_query"
	IntentComplaintIssue       Intent = "complaint_issue"
	IntentSuggestionFeedback   Intent = "suggestion_feedback"
	IntentCareerHiring         Intent = "career_hiring"
	IntentUnknownChitchat      Intent = "unknown_chitchat"
)

// AllIntents lists intents in classifier order; ties resolve to the earlier entry.
var AllIntents = []Intent{
	IntentNewProjectSales,
	IntentPriceEstimation,
	IntentGeneralServicesQuery,
	IntentComplaintIssue,
	IntentSuggestionFeedback,
	IntentCareerHiring,
	IntentUnknownChitchat,
}

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// Or returns i, or fallback when i is empty.
func (i Intent) Or(fallback Intent) Intent {
	if i == "" {
		return fallback
	}
	return i
}

type SlotStatus string

const (
	SlotMissing     SlotStatus = "missing"
	SlotFilled      SlotStatus = "filled"
	SlotRefused     SlotStatus = "refused"
	SlotUnavailable SlotStatus = "unavailable"
)

// Frozen slots are never overwritten by extraction or normalization.
func (s SlotStatus) Frozen() bool {
	return s == SlotRefused || s == SlotUnavailable
}

type Stage string

const (
	StageIntentDiscovery            Stage = "intent_discovery"
	StageSlotFilling                Stage = "slot_filling"
	StageMinimumCompletenessReached Stage = "minimum_completeness_reached"
	StageOptionalEnrichment         Stage = "optional_enrichment"
	StageConversationClosure        Stage = "conversation_closure"
)

// SlotValue is one slot with its provenance. Value holds a string, a float64 or nil.
type SlotValue struct {
	Value      interface{} `json:"value"`
	Status     SlotStatus  `json:"status"`
	Confidence float64     `json:"confidence"`
	Source     string      `json:"source,omitempty"`
	Timestamp  *time.Time  `json:"timestamp,omitempty"`
}

// MissingSlot is the zero-information slot value.
func MissingSlot() SlotValue {
	return SlotValue{Status: SlotMissing}
}

// HasValue reports whether the value is non-nil and not the empty string.
func (v SlotValue) HasValue() bool {
	if v.Value == nil {
		return false
	}
	if s, ok := v.Value.(string); ok {
		return s != ""
	}
	return true
}

// ConversationState is an immutable snapshot; every transition returns a new value.
type ConversationState struct {
	Intent            Intent               `json:"intent,omitempty"`
	Slots             map[string]SlotValue `json:"slots"`
	LastQuestionAsked string               `json:"last_question_asked,omitempty"`
	LastQuestionAt    *time.Time           `json:"last_question_at,omitempty"`
	Stage             Stage                `json:"stage"`
	UpdatedAt         *time.Time           `json:"updated_at,omitempty"`
}

// GetSlot returns the named slot, or a missing slot when absent.
func (s ConversationState) GetSlot(name string) SlotValue {
	if v, ok := s.Slots[name]; ok {
		return v
	}
	return MissingSlot()
}

// Clone copies the state including its slot map.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Slots = make(map[string]SlotValue, len(s.Slots))
	for k, v := range s.Slots {
		out.Slots[k] = v
	}
	return out
}

// SpeakerTurn is one utterance in a transcript.
type SpeakerTurn struct {
	SpeakerID string     `json:"speaker_id"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type ChannelSource string

const (
	ChannelChat  ChannelSource = "chat"
	ChannelVoice ChannelSource = "voice"
)

// Conversation is the persisted record of one ingested conversation.
type Conversation struct {
	ConversationID     string                 `json:"conversation_id"`
	ChannelSource      ChannelSource          `json:"channel_source"`
	RawTranscript      string                 `json:"raw_transcript"`
	CleanText          string                 `json:"clean_text"`
	SpeakerTurns       []SpeakerTurn          `json:"speaker_turns"`
	StartedAt          *time.Time             `json:"started_at,omitempty"`
	EndedAt            *time.Time             `json:"ended_at,omitempty"`
	Language           string                 `json:"language"`
	PrimaryIntent      Intent                 `json:"primary_intent,omitempty"`
	SecondaryTags      []string               `json:"secondary_tags"`
	ExtractedFields    map[string]interface{} `json:"extracted_fields"`
	CompletenessStatus string                 `json:"completeness_status"`
	AutoSummary        string                 `json:"auto_summary,omitempty"`
	LeadScore          *float64               `json:"lead_score,omitempty"`
	LeadBand           string                 `json:"lead_band,omitempty"`
	GeoMetadata        map[string]interface{} `json:"geo_metadata,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// TurnTexts returns the text of every speaker turn in order.
func (c *Conversation) TurnTexts() []string {
	out := make([]string, 0, len(c.SpeakerTurns))
	for _, t := range c.SpeakerTurns {
		out = append(out, t.Text)
	}
	return out
}
