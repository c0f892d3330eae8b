package recordhumanaction

// Input is a correction submitted from a user task in the process.
type Input struct {
	ConversationID  string                 `json:"conversationId"`
	CorrectedIntent string                 `json:"correctedIntent,omitempty"`
	FilledSlots     map[string]interface{} `json:"filledSlots,omitempty"`
	Action          string                 `json:"action,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
}

type Output struct {
	ConversationID string `json:"conversationId"`
	ActionID       int64  `json:"actionId"`
	ActionStatus   string `json:"actionStatus"`
	// IntentCorrected tells the process to rebuild the state.
	IntentCorrected bool `json:"intentCorrected"`
}
