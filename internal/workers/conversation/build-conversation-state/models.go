package buildconversationstate

type Input struct {
	ConversationID string `json:"conversationId"`
}

// Output flattens the build result into gateway-friendly variables.
type Output struct {
	ConversationID     string   `json:"conversationId"`
	Intent             string   `json:"intent"`
	Stage              string   `json:"stage"`
	CompletenessPct    int      `json:"completenessPct"`
	CompletenessStatus string   `json:"completenessStatus"`
	MandatoryMissing   []string `json:"mandatoryMissing"`
	LeadScore          float64  `json:"leadScore"`
	LeadBand           string   `json:"leadBand"`
	Qualified          bool     `json:"qualified"`
	LeadID             *int64   `json:"leadId,omitempty"`
	RunID              int64    `json:"runId"`
	NextSlot           string   `json:"nextSlot,omitempty"`
	NextQuestion       string   `json:"nextQuestion,omitempty"`
}
