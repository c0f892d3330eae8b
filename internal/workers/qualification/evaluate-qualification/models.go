package evaluatequalification

type Input struct {
	ConversationID string `json:"conversationId"`
}

type Output struct {
	ConversationID     string   `json:"conversationId"`
	StateBuilt         bool     `json:"stateBuilt"`
	CompletenessPct    int      `json:"completenessPct"`
	CompletenessStatus string   `json:"completenessStatus,omitempty"`
	MandatoryMissing   []string `json:"mandatoryMissing"`
	LeadScore          float64  `json:"leadScore"`
	LeadBand           string   `json:"leadBand,omitempty"`
	Qualified          bool     `json:"qualified"`
}
