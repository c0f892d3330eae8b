package detectintent

type Input struct {
	ConversationID string `json:"conversationId"`
}

type Output struct {
	ConversationID   string                 `json:"conversationId"`
	PrimaryIntent    string                 `json:"primaryIntent"`
	IntentConfidence float64                `json:"intentConfidence"`
	SecondaryTags    []string               `json:"secondaryTags"`
	Language         string                 `json:"language"`
	ExtractedFields  map[string]interface{} `json:"extractedFields"`
	NLPStatus        string                 `json:"nlpStatus"`
}
