package checkhumantakeover

type Input struct {
	ConversationID string `json:"conversationId"`
	// RecordTakeover writes the takeover audit row when a trigger fires.
	RecordTakeover bool `json:"recordTakeover"`
}

type Output struct {
	ConversationID   string   `json:"conversationId"`
	NeedsHuman       bool     `json:"needsHuman"`
	TriggerReasons   []string `json:"triggerReasons"`
	TakeoverRecorded bool     `json:"takeoverRecorded"`
	TakeoverActionID int64    `json:"takeoverActionId,omitempty"`
}
