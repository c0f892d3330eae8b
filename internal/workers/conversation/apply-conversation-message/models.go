package applyconversationmessage

type Input struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type Output struct {
	ConversationID string `json:"conversationId"`
	Intent         string `json:"intent"`
	Stage          string `json:"stage"`
	FilledSlots    int    `json:"filledSlots"`
	// QuestionPending is false once nothing is left to ask.
	QuestionPending bool   `json:"questionPending"`
	NextSlot        string `json:"nextSlot,omitempty"`
	NextQuestion    string `json:"nextQuestion,omitempty"`
}
