package notifyhotlead

type Input struct {
	ConversationID string `json:"conversationId"`
	LeadID         *int64 `json:"leadId,omitempty"`
}

type Output struct {
	ConversationID     string   `json:"conversationId"`
	LeadBand           string   `json:"leadBand"`
	LeadScore          float64  `json:"leadScore"`
	NotificationStatus string   `json:"notificationStatus"`
	EmailSent          bool     `json:"emailSent"`
	SMSSent            bool     `json:"smsSent"`
	MessageIDs         []string `json:"messageIds,omitempty"`
	NotifiedAt         string   `json:"notifiedAt"`
}
