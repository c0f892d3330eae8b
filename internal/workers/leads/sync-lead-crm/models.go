package syncleadcrm

type Input struct {
	ConversationID string `json:"conversationId"`
}

type Output struct {
	ConversationID string  `json:"conversationId"`
	LeadBand       string  `json:"leadBand"`
	LeadScore      float64 `json:"leadScore"`
	CRMLeadID      string  `json:"crmLeadId,omitempty"`
	Created        bool    `json:"crmCreated"`
	Synced         bool    `json:"crmSynced"`
	SkipReason     string  `json:"crmSkipReason,omitempty"`
}
