package searchleads

type Input struct {
	Band     string  `json:"band,omitempty"`
	Intent   string  `json:"intent,omitempty"`
	MinScore float64 `json:"minScore,omitempty"`
	Text     string  `json:"text,omitempty"`
	From     int     `json:"from,omitempty"`
	Size     int     `json:"size,omitempty"`
}

type LeadSummary struct {
	ConversationID string  `json:"conversationId"`
	Intent         string  `json:"intent"`
	LeadScore      float64 `json:"leadScore"`
	LeadBand       string  `json:"leadBand"`
	Name           string  `json:"name,omitempty"`
	Country        string  `json:"country,omitempty"`
	ProjectType    string  `json:"projectType,omitempty"`
}

type Output struct {
	TotalHits       int64         `json:"totalHits"`
	Leads           []LeadSummary `json:"leads"`
	ConversationIDs []string      `json:"conversationIds"`
}
