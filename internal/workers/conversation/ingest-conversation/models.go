package ingestconversation

import "time"

type Turn struct {
	SpeakerID string     `json:"speakerId"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Input carries either chat turns or a voice transcript/audio reference.
type Input struct {
	Channel        string `json:"channel"`
	ConversationID string `json:"conversationId,omitempty"`
	Turns          []Turn `json:"turns,omitempty"`
	AudioURL       string `json:"audioUrl,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

type Output struct {
	ConversationID string `json:"conversationId"`
	Channel        string `json:"channel"`
	IngestStatus   string `json:"ingestStatus"`
	Message        string `json:"message"`
}
