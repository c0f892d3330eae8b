package models

import "time"

// HistoryEntry is one line of a live session transcript.
type HistoryEntry struct {
	Role string `json:"role"` // "user" or "bot"
	Text string `json:"text"`
}

// LiveSession is an interactive conversation held in the session store.
type LiveSession struct {
	SessionID                   string            `json:"session_id"`
	State                       ConversationState `json:"state"`
	TurnIndex                   int               `json:"turn_index"`
	History                     []HistoryEntry    `json:"history"`
	CreatedAt                   time.Time         `json:"created_at"`
	QuotationRequestID          *int64            `json:"quotation_request_id,omitempty"`
	AwaitingAcceptanceQuotation *int64            `json:"quotation_awaiting_acceptance,omitempty"`
}

// Append adds a history line.
func (s *LiveSession) Append(role, text string) {
	s.History = append(s.History, HistoryEntry{Role: role, Text: text})
}
