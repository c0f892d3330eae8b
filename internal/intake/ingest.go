package intake

import (
	"context"
	"regexp"
	"strings"
	"time"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/metrics"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/funnel/textnorm"
	"funnel-workers/internal/models"
	"funnel-workers/internal/store"
)

const (
	StatusRegistered  = "registered"
	registeredMessage = "Conversation ready for NLP"

	unknownSpeaker      = "unknown"
	noTranscriptText    = "[No transcript or audio_url]"
	maxAudioURLInNotice = 80
)

// speakerLine matches "Speaker: text" lines of a pre-transcribed call.
var speakerLine = regexp.MustCompile(`^([A-Za-z][\w .'-]{0,40}):\s*(.*)$`)

type IncomingTurn struct {
	SpeakerID string     `json:"speaker_id"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type ChatPayload struct {
	Channel        string         `json:"channel,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Turns          []IncomingTurn `json:"turns"`
}

type VoicePayload struct {
	Channel        string `json:"channel,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	AudioURL       string `json:"audio_url,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

type IngestResult struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

// IngestChat validates, normalizes and registers a text chat.
func (s *Service) IngestChat(ctx context.Context, payload *ChatPayload) (*IngestResult, error) {
	if res := validation.ChatPayload.Validate(payload); !res.Valid {
		return nil, appErrors.NewInvalidPayloadError(strings.Join(res.GetErrorMessages(), "; "))
	}

	turns := make([]models.SpeakerTurn, len(payload.Turns))
	for i, t := range payload.Turns {
		turns[i] = models.SpeakerTurn{SpeakerID: t.SpeakerID, Text: t.Text, Timestamp: t.Timestamp}
	}

	c := newConversation(payload.ConversationID, models.ChannelChat, turns)
	c.StartedAt = turns[0].Timestamp
	c.EndedAt = turns[len(turns)-1].Timestamp
	return s.register(ctx, c)
}

// IngestVoice registers a call. Transcription is out of scope: audio without a
// transcript is stored as a placeholder turn.
func (s *Service) IngestVoice(ctx context.Context, payload *VoicePayload) (*IngestResult, error) {
	if res := validation.VoicePayload.Validate(payload); !res.Valid {
		return nil, appErrors.NewInvalidPayloadError(strings.Join(res.GetErrorMessages(), "; "))
	}

	var turns []models.SpeakerTurn
	switch {
	case strings.TrimSpace(payload.Transcript) != "":
		turns = SplitTranscript(payload.Transcript)
	case payload.AudioURL != "":
		url := payload.AudioURL
		if len(url) > maxAudioURLInNotice {
			url = url[:maxAudioURLInNotice]
		}
		turns = []models.SpeakerTurn{{SpeakerID: unknownSpeaker, Text: "[Transcription not implemented: audio_url=" + url + "]"}}
	default:
		turns = []models.SpeakerTurn{{SpeakerID: unknownSpeaker, Text: noTranscriptText}}
	}

	return s.register(ctx, newConversation(payload.ConversationID, models.ChannelVoice, turns))
}

// SplitTranscript turns a pre-transcribed call into one turn per non-blank line.
func SplitTranscript(transcript string) []models.SpeakerTurn {
	var turns []models.SpeakerTurn
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := speakerLine.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[2]) != "" {
			turns = append(turns, models.SpeakerTurn{SpeakerID: strings.ToLower(strings.TrimSpace(m[1])), Text: m[2]})
			continue
		}
		turns = append(turns, models.SpeakerTurn{SpeakerID: unknownSpeaker, Text: line})
	}
	return turns
}

func newConversation(id string, channel models.ChannelSource, turns []models.SpeakerTurn) *models.Conversation {
	if id == "" {
		id = store.GenerateConversationID()
	}
	raw, clean, normalized := textnorm.NormalizeTurns(turns)
	return &models.Conversation{
		ConversationID: id,
		ChannelSource:  channel,
		RawTranscript:  raw,
		CleanText:      clean,
		SpeakerTurns:   normalized,
	}
}

func (s *Service) register(ctx context.Context, c *models.Conversation) (*IngestResult, error) {
	if err := s.store.RegisterConversation(ctx, c); err != nil {
		return nil, err
	}

	metrics.ConversationsIngested.WithLabelValues(string(c.ChannelSource)).Inc()
	s.logger.Info("conversation registered", map[string]interface{}{
		"conversationId": c.ConversationID,
		"channel":        c.ChannelSource,
		"turns":          len(c.SpeakerTurns),
	})

	return &IngestResult{
		ConversationID: c.ConversationID,
		Status:         StatusRegistered,
		Message:        registeredMessage,
	}, nil
}
