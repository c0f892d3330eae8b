package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/models"
)

const conversationColumns = `conversation_id, channel_source, raw_transcript, clean_text, speaker_turns,
	started_at, ended_at, language, primary_intent, secondary_tags, extracted_fields,
	completeness_status, auto_summary, lead_score, lead_band, geo_metadata, created_at, updated_at`

// RegisterConversation inserts c, replacing any previous record with the same id.
// Replacing resets NLP results, scores and the state snapshot.
func (s *Store) RegisterConversation(ctx context.Context, c *models.Conversation) error {
	defer s.observe("register_conversation")()

	turns, err := marshalJSON(c.SpeakerTurns)
	if err != nil {
		return appErrors.NewInvalidPayloadError(err.Error())
	}
	now := s.now()

	_, err = s.pg.Exec(ctx, `
		INSERT INTO conversations (
			conversation_id, channel_source, raw_transcript, clean_text, speaker_turns,
			started_at, ended_at, language, primary_intent, secondary_tags, extracted_fields,
			completeness_status, auto_summary, lead_score, lead_band, geo_metadata, state,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'en', NULL, '[]', '{}', 'unknown', NULL, NULL, NULL, '{}', NULL, $8, $8)
		ON CONFLICT (conversation_id) DO UPDATE SET
			channel_source = EXCLUDED.channel_source,
			raw_transcript = EXCLUDED.raw_transcript,
			clean_text = EXCLUDED.clean_text,
			speaker_turns = EXCLUDED.speaker_turns,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			language = EXCLUDED.language,
			primary_intent = NULL,
			secondary_tags = EXCLUDED.secondary_tags,
			extracted_fields = EXCLUDED.extracted_fields,
			completeness_status = EXCLUDED.completeness_status,
			auto_summary = NULL,
			lead_score = NULL,
			lead_band = NULL,
			geo_metadata = EXCLUDED.geo_metadata,
			state = NULL,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`,
		c.ConversationID, string(c.ChannelSource), c.RawTranscript, c.CleanText, turns,
		c.StartedAt, c.EndedAt, now,
	)
	if err != nil {
		return queryError("register_conversation", err)
	}

	c.Language = "en"
	c.CompletenessStatus = "unknown"
	c.CreatedAt = now
	c.UpdatedAt = now
	s.evictSnapshot(ctx, c.ConversationID)
	return nil
}

// GetConversation loads one conversation record.
func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	defer s.observe("get_conversation")()

	row := s.pg.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE conversation_id = $1`, id)

	var (
		c                        models.Conversation
		channel                  string
		turns, tags, fields, geo []byte
		startedAt, endedAt       sql.NullTime
		intent, summary, band    sql.NullString
		score                    sql.NullFloat64
	)
	err := row.Scan(&c.ConversationID, &channel, &c.RawTranscript, &c.CleanText, &turns,
		&startedAt, &endedAt, &c.Language, &intent, &tags, &fields,
		&c.CompletenessStatus, &summary, &score, &band, &geo, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewConversationNotFoundError(id)
	}
	if err != nil {
		return nil, queryError("get_conversation", err)
	}

	c.ChannelSource = models.ChannelSource(channel)
	c.StartedAt = timePtr(startedAt)
	c.EndedAt = timePtr(endedAt)
	c.PrimaryIntent = models.Intent(intent.String)
	c.AutoSummary = summary.String
	c.LeadScore = floatPtr(score)
	c.LeadBand = band.String

	c.SpeakerTurns = []models.SpeakerTurn{}
	c.SecondaryTags = []string{}
	c.ExtractedFields = map[string]interface{}{}
	c.GeoMetadata = map[string]interface{}{}
	for _, f := range []struct {
		raw []byte
		dst interface{}
	}{{turns, &c.SpeakerTurns}, {tags, &c.SecondaryTags}, {fields, &c.ExtractedFields}, {geo, &c.GeoMetadata}} {
		if err := unmarshalJSON(f.raw, f.dst); err != nil {
			return nil, appErrors.NewStateDecodeFailedError(id, err)
		}
	}
	return &c, nil
}

// NLPUpdate carries pipeline output. Nil fields keep the stored value.
type NLPUpdate struct {
	PrimaryIntent   *models.Intent
	SecondaryTags   []string
	ExtractedFields map[string]interface{}
	Language        *string
}

func (s *Store) UpdateNLPResults(ctx context.Context, id string, u NLPUpdate) error {
	var intent, language interface{}
	if u.PrimaryIntent != nil {
		intent = string(*u.PrimaryIntent)
	}
	if u.Language != nil {
		language = *u.Language
	}
	tags, err := nullableJSON(u.SecondaryTags, u.SecondaryTags == nil)
	if err != nil {
		return appErrors.NewInvalidPayloadError(err.Error())
	}
	fields, err := nullableJSON(u.ExtractedFields, u.ExtractedFields == nil)
	if err != nil {
		return appErrors.NewInvalidPayloadError(err.Error())
	}

	return s.execOne(ctx, "update_nlp_results", appErrors.NewConversationNotFoundError(id), `
		UPDATE conversations SET
			primary_intent = COALESCE($2, primary_intent),
			secondary_tags = COALESCE($3::jsonb, secondary_tags),
			extracted_fields = COALESCE($4::jsonb, extracted_fields),
			language = COALESCE($5, language),
			updated_at = $6
		WHERE conversation_id = $1`,
		id, intent, tags, fields, language, s.now())
}

// UpdateQualification writes the completeness status and lead score of a build.
func (s *Store) UpdateQualification(ctx context.Context, id string, status models.CompletenessStatus, score float64, band models.LeadBand) error {
	return s.execOne(ctx, "update_qualification", appErrors.NewConversationNotFoundError(id), `
		UPDATE conversations SET completeness_status = $2, lead_score = $3, lead_band = $4, updated_at = $5
		WHERE conversation_id = $1`,
		id, string(status), score, string(band), s.now())
}

// ListConversationsSince returns conversations created at or after since, newest first.
func (s *Store) ListConversationsSince(ctx context.Context, since time.Time) ([]models.DashboardRow, error) {
	return s.dashboard(ctx, "list_conversations_since",
		`WHERE created_at >= $1`, since)
}

// ListHotLeads returns conversations banded hot or scoring at least minScore.
func (s *Store) ListHotLeads(ctx context.Context, minScore float64) ([]models.DashboardRow, error) {
	return s.dashboard(ctx, "list_hot_leads",
		`WHERE lead_band = 'hot' OR lead_score >= $1`, minScore)
}

func (s *Store) ListConversationsByIntent(ctx context.Context, intent models.Intent) ([]models.DashboardRow, error) {
	return s.dashboard(ctx, "list_conversations_by_intent",
		`WHERE primary_intent = $1`, string(intent))
}

func (s *Store) dashboard(ctx context.Context, operation, where string, args ...interface{}) ([]models.DashboardRow, error) {
	defer s.observe(operation)()

	rows, err := s.pg.Query(ctx, `
		SELECT conversation_id, created_at, primary_intent, lead_score, lead_band, completeness_status
		FROM conversations `+where+`
		ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, queryError(operation, err)
	}
	defer rows.Close()

	out := []models.DashboardRow{}
	for rows.Next() {
		var (
			r            models.DashboardRow
			intent, band sql.NullString
			score        sql.NullFloat64
		)
		if err := rows.Scan(&r.ConversationID, &r.CreatedAt, &intent, &score, &band, &r.CompletenessStatus); err != nil {
			return nil, queryError(operation, err)
		}
		r.PrimaryIntent = models.Intent(intent.String)
		r.LeadScore = floatPtr(score)
		r.LeadBand = band.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(operation, err)
	}
	return out, nil
}
