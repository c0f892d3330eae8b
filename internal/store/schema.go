package store

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		conversation_id      TEXT PRIMARY KEY,
		channel_source       TEXT NOT NULL,
		raw_transcript       TEXT NOT NULL,
		clean_text           TEXT NOT NULL DEFAULT '',
		speaker_turns        JSONB NOT NULL DEFAULT '[]',
		started_at           TIMESTAMPTZ,
		ended_at             TIMESTAMPTZ,
		language             TEXT NOT NULL DEFAULT 'en',
		primary_intent       TEXT,
		secondary_tags       JSONB NOT NULL DEFAULT '[]',
		extracted_fields     JSONB NOT NULL DEFAULT '{}',
		completeness_status  TEXT NOT NULL DEFAULT 'unknown',
		auto_summary         TEXT,
		lead_score           DOUBLE PRECISION,
		lead_band            TEXT,
		geo_metadata         JSONB NOT NULL DEFAULT '{}',
		state                JSONB,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_intent ON conversations (primary_intent)`,
	`CREATE TABLE IF NOT EXISTS processing_runs (
		run_id               BIGSERIAL PRIMARY KEY,
		conversation_id      TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		nlp_output           JSONB,
		state                JSONB,
		completeness_pct     INTEGER,
		mandatory_missing    JSONB,
		completeness_label   TEXT,
		lead_score           DOUBLE PRECISION,
		lead_band            TEXT,
		lead_breakdown       JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		lead_id              BIGSERIAL PRIMARY KEY,
		conversation_id      TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		intent               TEXT,
		slots                JSONB,
		completeness_pct     INTEGER,
		completeness_label   TEXT,
		lead_score           DOUBLE PRECISION,
		lead_band            TEXT,
		lead_breakdown       JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS human_actions (
		action_id            BIGSERIAL PRIMARY KEY,
		conversation_id      TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		trigger_reason       TEXT,
		corrected_intent     TEXT,
		filled_slots         JSONB,
		action               TEXT,
		notes                TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS quotation_requests (
		id                           BIGSERIAL PRIMARY KEY,
		session_id                   TEXT NOT NULL,
		status                       TEXT NOT NULL DEFAULT 'pending_quote',
		created_at                   TIMESTAMPTZ NOT NULL,
		updated_at                   TIMESTAMPTZ NOT NULL,
		admin_quoted_amount          DOUBLE PRECISION,
		admin_max_discount_pct       DOUBLE PRECISION,
		discount_offered_to_user_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		user_counter_price           DOUBLE PRECISION,
		admin_exception_amount       DOUBLE PRECISION,
		rejection_reason             TEXT,
		is_urgent                    BOOLEAN NOT NULL DEFAULT FALSE,
		request_summary              TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quotation_requests_session ON quotation_requests (session_id, id DESC)`,
}
