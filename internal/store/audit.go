package store

import (
	"context"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/models"
)

// The audit tables are append-only; nothing here updates or deletes.

// AppendProcessingRun records one state build and returns its run id.
func (s *Store) AppendProcessingRun(ctx context.Context, run *models.ProcessingRun) (int64, error) {
	defer s.observe("append_processing_run")()

	var nlp interface{}
	if run.NLPOutput != nil {
		raw, err := marshalJSON(run.NLPOutput)
		if err != nil {
			return 0, appErrors.NewInvalidPayloadError(err.Error())
		}
		nlp = raw
	}
	st, err := marshalJSON(run.State)
	if err != nil {
		return 0, appErrors.NewInvalidPayloadError(err.Error())
	}
	missing, err := marshalJSON(run.MandatoryMissing)
	if err != nil {
		return 0, appErrors.NewInvalidPayloadError(err.Error())
	}
	breakdown, err := marshalJSON(run.LeadBreakdown)
	if err != nil {
		return 0, appErrors.NewInvalidPayloadError(err.Error())
	}

	run.CreatedAt = s.now()
	err = s.pg.QueryRow(ctx, `
		INSERT INTO processing_runs (
			conversation_id, created_at, nlp_output, state, completeness_pct,
			mandatory_missing, completeness_label, lead_score, lead_band, lead_breakdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING run_id`,
		run.ConversationID, run.CreatedAt, nlp, st, run.CompletenessPct,
		missing, string(run.CompletenessLabel), run.LeadScore, string(run.LeadBand), breakdown,
	).Scan(&run.RunID)
	if err != nil {
		return 0, appErrors.NewDatabaseInsertFailedError(err)
	}
	return run.RunID, nil
}

// AppendLead records a qualifying lead and returns its id.
func (s *Store) AppendLead(ctx context.Context, lead *models.LeadRecord) (int64, error) {
	defer s.observe("append_lead")()

	slots, err := marshalJSON(lead.Slots)
	if err != nil {
		return 0, appErrors.NewInvalidPayloadError(err.Error())
	}
	breakdown, err := marshalJSON(lead.LeadBreakdown)
	if err != nil {
		return 0, appErrors.NewInvalidPayloadError(err.Error())
	}

	lead.CreatedAt = s.now()
	err = s.pg.QueryRow(ctx, `
		INSERT INTO leads (
			conversation_id, created_at, intent, slots, completeness_pct,
			completeness_label, lead_score, lead_band, lead_breakdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING lead_id`,
		lead.ConversationID, lead.CreatedAt, string(lead.Intent), slots, lead.CompletenessPct,
		string(lead.CompletenessLabel), lead.LeadScore, string(lead.LeadBand), breakdown,
	).Scan(&lead.LeadID)
	if err != nil {
		return 0, appErrors.NewDatabaseInsertFailedError(err)
	}
	return lead.LeadID, nil
}

// AppendHumanAction records a takeover or correction and returns its id.
func (s *Store) AppendHumanAction(ctx context.Context, action *models.HumanAction) (int64, error) {
	defer s.observe("append_human_action")()

	var filled interface{}
	if action.FilledSlots != nil {
		raw, err := marshalJSON(action.FilledSlots)
		if err != nil {
			return 0, appErrors.NewInvalidPayloadError(err.Error())
		}
		filled = raw
	}

	action.CreatedAt = s.now()
	err := s.pg.QueryRow(ctx, `
		INSERT INTO human_actions (
			conversation_id, created_at, trigger_reason, corrected_intent, filled_slots, action, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING action_id`,
		action.ConversationID, action.CreatedAt, nullString(action.TriggerReason),
		nullString(string(action.CorrectedIntent)), filled, string(action.Action), nullString(action.Notes),
	).Scan(&action.ActionID)
	if err != nil {
		return 0, appErrors.NewDatabaseInsertFailedError(err)
	}
	return action.ActionID, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
