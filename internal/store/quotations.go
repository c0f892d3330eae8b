package store

import (
	"context"
	"database/sql"
	"errors"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/metrics"
	"funnel-workers/internal/models"
)

const quotationColumns = `id, session_id, status, created_at, updated_at, admin_quoted_amount,
	admin_max_discount_pct, discount_offered_to_user_pct, user_counter_price,
	admin_exception_amount, rejection_reason, is_urgent, request_summary`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuotation(row rowScanner) (*models.QuotationRequest, error) {
	var (
		q                                    models.QuotationRequest
		status                               string
		quoted, maxDiscount, counter, except sql.NullFloat64
		reason                               sql.NullString
	)
	err := row.Scan(&q.ID, &q.SessionID, &status, &q.CreatedAt, &q.UpdatedAt, &quoted,
		&maxDiscount, &q.DiscountOfferedToUserPct, &counter, &except, &reason, &q.IsUrgent, &q.RequestSummary)
	if err != nil {
		return nil, err
	}
	q.Status = models.QuotationStatus(status)
	q.AdminQuotedAmount = floatPtr(quoted)
	q.AdminMaxDiscountPct = floatPtr(maxDiscount)
	q.UserCounterPrice = floatPtr(counter)
	q.AdminExceptionAmount = floatPtr(except)
	q.RejectionReason = reason.String
	return &q, nil
}

// CreateQuotationRequest opens a pending quotation for a live session.
func (s *Store) CreateQuotationRequest(ctx context.Context, sessionID, summary string) (int64, error) {
	defer s.observe("create_quotation_request")()

	now := s.now()
	var id int64
	err := s.pg.QueryRow(ctx, `
		INSERT INTO quotation_requests (session_id, status, created_at, updated_at, request_summary)
		VALUES ($1, $2, $3, $3, $4)
		RETURNING id`,
		sessionID, string(models.QuotePending), now, summary,
	).Scan(&id)
	if err != nil {
		return 0, appErrors.NewDatabaseInsertFailedError(err)
	}
	metrics.QuotationTransitions.WithLabelValues(string(models.QuotePending)).Inc()
	return id, nil
}

func (s *Store) GetQuotation(ctx context.Context, id int64) (*models.QuotationRequest, error) {
	defer s.observe("get_quotation")()

	q, err := scanQuotation(s.pg.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotation_requests WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewQuotationNotFoundError(id)
	}
	if err != nil {
		return nil, queryError("get_quotation", err)
	}
	return q, nil
}

// GetQuotationBySession returns the latest quotation of a session, or nil.
func (s *Store) GetQuotationBySession(ctx context.Context, sessionID string) (*models.QuotationRequest, error) {
	defer s.observe("get_quotation_by_session")()

	q, err := scanQuotation(s.pg.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotation_requests WHERE session_id = $1 ORDER BY id DESC LIMIT 1`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryError("get_quotation_by_session", err)
	}
	return q, nil
}

func (s *Store) ListQuotationRequests(ctx context.Context, urgentOnly bool) ([]models.QuotationRequest, error) {
	defer s.observe("list_quotation_requests")()

	query := `SELECT ` + quotationColumns + ` FROM quotation_requests`
	if urgentOnly {
		query += ` WHERE is_urgent`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pg.Query(ctx, query)
	if err != nil {
		return nil, queryError("list_quotation_requests", err)
	}
	defer rows.Close()

	out := []models.QuotationRequest{}
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, queryError("list_quotation_requests", err)
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list_quotation_requests", err)
	}
	return out, nil
}

// SetQuote records the admin price and ceiling discount and marks the quote ready.
func (s *Store) SetQuote(ctx context.Context, id int64, amount, maxDiscountPct float64) error {
	err := s.execOne(ctx, "set_quote", appErrors.NewQuotationNotFoundError(id), `
		UPDATE quotation_requests
		SET admin_quoted_amount = $2, admin_max_discount_pct = $3, status = $4, updated_at = $5
		WHERE id = $1`,
		id, amount, maxDiscountPct, string(models.QuoteReady), s.now())
	if err == nil {
		metrics.QuotationTransitions.WithLabelValues(string(models.QuoteReady)).Inc()
	}
	return err
}

func (s *Store) SetQuotationUrgent(ctx context.Context, id int64, urgent bool) error {
	return s.execOne(ctx, "set_quotation_urgent", appErrors.NewQuotationNotFoundError(id),
		`UPDATE quotation_requests SET is_urgent = $2, updated_at = $3 WHERE id = $1`,
		id, urgent, s.now())
}

// SetUserCounterPrice saves the user's price and moves the quote to negotiating.
func (s *Store) SetUserCounterPrice(ctx context.Context, id int64, price float64) error {
	err := s.execOne(ctx, "set_user_counter_price", appErrors.NewQuotationNotFoundError(id), `
		UPDATE quotation_requests SET user_counter_price = $2, status = $3, updated_at = $4
		WHERE id = $1`,
		id, price, string(models.QuoteNegotiating), s.now())
	if err == nil {
		metrics.QuotationTransitions.WithLabelValues(string(models.QuoteNegotiating)).Inc()
	}
	return err
}

func (s *Store) SetExceptionAmount(ctx context.Context, id int64, amount float64) error {
	return s.execOne(ctx, "set_exception_amount", appErrors.NewQuotationNotFoundError(id),
		`UPDATE quotation_requests SET admin_exception_amount = $2, updated_at = $3 WHERE id = $1`,
		id, amount, s.now())
}

// SetQuotationStatus changes the status; a non-empty reason is stored as the rejection reason.
func (s *Store) SetQuotationStatus(ctx context.Context, id int64, status models.QuotationStatus, reason string) error {
	var err error
	if reason != "" {
		err = s.execOne(ctx, "set_quotation_status", appErrors.NewQuotationNotFoundError(id),
			`UPDATE quotation_requests SET status = $2, rejection_reason = $3, updated_at = $4 WHERE id = $1`,
			id, string(status), reason, s.now())
	} else {
		err = s.execOne(ctx, "set_quotation_status", appErrors.NewQuotationNotFoundError(id),
			`UPDATE quotation_requests SET status = $2, updated_at = $3 WHERE id = $1`,
			id, string(status), s.now())
	}
	if err == nil {
		metrics.QuotationTransitions.WithLabelValues(string(status)).Inc()
	}
	return err
}

func (s *Store) SetDiscountOffered(ctx context.Context, id int64, pct float64) error {
	return s.execOne(ctx, "set_discount_offered", appErrors.NewQuotationNotFoundError(id),
		`UPDATE quotation_requests SET discount_offered_to_user_pct = $2, updated_at = $3 WHERE id = $1`,
		id, pct, s.now())
}
