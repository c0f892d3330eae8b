package live

import (
	"context"
	"fmt"
	"strings"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/validation"
	"funnel-workers/internal/models"
)

type QuotePayload struct {
	Amount         float64 `json:"amount"`
	MaxDiscountPct float64 `json:"max_discount_pct"`
}

func (s *Service) ListQuotations(ctx context.Context, urgentOnly bool) ([]models.QuotationRequest, error) {
	return s.quotes.ListQuotationRequests(ctx, urgentOnly)
}

func (s *Service) Quotation(ctx context.Context, id int64) (*models.QuotationRequest, error) {
	return s.quotes.GetQuotation(ctx, id)
}

// SubmitQuote prices a pending request; the next user turn presents it.
func (s *Service) SubmitQuote(ctx context.Context, id int64, p QuotePayload) (*models.QuotationRequest, error) {
	if res := validation.QuotePayload.Validate(p); !res.Valid {
		return nil, appErrors.NewInvalidPayloadError(strings.Join(res.GetErrorMessages(), "; "))
	}
	if p.Amount <= 0 {
		return nil, appErrors.NewInvalidPayloadError("amount must be greater than 0")
	}

	q, err := s.quotes.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status != models.QuotePending {
		return nil, appErrors.NewBusinessRuleError("Quotation already priced",
			fmt.Sprintf("quotation status is %s, cannot set quote", q.Status))
	}

	if err := s.quotes.SetQuote(ctx, id, p.Amount, p.MaxDiscountPct); err != nil {
		return nil, err
	}
	s.logger.Info("quote submitted", map[string]interface{}{
		"quotationId":    id,
		"amount":         p.Amount,
		"maxDiscountPct": p.MaxDiscountPct,
	})
	return s.quotes.GetQuotation(ctx, id)
}

func (s *Service) SetUrgent(ctx context.Context, id int64, urgent bool) (*models.QuotationRequest, error) {
	if err := s.quotes.SetQuotationUrgent(ctx, id, urgent); err != nil {
		return nil, err
	}
	return s.quotes.GetQuotation(ctx, id)
}

// SetException records a one-off price the bot offers on the user's next turn.
func (s *Service) SetException(ctx context.Context, id int64, amount float64) (*models.QuotationRequest, error) {
	if amount <= 0 {
		return nil, appErrors.NewInvalidPayloadError("exception_amount must be greater than 0")
	}
	if err := s.quotes.SetExceptionAmount(ctx, id, amount); err != nil {
		return nil, err
	}
	return s.quotes.GetQuotation(ctx, id)
}
