package models

import "time"

type QuotationStatus string

const (
	QuotePending     QuotationStatus = "pending_quote"
	QuoteReady       QuotationStatus = "quote_ready"
	QuoteSentToUser  QuotationStatus = "sent_to_user"
	QuoteNegotiating QuotationStatus = "negotiating"
	QuoteAgreed      QuotationStatus = "agreed"
	QuoteRejected    QuotationStatus = "rejected"
)

// Closed reports whether a new quotation may be opened after this one.
func (s QuotationStatus) Closed() bool {
	return s == QuoteAgreed || s == QuoteRejected
}

// QuotationRequest is an admin-priced quote negotiated inside a live session.
type QuotationRequest struct {
	ID                       int64           `json:"id"`
	SessionID                string          `json:"session_id"`
	Status                   QuotationStatus `json:"status"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
	AdminQuotedAmount        *float64        `json:"admin_quoted_amount,omitempty"`
	AdminMaxDiscountPct      *float64        `json:"admin_max_discount_pct,omitempty"`
	DiscountOfferedToUserPct float64         `json:"discount_offered_to_user_pct"`
	UserCounterPrice         *float64        `json:"user_counter_price,omitempty"`
	AdminExceptionAmount     *float64        `json:"admin_exception_amount,omitempty"`
	RejectionReason          string          `json:"rejection_reason,omitempty"`
	IsUrgent                 bool            `json:"is_urgent"`
	RequestSummary           string          `json:"request_summary,omitempty"`
}
