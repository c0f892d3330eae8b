// Package live runs interactive sales conversations: one reply per user message,
// slot capture through the shared state machine, FAQ answers, complaint intake
// and admin-priced quotation negotiation.
package live

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/locks"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/metrics"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/funnel"
	"funnel-workers/internal/funnel/state"
	"funnel-workers/internal/models"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"

	sessionPrefix     = "live_"
	maxRequestSummary = 200
)

// QuotationStore is the quotation part of the conversation store.
type QuotationStore interface {
	CreateQuotationRequest(ctx context.Context, sessionID, summary string) (int64, error)
	GetQuotation(ctx context.Context, id int64) (*models.QuotationRequest, error)
	GetQuotationBySession(ctx context.Context, sessionID string) (*models.QuotationRequest, error)
	ListQuotationRequests(ctx context.Context, urgentOnly bool) ([]models.QuotationRequest, error)
	SetQuote(ctx context.Context, id int64, amount, maxDiscountPct float64) error
	SetQuotationUrgent(ctx context.Context, id int64, urgent bool) error
	SetUserCounterPrice(ctx context.Context, id int64, price float64) error
	SetExceptionAmount(ctx context.Context, id int64, amount float64) error
	SetQuotationStatus(ctx context.Context, id int64, status models.QuotationStatus, reason string) error
	SetDiscountOffered(ctx context.Context, id int64, pct float64) error
}

type Dependencies struct {
	Sessions      SessionStore
	Quotations    QuotationStore
	Engine        *funnel.Engine
	Observability *observability.Observability
	Logger        logger.Logger
	Now           func() time.Time
}

type Service struct {
	sessions SessionStore
	quotes   QuotationStore
	engine   *funnel.Engine
	obs      *observability.Observability
	logger   logger.Logger
	locks    *locks.KeyedMutex
	now      func() time.Time
}

type StartResult struct {
	SessionID string `json:"session_id"`
	BotReply  string `json:"bot_reply"`
}

type TurnResult struct {
	SessionID string                   `json:"session_id"`
	BotReply  string                   `json:"bot_reply"`
	Intent    models.Intent            `json:"intent"`
	State     models.ConversationState `json:"state"`
}

func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		sessions: deps.Sessions,
		quotes:   deps.Quotations,
		engine:   deps.Engine,
		obs:      deps.Observability,
		logger:   deps.Logger.WithFields(map[string]interface{}{"component": "live"}),
		locks:    locks.NewKeyedMutex(),
		now:      deps.Now,
	}
}

func newSessionID() string {
	return sessionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Start opens a session. It begins as chitchat and is promoted on the first clear intent.
func (s *Service) Start(ctx context.Context) (*StartResult, error) {
	sess := &models.LiveSession{
		SessionID: newSessionID(),
		State:     s.engine.Machine.Initial(models.IntentUnknownChitchat),
		History:   []models.HistoryEntry{{Role: RoleBot, Text: Greeting}},
		CreatedAt: s.now(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("live session started", map[string]interface{}{"sessionId": sess.SessionID})
	return &StartResult{SessionID: sess.SessionID, BotReply: Greeting}, nil
}

// Session returns a stored session or a SESSION_NOT_FOUND error.
func (s *Service) Session(ctx context.Context, id string) (*models.LiveSession, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, appErrors.NewSessionNotFoundError(id)
	}
	return sess, nil
}

// End drops a session.
func (s *Service) End(ctx context.Context, id string) error {
	defer s.locks.Lock(id)()
	return s.sessions.Delete(ctx, id)
}

// Turn processes one user message and returns the bot reply.
func (s *Service) Turn(ctx context.Context, id, msg string) (*TurnResult, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return nil, appErrors.NewInvalidPayloadError("user_message required")
	}

	defer s.locks.Lock(id)()

	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}

	reply, in, err := s.reply(ctx, sess, msg)
	if err != nil {
		return nil, err
	}

	sess.Append(RoleUser, msg)
	sess.Append(RoleBot, reply)
	sess.TurnIndex++
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}

	metrics.LiveMessages.WithLabelValues(string(in)).Inc()
	return &TurnResult{SessionID: id, BotReply: reply, Intent: in, State: sess.State}, nil
}

// reply decides the answer and updates sess.State. The steps run in a fixed
// order and the first one that produces a reply wins.
func (s *Service) reply(ctx context.Context, sess *models.LiveSession, msg string) (string, models.Intent, error) {
	st := sess.State
	turnIndex := sess.TurnIndex

	if IsAudibilityCheck(msg) {
		return AudibleReply, models.IntentGeneralServicesQuery, nil
	}

	// a bare yes/no classifies as chitchat, so a pending offer is answered first
	if sess.AwaitingAcceptanceQuotation != nil && (Agrees(msg) || Declines(msg)) {
		if reply, ok, err := s.quotationReply(ctx, sess, st.Intent, msg); err != nil || ok {
			return reply, st.Intent, err
		}
	}

	detected := s.engine.Classifier.Classify(msg).PrimaryIntent
	switch detected {
	case models.IntentUnknownChitchat:
		return UnknownClarify, detected, nil
	case models.IntentGeneralServicesQuery:
		faq := FAQReply(msg, turnIndex)
		if st.LastQuestionAsked != "" {
			return GoAhead + " " + faq, detected, nil
		}
		return faq, detected, nil
	}

	if st.Intent == "" || st.Intent == models.IntentUnknownChitchat {
		st.Intent = detected
	}
	current := st.Intent

	st = s.engine.Machine.ApplyMessage(st, msg, state.SourceID(turnIndex), current, true)
	sess.State = st
	s.obs.RecordMessageApplied(ctx, string(current), string(st.Stage))

	if current == models.IntentComplaintIssue {
		return s.complaintReply(st), current, nil
	}

	if reply, ok, err := s.quotationReply(ctx, sess, current, msg); err != nil || ok {
		return reply, current, err
	}

	if len(s.engine.Registry.RequiredSlots(current)) == 0 {
		return AllCaptured, current, nil
	}
	q, ok := s.engine.Selector.NextQuestion(st, turnIndex, msg)
	if !ok {
		return AllCaptured, current, nil
	}

	reply := q.Question
	lower := strings.ToLower(msg)
	if current == models.IntentNewProjectSales && !st.GetSlot(q.Slot).HasValue() &&
		(strings.Contains(lower, "looking for") || strings.Contains(lower, "animation")) {
		reply = LookingForAnimationAnswer + " " + q.Question
	}
	sess.State = s.engine.Selector.QuestionAsked(st, q.Slot)
	s.obs.RecordQuestionAsked(ctx, q.Slot)
	return reply, current, nil
}

func (s *Service) complaintReply(st models.ConversationState) string {
	for _, slot := range s.engine.Registry.RequiredSlots(models.IntentComplaintIssue) {
		status := st.GetSlot(slot).Status
		if status == models.SlotFilled || status == models.SlotRefused {
			continue
		}
		if slot == "name" {
			return ComplaintFirst
		}
		question := complaintFallbackQuestion
		if templates := s.engine.Registry.QuestionTemplates(slot, models.IntentComplaintIssue); len(templates) > 0 {
			question = templates[0]
		}
		return ComplaintAck + " " + question
	}
	return ComplaintDone
}

// quotationReply runs the negotiation steps. ok is false when none applied.
func (s *Service) quotationReply(ctx context.Context, sess *models.LiveSession, current models.Intent, msg string) (string, bool, error) {
	q, err := s.quotes.GetQuotationBySession(ctx, sess.SessionID)
	if err != nil {
		return "", false, err
	}

	if q != nil && sess.AwaitingAcceptanceQuotation != nil && *sess.AwaitingAcceptanceQuotation == q.ID {
		switch {
		case Agrees(msg):
			if err := s.quotes.SetQuotationStatus(ctx, q.ID, models.QuoteAgreed, ""); err != nil {
				return "", false, err
			}
			sess.AwaitingAcceptanceQuotation = nil
			return QuoteAgreed, true, nil
		case Declines(msg):
			reason := declinedReason(deref(q.AdminExceptionAmount))
			if err := s.quotes.SetQuotationStatus(ctx, q.ID, models.QuoteRejected, reason); err != nil {
				return "", false, err
			}
			sess.AwaitingAcceptanceQuotation = nil
			return QuoteRejected, true, nil
		default:
			return QuoteAskAcceptance, true, nil
		}
	}

	if q != nil && q.Status == models.QuoteReady {
		amount := deref(q.AdminQuotedAmount)
		maxDiscount := deref(q.AdminMaxDiscountPct)
		half := math.Max(0, math.Min(maxDiscount, math.Round(maxDiscount/2*10)/10))
		if err := s.quotes.SetDiscountOffered(ctx, q.ID, half); err != nil {
			return "", false, err
		}
		if err := s.quotes.SetQuotationStatus(ctx, q.ID, models.QuoteSentToUser, ""); err != nil {
			return "", false, err
		}
		return quoteSent(amount, half), true, nil
	}

	if q != nil && (q.Status == models.QuoteSentToUser || q.Status == models.QuoteNegotiating) {
		if q.AdminExceptionAmount != nil && sess.AwaitingAcceptanceQuotation == nil {
			id := q.ID
			sess.AwaitingAcceptanceQuotation = &id
			return quoteExceptionOffer(*q.AdminExceptionAmount), true, nil
		}

		if AsksToReducePrice(msg) {
			return s.bargain(ctx, q, msg)
		}

		if price, ok := ExtractPrice(msg); ok && q.UserCounterPrice == nil {
			if err := s.quotes.SetUserCounterPrice(ctx, q.ID, price); err != nil {
				return "", false, err
			}
			return QuoteUserPriceSaved, true, nil
		}
	}

	if current == models.IntentPriceEstimation && AsksForQuote(msg) && (q == nil || q.Status.Closed()) {
		id, err := s.quotes.CreateQuotationRequest(ctx, sess.SessionID, requestSummary(msg))
		if err != nil {
			return "", false, err
		}
		sess.QuotationRequestID = &id
		s.logger.Info("quotation requested", map[string]interface{}{
			"sessionId":   sess.SessionID,
			"quotationId": id,
		})
		return QuoteFewMinutes, true, nil
	}

	return "", false, nil
}

// bargain raises the offered discount by half of what remains, at least one
// point, until the admin ceiling is reached; after that the user's price is asked for.
func (s *Service) bargain(ctx context.Context, q *models.QuotationRequest, msg string) (string, bool, error) {
	quoted := deref(q.AdminQuotedAmount)
	maxDiscount := deref(q.AdminMaxDiscountPct)
	offered := q.DiscountOfferedToUserPct

	if offered < maxDiscount {
		remaining := maxDiscount - offered
		add := math.Min(remaining, math.Max(remaining/2, 1))
		next := math.Min(maxDiscount, offered+add)
		if err := s.quotes.SetDiscountOffered(ctx, q.ID, next); err != nil {
			return "", false, err
		}
		return quoteMoreDiscount(next, quoted*(1-next/100)), true, nil
	}

	if price, ok := ExtractPrice(msg); ok {
		if err := s.quotes.SetUserCounterPrice(ctx, q.ID, price); err != nil {
			return "", false, err
		}
		return QuoteGetBack + " " + QuoteUserPriceSaved, true, nil
	}
	return QuoteGetBack, true, nil
}

func requestSummary(msg string) string {
	if len(msg) > maxRequestSummary {
		return msg[:maxRequestSummary]
	}
	return msg
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
