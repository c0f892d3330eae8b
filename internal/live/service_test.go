package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/common/config"
	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/funnel"
	"funnel-workers/internal/models"
	"funnel-workers/pkg/registry"
)

var testNow = time.Date(2026, 6, 3, 10, 15, 0, 0, time.UTC)

// ==========================
// Mock Implementations
// ==========================

// memoryQuotes mirrors the status transitions of the Postgres quotation store.
type memoryQuotes struct {
	mu     sync.Mutex
	nextID int64
	quotes map[int64]*models.QuotationRequest
}

func newMemoryQuotes() *memoryQuotes {
	return &memoryQuotes{quotes: map[int64]*models.QuotationRequest{}}
}

func (m *memoryQuotes) get(id int64) (*models.QuotationRequest, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, appErrors.NewQuotationNotFoundError(id)
	}
	return q, nil
}

func (m *memoryQuotes) CreateQuotationRequest(_ context.Context, sessionID, summary string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.quotes[m.nextID] = &models.QuotationRequest{
		ID:             m.nextID,
		SessionID:      sessionID,
		Status:         models.QuotePending,
		RequestSummary: summary,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
	return m.nextID, nil
}

func (m *memoryQuotes) GetQuotation(_ context.Context, id int64) (*models.QuotationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *q
	return &cp, nil
}

func (m *memoryQuotes) GetQuotationBySession(_ context.Context, sessionID string) (*models.QuotationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.QuotationRequest
	for _, q := range m.quotes {
		if q.SessionID == sessionID && (latest == nil || q.ID > latest.ID) {
			latest = q
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memoryQuotes) ListQuotationRequests(_ context.Context, urgentOnly bool) ([]models.QuotationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.QuotationRequest{}
	for id := int64(1); id <= m.nextID; id++ {
		if q, ok := m.quotes[id]; ok && (!urgentOnly || q.IsUrgent) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memoryQuotes) update(id int64, fn func(q *models.QuotationRequest)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.get(id)
	if err != nil {
		return err
	}
	fn(q)
	return nil
}

func (m *memoryQuotes) SetQuote(_ context.Context, id int64, amount, maxDiscountPct float64) error {
	return m.update(id, func(q *models.QuotationRequest) {
		q.AdminQuotedAmount = &amount
		q.AdminMaxDiscountPct = &maxDiscountPct
		q.Status = models.QuoteReady
	})
}

func (m *memoryQuotes) SetQuotationUrgent(_ context.Context, id int64, urgent bool) error {
	return m.update(id, func(q *models.QuotationRequest) { q.IsUrgent = urgent })
}

func (m *memoryQuotes) SetUserCounterPrice(_ context.Context, id int64, price float64) error {
	return m.update(id, func(q *models.QuotationRequest) {
		q.UserCounterPrice = &price
		q.Status = models.QuoteNegotiating
	})
}

func (m *memoryQuotes) SetExceptionAmount(_ context.Context, id int64, amount float64) error {
	return m.update(id, func(q *models.QuotationRequest) { q.AdminExceptionAmount = &amount })
}

func (m *memoryQuotes) SetQuotationStatus(_ context.Context, id int64, status models.QuotationStatus, reason string) error {
	return m.update(id, func(q *models.QuotationRequest) {
		q.Status = status
		if reason != "" {
			q.RejectionReason = reason
		}
	})
}

func (m *memoryQuotes) SetDiscountOffered(_ context.Context, id int64, pct float64) error {
	return m.update(id, func(q *models.QuotationRequest) { q.DiscountOfferedToUserPct = pct })
}

// ==========================
// Helpers
// ==========================

func newTestService(t *testing.T, quotes *memoryQuotes) *Service {
	now := func() time.Time { return testNow }
	return NewService(Dependencies{
		Sessions:   NewMemorySessionStore(100, time.Hour),
		Quotations: quotes,
		Engine:     funnel.NewEngine(registry.Default(), config.FunnelConfig{}, now),
		Logger:     logger.NewTestLogger(t),
		Now:        now,
	})
}

func start(t *testing.T, s *Service) string {
	t.Helper()
	res, err := s.Start(context.Background())
	require.NoError(t, err)
	return res.SessionID
}

func say(t *testing.T, s *Service, id, msg string) *TurnResult {
	t.Helper()
	res, err := s.Turn(context.Background(), id, msg)
	require.NoError(t, err)
	return res
}

// ==========================
// Session lifecycle
// ==========================

func TestStart(t *testing.T) {
	s := newTestService(t, newMemoryQuotes())
	res, err := s.Start(context.Background())
	require.NoError(t, err)

	assert.Regexp(t, `^live_[0-9a-f]{12}$`, res.SessionID)
	assert.Equal(t, Greeting, res.BotReply)

	sess, err := s.Session(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentUnknownChitchat, sess.State.Intent)
	assert.Equal(t, []models.HistoryEntry{{Role: RoleBot, Text: Greeting}}, sess.History)
	assert.Equal(t, testNow, sess.CreatedAt)
}

func TestTurn_Errors(t *testing.T) {
	s := newTestService(t, newMemoryQuotes())

	_, err := s.Turn(context.Background(), "live_000000000000", "hello")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeSessionNotFound))

	id := start(t, s)
	_, err = s.Turn(context.Background(), id, "   ")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))

	require.NoError(t, s.End(context.Background(), id))
	_, err = s.Session(context.Background(), id)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeSessionNotFound))
}

// ==========================
// Replies
// ==========================

func TestTurn_SalesOpening(t *testing.T) {
	s := newTestService(t, newMemoryQuotes())
	id := start(t, s)

	res := say(t, s, id, "hello")
	assert.Equal(t, UnknownClarify, res.BotReply)
	assert.Equal(t, models.IntentUnknownChitchat, res.Intent)

	res = say(t, s, id, "Looking for animation for our new product launch")
	assert.Equal(t, models.IntentNewProjectSales, res.Intent)
	assert.Equal(t, LookingForAnimationAnswer+" May I know your name, please?", res.BotReply)
	assert.Equal(t, "caller_name", res.State.LastQuestionAsked)

	res = say(t, s, id, "What services do you offer?")
	assert.Equal(t, models.IntentGeneralServicesQuery, res.Intent)
	assert.Equal(t, GoAhead+" "+servicesAnswer, res.BotReply)
	assert.Equal(t, models.IntentNewProjectSales, res.State.Intent, "faq turns keep the session intent")

	sess, err := s.Session(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.TurnIndex)
	require.Len(t, sess.History, 7)
	assert.Equal(t, models.HistoryEntry{Role: RoleUser, Text: "hello"}, sess.History[1])
	assert.Equal(t, models.HistoryEntry{Role: RoleBot, Text: UnknownClarify}, sess.History[2])
}

func TestTurn_AudibilityCheck(t *testing.T) {
	s := newTestService(t, newMemoryQuotes())
	id := start(t, s)

	res := say(t, s, id, "Hello, can you hear me?")
	assert.Equal(t, AudibleReply, res.BotReply)
	assert.Equal(t, models.IntentGeneralServicesQuery, res.Intent)
}

func TestTurn_Complaint(t *testing.T) {
	s := newTestService(t, newMemoryQuotes())
	id := start(t, s)

	res := say(t, s, id, "I have a complaint about a delay in delivery")
	assert.Equal(t, models.IntentComplaintIssue, res.Intent)
	assert.Equal(t, ComplaintFirst, res.BotReply)
	assert.Equal(t, models.IntentComplaintIssue, res.State.Intent)
}

// ==========================
// Quotation negotiation
// ==========================

// openQuote walks a session to a quotation the admin has priced.
func openQuote(t *testing.T, s *Service, quotes *memoryQuotes) (string, int64) {
	t.Helper()
	ctx := context.Background()
	id := start(t, s)

	res := say(t, s, id, "How much will it cost to make a 2D short film?")
	require.Equal(t, QuoteFewMinutes, res.BotReply)
	require.Equal(t, models.IntentPriceEstimation, res.Intent)

	q, err := quotes.GetQuotationBySession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, models.QuotePending, q.Status)
	assert.Equal(t, "How much will it cost to make a 2D short film?", q.RequestSummary)

	sess, err := s.Session(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sess.QuotationRequestID)
	assert.Equal(t, q.ID, *sess.QuotationRequestID)

	quoted, err := s.SubmitQuote(ctx, q.ID, QuotePayload{Amount: 50000, MaxDiscountPct: 20})
	require.NoError(t, err)
	assert.Equal(t, models.QuoteReady, quoted.Status)
	return id, q.ID
}

func TestQuotation_Bargaining(t *testing.T) {
	ctx := context.Background()
	quotes := newMemoryQuotes()
	s := newTestService(t, quotes)
	id, qid := openQuote(t, s, quotes)

	res := say(t, s, id, "Is my quote ready?")
	assert.Equal(t, "Your quotation is Rs 50,000. We can offer a discount of 10%.", res.BotReply)
	q, _ := quotes.GetQuotation(ctx, qid)
	assert.Equal(t, models.QuoteSentToUser, q.Status)
	assert.Equal(t, 10.0, q.DiscountOfferedToUserPct)

	res = say(t, s, id, "Can you reduce the price a bit?")
	assert.Equal(t, "We can extend the discount to 15% — that would make it Rs 42,500.", res.BotReply)
	q, _ = quotes.GetQuotation(ctx, qid)
	assert.Equal(t, 15.0, q.DiscountOfferedToUserPct)

	require.NoError(t, quotes.SetDiscountOffered(ctx, qid, 20))
	res = say(t, s, id, "Please reduce the price to 40k")
	assert.Equal(t, QuoteGetBack+" "+QuoteUserPriceSaved, res.BotReply)
	q, _ = quotes.GetQuotation(ctx, qid)
	assert.Equal(t, models.QuoteNegotiating, q.Status)
	require.NotNil(t, q.UserCounterPrice)
	assert.Equal(t, 40000.0, *q.UserCounterPrice)
}

func TestQuotation_ExceptionOffer(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		wantReply  string
		wantStatus models.QuotationStatus
		wantReason string
	}{
		{name: "accepted", answer: "yes", wantReply: QuoteAgreed, wantStatus: models.QuoteAgreed},
		{name: "declined", answer: "no", wantReply: QuoteRejected, wantStatus: models.QuoteRejected,
			wantReason: "User declined exception price of Rs 42,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			quotes := newMemoryQuotes()
			s := newTestService(t, quotes)
			id, qid := openQuote(t, s, quotes)
			say(t, s, id, "Is my quote ready?")

			_, err := s.SetException(ctx, qid, 42000)
			require.NoError(t, err)

			res := say(t, s, id, "Any better price for me?")
			assert.Equal(t, "We can do it at Rs 42,000. Would that work for you?", res.BotReply)

			res = say(t, s, id, "what about the quote")
			assert.Equal(t, QuoteAskAcceptance, res.BotReply)

			res = say(t, s, id, tt.answer)
			assert.Equal(t, tt.wantReply, res.BotReply)
			assert.Equal(t, models.IntentPriceEstimation, res.Intent)

			q, err := quotes.GetQuotation(ctx, qid)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, q.Status)
			assert.Equal(t, tt.wantReason, q.RejectionReason)

			sess, err := s.Session(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, sess.AwaitingAcceptanceQuotation)

			res = say(t, s, id, "Can I get a new quote for a series?")
			assert.Equal(t, QuoteFewMinutes, res.BotReply)
			latest, err := quotes.GetQuotationBySession(ctx, id)
			require.NoError(t, err)
			assert.NotEqual(t, qid, latest.ID)
			assert.Equal(t, models.QuotePending, latest.Status)
		})
	}
}

// ==========================
// Admin
// ==========================

func TestAdmin(t *testing.T) {
	ctx := context.Background()
	quotes := newMemoryQuotes()
	s := newTestService(t, quotes)
	_, qid := openQuote(t, s, quotes)

	_, err := s.SubmitQuote(ctx, qid, QuotePayload{Amount: 0, MaxDiscountPct: 10})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))
	_, err = s.SubmitQuote(ctx, qid, QuotePayload{Amount: 1000, MaxDiscountPct: 150})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))
	_, err = s.SubmitQuote(ctx, qid, QuotePayload{Amount: 1000, MaxDiscountPct: 10})
	assert.True(t, appErrors.IsCode(err, "BUSINESS_RULE_VIOLATION"))
	_, err = s.SetException(ctx, qid, -5)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeInvalidPayload))
	_, err = s.Quotation(ctx, 999)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeQuotationNotFound))

	urgent, err := s.ListQuotations(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, urgent)

	q, err := s.SetUrgent(ctx, qid, true)
	require.NoError(t, err)
	assert.True(t, q.IsUrgent)

	urgent, err = s.ListQuotations(ctx, true)
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, qid, urgent[0].ID)
}
