// Package intake runs the post-conversation pipeline: ingest a chat or call,
// detect intent, build and score the conversation state, and record the audit
// trail and lead side effects.
package intake

import (
	"context"
	"time"

	"funnel-workers/internal/common/locks"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/funnel"
	"funnel-workers/internal/models"
	"funnel-workers/internal/notify"
	"funnel-workers/internal/search"
	"funnel-workers/internal/store"
)

// Store is the conversation store the service depends on. *store.Store implements it.
type Store interface {
	RegisterConversation(ctx context.Context, c *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	UpdateNLPResults(ctx context.Context, id string, u store.NLPUpdate) error
	UpdateQualification(ctx context.Context, id string, status models.CompletenessStatus, score float64, band models.LeadBand) error
	GetStateSnapshot(ctx context.Context, id string) (*models.ConversationState, error)
	SaveStateSnapshot(ctx context.Context, id string, st models.ConversationState) error
	AppendProcessingRun(ctx context.Context, run *models.ProcessingRun) (int64, error)
	AppendLead(ctx context.Context, lead *models.LeadRecord) (int64, error)
	AppendHumanAction(ctx context.Context, action *models.HumanAction) (int64, error)
	ListConversationsSince(ctx context.Context, since time.Time) ([]models.DashboardRow, error)
	ListHotLeads(ctx context.Context, minScore float64) ([]models.DashboardRow, error)
	ListConversationsByIntent(ctx context.Context, intent models.Intent) ([]models.DashboardRow, error)
}

type LeadIndexer interface {
	IndexLead(ctx context.Context, doc search.LeadDocument) error
}

type HotLeadNotifier interface {
	NotifyHotLead(ctx context.Context, lead *models.LeadRecord) (*notify.Result, error)
}

// Dependencies groups the collaborators; Index, Notifier and Observability are optional.
type Dependencies struct {
	Store         Store
	Engine        *funnel.Engine
	Index         LeadIndexer
	Notifier      HotLeadNotifier
	Observability *observability.Observability
	Logger        logger.Logger
}

type Options struct {
	// HotLeadMinScore also lists leads scored at or above it on the hot-leads dashboard.
	HotLeadMinScore float64
	// SideEffectTimeout bounds lead indexing and notification after a build.
	SideEffectTimeout time.Duration
	Now               func() time.Time
}

type Service struct {
	store    Store
	engine   *funnel.Engine
	index    LeadIndexer
	notifier HotLeadNotifier
	obs      *observability.Observability
	logger   logger.Logger
	locks    *locks.KeyedMutex

	hotLeadMinScore   float64
	sideEffectTimeout time.Duration
	now               func() time.Time
}

func NewService(deps Dependencies, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}
	if opts.HotLeadMinScore == 0 {
		opts.HotLeadMinScore = 71
	}
	if opts.SideEffectTimeout == 0 {
		opts.SideEffectTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		store:             deps.Store,
		engine:            deps.Engine,
		index:             deps.Index,
		notifier:          deps.Notifier,
		obs:               deps.Observability,
		logger:            deps.Logger.WithFields(map[string]interface{}{"component": "intake"}),
		locks:             locks.NewKeyedMutex(),
		hotLeadMinScore:   opts.HotLeadMinScore,
		sideEffectTimeout: opts.SideEffectTimeout,
		now:               opts.Now,
	}
}

// Engine exposes the shared funnel engine to the workers and the API.
func (s *Service) Engine() *funnel.Engine {
	return s.engine
}

// conversationText is the text qualification and replay read.
func conversationText(c *models.Conversation) string {
	if c.CleanText != "" {
		return c.CleanText
	}
	return c.RawTranscript
}
