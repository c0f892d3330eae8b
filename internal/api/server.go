// Package api exposes the intake, live and dashboard services over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"funnel-workers/internal/common/config"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/live"
	"funnel-workers/internal/models"
	"funnel-workers/internal/search"
)

const (
	ServiceName = "funnel-workers"

	defaultAddress      = ":8080"
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// Intake is the conversation pipeline the ingestion routes drive.
type Intake interface {
	IngestChat(ctx context.Context, p *intake.ChatPayload) (*intake.IngestResult, error)
	IngestVoice(ctx context.Context, p *intake.VoicePayload) (*intake.IngestResult, error)
	Conversation(ctx context.Context, id string) (*models.Conversation, error)
	ProcessNLP(ctx context.Context, id string) (*intake.NLPResult, error)
	BuildState(ctx context.Context, id string) (*intake.BuildResult, error)
	GetState(ctx context.Context, id string) (*intake.StateResult, error)
	ApplyMessage(ctx context.Context, id, text string) (*intake.MessageResult, error)
	Qualification(ctx context.Context, id string) (*intake.QualificationResult, error)
	HumanTakeover(ctx context.Context, id, reason string) (*intake.HumanActionResult, error)
	HumanAction(ctx context.Context, id string, p *intake.HumanActionPayload) (*intake.HumanActionResult, error)
	CheckHandoff(ctx context.Context, id string) (*intake.HandoffResult, error)
}

type Dashboard interface {
	Home(ctx context.Context) (*intake.HomeView, error)
	Today(ctx context.Context) ([]models.DashboardRow, error)
	HotLeads(ctx context.Context) ([]models.DashboardRow, error)
	ByIntent(ctx context.Context, in models.Intent) ([]models.DashboardRow, error)
	Drilldown(ctx context.Context, id string) (*intake.Drilldown, error)
}

type Live interface {
	Start(ctx context.Context) (*live.StartResult, error)
	Turn(ctx context.Context, id, msg string) (*live.TurnResult, error)
	Session(ctx context.Context, id string) (*models.LiveSession, error)
	End(ctx context.Context, id string) error
	ListQuotations(ctx context.Context, urgentOnly bool) ([]models.QuotationRequest, error)
	Quotation(ctx context.Context, id int64) (*models.QuotationRequest, error)
	SubmitQuote(ctx context.Context, id int64, p live.QuotePayload) (*models.QuotationRequest, error)
	SetUrgent(ctx context.Context, id int64, urgent bool) (*models.QuotationRequest, error)
	SetException(ctx context.Context, id int64, amount float64) (*models.QuotationRequest, error)
}

type LeadSearcher interface {
	SearchLeads(ctx context.Context, q search.Query) (*search.Result, error)
}

// Check is one readiness probe, such as a database ping.
type Check func(ctx context.Context) error

type Dependencies struct {
	Intake    Intake
	Dashboard Dashboard
	Live      Live
	Leads     LeadSearcher
	Checks    map[string]Check
	Version   string
	Logger    logger.Logger
}

type Server struct {
	cfg     config.HTTPConfig
	deps    Dependencies
	logger  logger.Logger
	router  *gin.Engine
	limiter *rateLimiter
	http    *http.Server
}

func New(cfg config.HTTPConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger.WithFields(map[string]interface{}{"component": "api"}),
		router:  gin.New(),
		limiter: newRateLimiter(cfg.RateLimitPerMin),
	}
	s.mapHandlers()
	return s
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) mapHandlers() {
	r := s.router
	r.Use(gin.Recovery(), s.observe(), s.timeout())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", s.rateLimit())

	if s.deps.Intake != nil {
		in := api.Group("/ingest")
		in.POST("/chat", s.ingestChat)
		in.POST("/voice", s.ingestVoice)
		in.GET("/conversations/:id", s.getConversation)
		in.POST("/conversations/:id/process", s.processConversation)
		in.GET("/conversations/:id/state", s.getState)
		in.POST("/conversations/:id/state", s.buildState)
		in.POST("/conversations/:id/state/message", s.applyMessage)
		in.GET("/conversations/:id/qualification", s.qualification)
		in.GET("/conversations/:id/handoff", s.handoff)
		in.POST("/conversations/:id/human-takeover", s.humanTakeover)
		in.POST("/conversations/:id/human-actions", s.humanActions)
	}

	if s.deps.Live != nil {
		lv := api.Group("/live")
		lv.POST("/start", s.liveStart)
		lv.POST("/message", s.liveMessage)
		lv.GET("/session/:id", s.liveSession)
		lv.DELETE("/session/:id", s.liveEnd)

		admin := api.Group("/admin", s.adminAuth())
		admin.GET("/quotations", s.listQuotations)
		admin.GET("/quotations/:qid", s.getQuotation)
		admin.POST("/quotations/:qid/quote", s.submitQuote)
		admin.POST("/quotations/:qid/urgent", s.setUrgent)
		admin.POST("/quotations/:qid/exception", s.setException)
	}

	if s.deps.Dashboard != nil {
		dash := api.Group("/dashboard")
		dash.GET("/home", s.dashboardHome)
		dash.GET("/today", s.dashboardToday)
		dash.GET("/hot-leads", s.dashboardHotLeads)
		dash.GET("/intent/:intent", s.dashboardByIntent)
		dash.GET("/conversations/:id", s.dashboardDrilldown)
	}

	if s.deps.Leads != nil {
		api.GET("/leads/search", s.searchLeads)
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  millisOr(s.cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout: millisOr(s.cfg.WriteTimeout, defaultWriteTimeout),
	}
	s.logger.Info("HTTP API listening", map[string]interface{}{"address": s.cfg.Address})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
		"version": s.deps.Version,
	})
}

// ready runs every probe; any failure makes the whole service unready.
func (s *Server) ready(c *gin.Context) {
	status := http.StatusOK
	results := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(c.Request.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	ready := "ready"
	if status != http.StatusOK {
		ready = "not_ready"
	}
	c.JSON(status, gin.H{"status": ready, "checks": results})
}

func millisOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
