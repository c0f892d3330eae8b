// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"funnel-workers/internal/api"
	"funnel-workers/internal/common/aws"
	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/config"
	"funnel-workers/internal/common/database"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/zoho"
	"funnel-workers/internal/funnel"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/live"
	"funnel-workers/internal/notify"
	"funnel-workers/internal/search"
	"funnel-workers/internal/store"

	// Conversation workers (4)
	acm "funnel-workers/internal/workers/conversation/apply-conversation-message"
	bcs "funnel-workers/internal/workers/conversation/build-conversation-state"
	di "funnel-workers/internal/workers/conversation/detect-intent"
	ic "funnel-workers/internal/workers/conversation/ingest-conversation"

	// Qualification workers (3)
	cht "funnel-workers/internal/workers/qualification/check-human-takeover"
	eq "funnel-workers/internal/workers/qualification/evaluate-qualification"
	rha "funnel-workers/internal/workers/qualification/record-human-action"

	// Lead workers (3)
	nhl "funnel-workers/internal/workers/leads/notify-hot-lead"
	sl "funnel-workers/internal/workers/leads/search-leads"
	slc "funnel-workers/internal/workers/leads/sync-lead-crm"
)

const (
	shutdownTimeout = 30 * time.Second
	debugAddress    = "localhost:6060"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Observability)
	if err != nil {
		zapLog.Warn("observability partially initialized", zap.Error(err))
	}

	ctx := context.Background()

	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.URL != "" {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	st := store.New(pg, log, store.Options{
		Cache:    redis,
		CacheTTL: time.Duration(cfg.Funnel.SnapshotCacheTTL) * time.Second,
	})
	if err := st.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	engine, err := funnel.LoadEngine(cfg.Funnel, nil)
	if err != nil {
		zapLog.Fatal("slot registry load failed", zap.Error(err))
	}

	intakeDeps := intake.Dependencies{
		Store:         st,
		Engine:        engine,
		Observability: obs,
		Logger:        log,
	}

	var leadIndex *search.LeadIndex
	if esClient != nil {
		leadIndex = search.NewLeadIndex(esClient, cfg.Database.Elasticsearch.LeadIndex, log)
		if err := leadIndex.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("lead index setup failed", zap.Error(err))
		}
		intakeDeps.Index = leadIndex
	}

	notifier := newNotifier(ctx, cfg, log, zapLog)
	intakeDeps.Notifier = notifier

	var crmClient notify.CRMClient
	if cfg.Integrations.Zoho.Enabled {
		crmClient = zoho.NewCRMClient(cfg.Integrations.Zoho.AuthToken, cfg.Integrations.Zoho.BaseURL, 30*time.Second)
	}
	crmSync := notify.NewCRMSync(crmClient, log)

	zapLog.Info("All external service clients initialized")

	intakeSvc := intake.NewService(intakeDeps, intake.Options{
		HotLeadMinScore:   cfg.Funnel.HotLeadMinScore,
		SideEffectTimeout: 10 * time.Second,
	})

	sessions, err := live.NewSessionStore(cfg.Sessions, redis)
	if err != nil {
		zapLog.Fatal("session store setup failed", zap.Error(err))
	}
	liveSvc := live.NewService(live.Dependencies{
		Sessions:      sessions,
		Quotations:    st,
		Engine:        engine,
		Observability: obs,
		Logger:        log,
	})

	checks := map[string]api.Check{
		"postgres": st.Ping,
		"redis":    redis.Ping,
	}
	if esClient != nil {
		checks["elasticsearch"] = esClient.Ping
	}

	var zeebe *camunda.Client
	var pool *camunda.Pool
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		}, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		checks["zeebe"] = zeebe.HealthCheck

		pool = camunda.NewPool(zeebe.Zeebe(), log)
		registerWorkers(pool, cfg, intakeSvc, leadIndex, notifier, crmSync, log, obs)
		zapLog.Info("workers registered", zap.Strings("taskTypes", pool.TaskTypes()))
	} else {
		zapLog.Info("camunda disabled, serving HTTP API only")
	}

	server := api.New(cfg.HTTP, api.Dependencies{
		Intake:    intakeSvc,
		Dashboard: intakeSvc,
		Live:      liveSvc,
		Leads:     leadSearcher(leadIndex),
		Checks:    checks,
		Version:   cfg.App.Version,
		Logger:    log,
	})
	go func() {
		if err := server.Start(); err != nil {
			zapLog.Fatal("HTTP API failed", zap.Error(err))
		}
	}()

	if cfg.HTTP.EnableDebugRoutes {
		go func() {
			zapLog.Info("pprof listening", zap.String("address", debugAddress))
			if err := http.ListenAndServe(debugAddress, nil); err != nil {
				zapLog.Error("pprof server failed", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP API", zap.Error(err))
	}
	if pool != nil {
		pool.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing traces", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// newNotifier builds the hot-lead notifier on whichever AWS channels are enabled.
func newNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) *notify.Notifier {
	var email notify.EmailSender
	var sms notify.SMSSender

	if cfg.Integrations.AWS.SES.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		email = ses
	}
	if cfg.Integrations.AWS.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		sms = sns
	}
	return notify.NewNotifier(cfg.Notifications, email, sms, log)
}

// leadSearcher keeps a nil index from becoming a non-nil interface.
func leadSearcher(idx *search.LeadIndex) api.LeadSearcher {
	if idx == nil {
		return nil
	}
	return idx
}

func registerWorkers(
	pool *camunda.Pool,
	cfg *config.Config,
	svc *intake.Service,
	leadIndex *search.LeadIndex,
	notifier *notify.Notifier,
	crmSync *notify.CRMSync,
	log logger.Logger,
	obs *observability.Observability,
) {
	wcfg := config.GetWorkerConfig(cfg, ic.TaskType)
	pool.Open(ic.TaskType, wcfg, ic.NewHandler(ic.LoadConfig(wcfg), svc, log, obs))

	wcfg = config.GetWorkerConfig(cfg, di.TaskType)
	pool.Open(di.TaskType, wcfg, di.NewHandler(di.LoadConfig(wcfg), svc, log, obs))

	wcfg = config.GetWorkerConfig(cfg, bcs.TaskType)
	pool.Open(bcs.TaskType, wcfg, bcs.NewHandler(bcs.LoadConfig(wcfg), svc, log, obs))

	wcfg = config.GetWorkerConfig(cfg, acm.TaskType)
	pool.Open(acm.TaskType, wcfg, acm.NewHandler(acm.LoadConfig(wcfg), svc, log, obs))

	wcfg = config.GetWorkerConfig(cfg, eq.TaskType)
	pool.Open(eq.TaskType, wcfg, eq.NewHandler(eq.LoadConfig(wcfg), svc, log, obs))

	wcfg = config.GetWorkerConfig(cfg, cht.TaskType)
	pool.Open(cht.TaskType, wcfg, cht.NewHandler(cht.LoadConfig(wcfg), svc, log, obs))

	wcfg = config.GetWorkerConfig(cfg, rha.TaskType)
	pool.Open(rha.TaskType, wcfg, rha.NewHandler(rha.LoadConfig(wcfg), svc, log, obs))

	wcfg = config.GetWorkerConfig(cfg, nhl.TaskType)
	pool.Open(nhl.TaskType, wcfg, nhl.NewHandler(nhl.LoadConfig(wcfg), svc, notifier, log, obs))

	wcfg = config.GetWorkerConfig(cfg, slc.TaskType)
	pool.Open(slc.TaskType, wcfg, slc.NewHandler(slc.LoadConfig(wcfg, cfg.Integrations), svc, crmSync, log, obs))

	if leadIndex == nil {
		log.Warn("elasticsearch not configured, skipping worker", map[string]interface{}{"taskType": sl.TaskType})
		return
	}
	wcfg = config.GetWorkerConfig(cfg, sl.TaskType)
	pool.Open(sl.TaskType, wcfg, sl.NewHandler(sl.LoadConfig(wcfg), leadIndex, log, obs))
}
