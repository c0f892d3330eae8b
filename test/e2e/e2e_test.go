//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/common/camunda"
	"funnel-workers/internal/common/config"
	"funnel-workers/internal/common/database"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/funnel"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/store"

	bcs "funnel-workers/internal/workers/conversation/build-conversation-state"
	di "funnel-workers/internal/workers/conversation/detect-intent"
	ic "funnel-workers/internal/workers/conversation/ingest-conversation"
	eq "funnel-workers/internal/workers/qualification/evaluate-qualification"
)

const processID = "funnel-qualification-e2e"

// qualificationProcess chains ingest, NLP, state build and qualification.
var qualificationProcess = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL"
  xmlns:zeebe="http://camunda.org/schema/zeebe/1.0"
  id="Definitions_funnel" targetNamespace="http://bpmn.io/schema/bpmn">
  <bpmn:process id="%s" isExecutable="true">
    <bpmn:startEvent id="start" />
    <bpmn:sequenceFlow id="f1" sourceRef="start" targetRef="ingest" />
    <bpmn:serviceTask id="ingest"><bpmn:extensionElements><zeebe:taskDefinition type="%s" /></bpmn:extensionElements></bpmn:serviceTask>
    <bpmn:sequenceFlow id="f2" sourceRef="ingest" targetRef="nlp" />
    <bpmn:serviceTask id="nlp"><bpmn:extensionElements><zeebe:taskDefinition type="%s" /></bpmn:extensionElements></bpmn:serviceTask>
    <bpmn:sequenceFlow id="f3" sourceRef="nlp" targetRef="build" />
    <bpmn:serviceTask id="build"><bpmn:extensionElements><zeebe:taskDefinition type="%s" /></bpmn:extensionElements></bpmn:serviceTask>
    <bpmn:sequenceFlow id="f4" sourceRef="build" targetRef="qualify" />
    <bpmn:serviceTask id="qualify"><bpmn:extensionElements><zeebe:taskDefinition type="%s" /></bpmn:extensionElements></bpmn:serviceTask>
    <bpmn:sequenceFlow id="f5" sourceRef="qualify" targetRef="end" />
    <bpmn:endEvent id="end" />
  </bpmn:process>
</bpmn:definitions>`, processID, ic.TaskType, di.TaskType, bcs.TaskType, eq.TaskType)

type env struct {
	cfg    *config.Config
	pg     *database.PostgresClient
	redis  *database.RedisClient
	intake *intake.Service
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.Load()
	require.NoError(t, err)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	t.Cleanup(func() { _ = pg.Close() })

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewStructured("debug", "console")
	st := store.New(pg, log, store.Options{Cache: rdb, CacheTTL: time.Minute})
	require.NoError(t, st.Migrate(ctx))

	engine, err := funnel.LoadEngine(cfg.Funnel, nil)
	require.NoError(t, err)

	svc := intake.NewService(intake.Dependencies{
		Store:  st,
		Engine: engine,
		Logger: log,
	}, intake.Options{HotLeadMinScore: cfg.Funnel.HotLeadMinScore})

	return &env{cfg: cfg, pg: pg, redis: rdb, intake: svc}
}

// ==========================
// Intake pipeline against PostgreSQL and Redis
// ==========================

func TestIntakePipeline(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := e.intake.IngestChat(ctx, &intake.ChatPayload{
		Turns: []intake.IncomingTurn{
			{SpeakerID: "customer", Text: "Hi, I need a 2 minute explainer video for our app launch"},
			{SpeakerID: "customer", Text: "My name is Amina, budget is around $3000 and we need it by next month"},
		},
	})
	require.NoError(t, err)
	id := res.ConversationID

	_, err = e.intake.ProcessNLP(ctx, id)
	require.NoError(t, err)

	built, err := e.intake.BuildState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, built.ConversationID)
	assert.GreaterOrEqual(t, built.Lead.Score, 0.0)

	q, err := e.intake.Qualification(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, q.Completeness)
	assert.Equal(t, built.Completeness.Percent, q.Completeness.Percent)

	msg, err := e.intake.ApplyMessage(ctx, id, "We also want it in a 2D animation style")
	require.NoError(t, err)
	assert.Equal(t, id, msg.ConversationID)
}

// ==========================
// Workers through Zeebe
// ==========================

func TestQualificationProcess(t *testing.T) {
	e := setup(t)
	if !e.cfg.Camunda.Enabled {
		t.Skip("camunda disabled in config")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logger.NewStructured("debug", "console")
	client, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         e.cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	}, log)
	require.NoError(t, err, "Zeebe connection failed")
	defer client.Close()

	obs := observability.NewNoop()
	pool := camunda.NewPool(client.Zeebe(), log)
	defer pool.Close()

	wcfg := config.GetWorkerConfig(e.cfg, ic.TaskType)
	require.True(t, pool.Open(ic.TaskType, wcfg, ic.NewHandler(ic.LoadConfig(wcfg), e.intake, log, obs)))
	wcfg = config.GetWorkerConfig(e.cfg, di.TaskType)
	require.True(t, pool.Open(di.TaskType, wcfg, di.NewHandler(di.LoadConfig(wcfg), e.intake, log, obs)))
	wcfg = config.GetWorkerConfig(e.cfg, bcs.TaskType)
	require.True(t, pool.Open(bcs.TaskType, wcfg, bcs.NewHandler(bcs.LoadConfig(wcfg), e.intake, log, obs)))
	wcfg = config.GetWorkerConfig(e.cfg, eq.TaskType)
	require.True(t, pool.Open(eq.TaskType, wcfg, eq.NewHandler(eq.LoadConfig(wcfg), e.intake, log, obs)))

	_, err = client.Zeebe().NewDeployResourceCommand().
		AddResource([]byte(qualificationProcess), processID+".bpmn").
		Send(ctx)
	require.NoError(t, err, "BPMN deploy failed")

	cmd, err := client.Zeebe().NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(map[string]interface{}{
			"channel": "chat",
			"turns": []map[string]interface{}{
				{"speakerId": "customer", "text": "How much would a 90 second product video cost? Budget is $1500."},
			},
		})
	require.NoError(t, err)

	res, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err, "process instance did not complete")

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.GetVariables()), &vars))
	assert.NotEmpty(t, vars["conversationId"])
	assert.Equal(t, intake.StatusRegistered, vars["ingestStatus"])
	assert.Equal(t, true, vars["stateBuilt"])
	assert.Contains(t, []interface{}{"cold", "warm", "hot"}, vars["leadBand"])

	if os.Getenv("E2E_KEEP_DATA") == "" {
		_, _ = e.pg.Exec(ctx, "DELETE FROM conversations WHERE conversation_id = $1", vars["conversationId"])
	}
}
