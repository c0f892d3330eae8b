// Package funnel wires the slot registry, state machine, follow-up selector,
// qualification evaluator and NLP pipeline into one engine shared by the
// intake service, the live session service and the CLI.
package funnel

import (
	"time"

	"funnel-workers/internal/common/config"
	"funnel-workers/internal/funnel/followup"
	"funnel-workers/internal/funnel/intent"
	"funnel-workers/internal/funnel/nlp"
	"funnel-workers/internal/funnel/qualification"
	"funnel-workers/internal/funnel/state"
	"funnel-workers/internal/models"
	"funnel-workers/pkg/registry"
)

// Engine is stateless; one instance serves every conversation.
type Engine struct {
	Registry   *registry.Registry
	Classifier *intent.Classifier
	Pipeline   *nlp.Pipeline
	Machine    *state.Machine
	Selector   *followup.Selector
	Evaluator  *qualification.Evaluator
	Fallback   models.Intent
}

// NewEngine builds an engine over reg; a nil now uses UTC wall time.
func NewEngine(reg *registry.Registry, cfg config.FunnelConfig, now func() time.Time) *Engine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	fallback := models.Intent(cfg.FallbackIntent)
	if !fallback.Valid() {
		fallback = models.IntentNewProjectSales
	}

	classifier := intent.NewClassifier()
	return &Engine{
		Registry:   reg,
		Classifier: classifier,
		Pipeline:   nlp.NewPipeline(classifier, cfg.TentativeTurns),
		Machine: state.NewMachine(reg, state.Options{
			FallbackIntent: fallback,
			BaseConfidence: cfg.BaseConfidence,
			Now:            now,
		}),
		Selector:  followup.NewSelector(reg, fallback, now),
		Evaluator: qualification.NewEvaluator(reg, fallback),
		Fallback:  fallback,
	}
}

// LoadEngine reads the registry named in cfg, or the embedded one.
func LoadEngine(cfg config.FunnelConfig, now func() time.Time) (*Engine, error) {
	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}
	return NewEngine(reg, cfg, now), nil
}

// Replay rebuilds state from stored turns, or from the clean text when there are none.
func (e *Engine) Replay(turns []models.SpeakerTurn, cleanText string, in models.Intent) models.ConversationState {
	in = in.Or(e.Fallback)
	if len(turns) == 0 {
		return e.Machine.BuildFromFullText(cleanText, in)
	}
	return e.Machine.BuildFromTurns(state.TurnsFromSpeakerTurns(turns), in)
}

// Qualify computes completeness and lead score for st.
func (e *Engine) Qualify(st models.ConversationState, numTurns int, fullText string) (models.CompletenessResult, models.LeadScoreResult) {
	return e.Evaluator.Completeness(st), e.Evaluator.LeadScore(st, numTurns, fullText)
}
