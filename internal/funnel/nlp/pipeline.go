// Package nlp runs preprocessing, intent detection and entity extraction over
// a stored conversation. It is re-runnable: the same input gives the same result.
package nlp

import (
	"strings"

	"funnel-workers/internal/funnel/extract"
	"funnel-workers/internal/funnel/intent"
	"funnel-workers/internal/funnel/textnorm"
	"funnel-workers/internal/models"
)

// Result is everything one pipeline pass produces.
type Result struct {
	PreprocessedText string              `json:"preprocessed_text"`
	Language         string              `json:"language"`
	TentativeIntent  models.IntentResult `json:"tentative_intent"`
	FinalIntent      models.IntentResult `json:"final_intent"`
	Entities         extract.Entities    `json:"extracted_entities"`
}

// ExtractedFields is what gets stored on the conversation: the entities plus
// the final intent confidence.
func (r Result) ExtractedFields() map[string]interface{} {
	fields := r.Entities.ToMap()
	fields["intent_confidence"] = r.FinalIntent.Confidence
	return fields
}

type Pipeline struct {
	classifier     *intent.Classifier
	tentativeTurns int
}

func NewPipeline(classifier *intent.Classifier, tentativeTurns int) *Pipeline {
	if classifier == nil {
		classifier = intent.NewClassifier()
	}
	if tentativeTurns <= 0 {
		tentativeTurns = intent.DefaultTentativeTurns
	}
	return &Pipeline{classifier: classifier, tentativeTurns: tentativeTurns}
}

// Run processes the clean transcript and its turn texts.
func (p *Pipeline) Run(cleanText string, turnTexts []string) Result {
	preprocessed, language := textnorm.Preprocess(cleanText)
	forNLP := preprocessed
	if forNLP == "" {
		forNLP = cleanText
	}

	head := turnTexts
	if len(head) > p.tentativeTurns {
		head = head[:p.tentativeTurns]
	}
	opening := strings.Join(head, "\n")
	openingText, _ := textnorm.Preprocess(opening)
	if openingText == "" {
		openingText = opening
	}

	return Result{
		PreprocessedText: preprocessed,
		Language:         language,
		TentativeIntent:  p.classifier.ClassifyTentative(openingText),
		FinalIntent:      p.classifier.Classify(forNLP),
		Entities:         extract.ExtractEntities(forNLP),
	}
}
