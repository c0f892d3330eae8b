// Package search keeps qualifying leads in an Elasticsearch index so sales can
// filter them by band, intent and score.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"funnel-workers/internal/common/database"
	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// leadMapping is applied when the index does not exist yet.
const leadMapping = `{
  "mappings": {
    "properties": {
      "conversation_id":     {"type": "keyword"},
      "intent":              {"type": "keyword"},
      "lead_score":          {"type": "float"},
      "lead_band":           {"type": "keyword"},
      "completeness_pct":    {"type": "integer"},
      "completeness_status": {"type": "keyword"},
      "name":                {"type": "text"},
      "country":             {"type": "keyword"},
      "project_type":        {"type": "keyword"},
      "budget":              {"type": "keyword"},
      "tags":                {"type": "keyword"},
      "summary":             {"type": "text"},
      "indexed_at":          {"type": "date"}
    }
  }
}`

// LeadDocument is what one lead looks like in the index.
type LeadDocument struct {
	ConversationID     string                    `json:"conversation_id"`
	Intent             models.Intent             `json:"intent"`
	LeadScore          float64                   `json:"lead_score"`
	LeadBand           models.LeadBand           `json:"lead_band"`
	CompletenessPct    int                       `json:"completeness_pct"`
	CompletenessStatus models.CompletenessStatus `json:"completeness_status"`
	Name               string                    `json:"name,omitempty"`
	Country            string                    `json:"country,omitempty"`
	ProjectType        string                    `json:"project_type,omitempty"`
	Budget             string                    `json:"budget,omitempty"`
	Tags               []string                  `json:"tags,omitempty"`
	Summary            string                    `json:"summary,omitempty"`
	IndexedAt          time.Time                 `json:"indexed_at"`
}

// DocumentFromLead flattens a lead record into its index document.
func DocumentFromLead(lead *models.LeadRecord, tags []string) LeadDocument {
	doc := LeadDocument{
		ConversationID:     lead.ConversationID,
		Intent:             lead.Intent,
		LeadScore:          lead.LeadScore,
		LeadBand:           lead.LeadBand,
		CompletenessPct:    lead.CompletenessPct,
		CompletenessStatus: lead.CompletenessLabel,
		Tags:               tags,
		IndexedAt:          lead.CreatedAt,
	}

	doc.Name = lead.SlotText("name", "caller_name")
	doc.Country = lead.SlotText("country_location")
	doc.ProjectType = lead.SlotText("project_type")
	doc.Budget = lead.SlotText("budget_or_range")
	return doc
}

// Query filters a lead search. Zero values leave a filter out.
type Query struct {
	Band     models.LeadBand `json:"band,omitempty"`
	Intent   models.Intent   `json:"intent,omitempty"`
	MinScore float64         `json:"minScore,omitempty"`
	Text     string          `json:"text,omitempty"`
	From     int             `json:"from,omitempty"`
	Size     int             `json:"size,omitempty"`
}

type Result struct {
	Leads     []LeadDocument `json:"leads"`
	TotalHits int64          `json:"totalHits"`
	MaxScore  float64        `json:"maxScore"`
	Took      int64          `json:"took"`
}

type LeadIndex struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewLeadIndex(es *database.ElasticsearchClient, index string, log logger.Logger) *LeadIndex {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &LeadIndex{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "lead-index", "index": index}),
	}
}

func (l *LeadIndex) Index() string {
	return l.index
}

// EnsureIndex creates the lead index with its mapping when missing.
func (l *LeadIndex) EnsureIndex(ctx context.Context) error {
	if err := l.es.EnsureIndex(ctx, l.index, leadMapping); err != nil {
		return appErrors.NewElasticsearchConnectionFailedError(err)
	}
	return nil
}

// IndexLead upserts doc under its conversation id.
func (l *LeadIndex) IndexLead(ctx context.Context, doc LeadDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return appErrors.NewSearchQueryFailedError("index_lead", err)
	}

	req := esapi.IndexRequest{
		Index:      l.index,
		DocumentID: doc.ConversationID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, l.es.Client)
	if err != nil {
		return l.mapError("index_lead", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return l.mapStatus("index_lead", res.StatusCode, res.String())
	}

	l.logger.Debug("lead indexed", map[string]interface{}{
		"conversationId": doc.ConversationID,
		"leadBand":       doc.LeadBand,
	})
	return nil
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			Source LeadDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchLeads runs q against the lead index, best score first then newest.
func (l *LeadIndex) SearchLeads(ctx context.Context, q Query) (*Result, error) {
	from, size := pagination(q)

	body, err := json.Marshal(BuildQuery(q))
	if err != nil {
		return nil, appErrors.NewSearchQueryFailedError("search_leads", err)
	}

	client := l.es.Client
	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(l.index),
		client.Search.WithBody(bytes.NewReader(body)),
		client.Search.WithFrom(from),
		client.Search.WithSize(size),
		client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, l.mapError("search_leads", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, l.mapStatus("search_leads", res.StatusCode, res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, appErrors.NewSearchQueryFailedError("search_leads", err)
	}

	out := &Result{
		Leads:     make([]LeadDocument, 0, len(sr.Hits.Hits)),
		TotalHits: sr.Hits.Total.Value,
		Took:      sr.Took,
	}
	if sr.Hits.MaxScore != nil {
		out.MaxScore = *sr.Hits.MaxScore
	}
	for _, h := range sr.Hits.Hits {
		out.Leads = append(out.Leads, h.Source)
	}
	return out, nil
}

func pagination(q Query) (int, int) {
	from, size := q.From, q.Size
	if from < 0 {
		from = 0
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return from, size
}

// BuildQuery turns q into an Elasticsearch bool query body.
func BuildQuery(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"name^2", "summary", "project_type", "country"},
				"type":   "best_fields",
			},
		})
	}
	if q.Band != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"lead_band": q.Band}})
	}
	if q.Intent != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"intent": q.Intent}})
	}
	if q.MinScore > 0 {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"lead_score": map[string]interface{}{"gte": q.MinScore}},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	} else {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"lead_score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"indexed_at": map[string]interface{}{"order": "desc"}},
		},
	}
}

func (l *LeadIndex) mapError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.NewSearchTimeoutError(operation)
	}
	return appErrors.NewSearchQueryFailedError(operation, err)
}

func (l *LeadIndex) mapStatus(operation string, status int, body string) error {
	if status == http.StatusNotFound {
		return appErrors.NewIndexNotFoundError(l.index)
	}
	return appErrors.NewSearchQueryFailedError(operation, fmt.Errorf("status %d: %s", status, body))
}
