// Package summary is the Summary Generator (§4.4): turns a finished
// session's transcript into a DraftSummary via the transcription engine,
// derives a confidence score, and attaches rule-based CRM-stage suggestions.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/metrics"
	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/transcription"
	"github.com/yourusername/meeting-intelligence/internal/transcription/engine"
)

// Generator produces and persists DraftSummary rows.
type Generator struct {
	drafts  *repository.DraftSummaryRepository
	items   *repository.ActionItemRepository
	metrics metrics.Recorder
}

func NewGenerator(drafts *repository.DraftSummaryRepository, items *repository.ActionItemRepository, rec metrics.Recorder) *Generator {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Generator{drafts: drafts, items: items, metrics: rec}
}

// GenerateDraftSummary is idempotent (§4.4): if a DraftSummary already
// exists for callBotSessionID, it is returned unchanged with no engine call.
func (g *Generator) GenerateDraftSummary(ctx context.Context, eng engine.Engine, callBotSessionID uuid.UUID, fullText string, speakers []transcription.Speaker) (*models.DraftSummary, error) {
	existing, err := g.drafts.GetByCallBotSessionID(callBotSessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("summary: checking for existing draft: %w", err)
	}

	start := time.Now()
	log := logger.WithSessionID(callBotSessionID.String())

	engineSummary, err := eng.GenerateSummary(ctx, fullText, speakers)
	if err != nil {
		return nil, fmt.Errorf("summary: generating summary: %w", err)
	}

	actionDrafts, err := eng.ExtractActionItems(ctx, fullText)
	if err != nil {
		log.Warn().Err(err).Msg("action item extraction failed; continuing with empty set")
		actionDrafts = nil
	}

	nextSteps, err := eng.SuggestNextSteps(ctx, fullText, engineSummary.SummaryText)
	if err != nil {
		log.Warn().Err(err).Msg("next-step suggestion failed; continuing with empty set")
		nextSteps = nil
	}

	confidence := calculateConfidenceScore(engineSummary, actionDrafts, len(fullText))
	crmUpdates := suggestCRMStages(engineSummary.SummaryText)

	draft := &models.DraftSummary{
		CallBotSessionID:     callBotSessionID,
		SummaryText:          engineSummary.SummaryText,
		KeyPoints:            models.StringSlice(engineSummary.KeyPoints),
		Decisions:            models.StringSlice(engineSummary.Decisions),
		NextSteps:            models.StringSlice(nextSteps),
		SuggestedCRMUpdates:  models.JSONColumn[map[string]models.CRMStageUpdate]{Data: crmUpdates},
		ConfidenceScore:      confidence,
		ProcessingTimeMillis: time.Since(start).Milliseconds(),
	}

	if err := g.drafts.Create(draft); err != nil {
		return nil, fmt.Errorf("summary: persisting draft summary: %w", err)
	}

	if len(actionDrafts) > 0 {
		items := make([]models.ActionItem, len(actionDrafts))
		for i, a := range actionDrafts {
			priority := models.Priority(a.Priority)
			if priority == "" {
				priority = models.PriorityMedium
			}
			items[i] = models.ActionItem{
				DraftSummaryID: draft.ID,
				Description:    a.Description,
				Assignee:       a.Assignee,
				DueDate:        a.DueDate,
				Priority:       priority,
				Confidence:     a.Confidence,
				SourceText:     a.SourceText,
			}
		}
		if err := g.items.CreateBatch(items); err != nil {
			return nil, fmt.Errorf("summary: persisting action items: %w", err)
		}
		draft.ActionItems = items
	}

	g.metrics.ObserveSummaryLatency(time.Since(start).Seconds())
	return draft, nil
}

// calculateConfidenceScore implements §4.4's formula verbatim:
// min(1.0, engine_confidence + quality_bonus), where quality_bonus sums
// transcript-length bands, mean action-item confidence, key-point count,
// and decision presence.
func calculateConfidenceScore(s transcription.MeetingSummary, items []transcription.ActionItemDraft, transcriptLen int) float64 {
	bonus := 0.0

	switch {
	case transcriptLen > 1000:
		bonus += 0.10
	case transcriptLen > 500:
		bonus += 0.05
	}

	if len(items) > 0 {
		var sum float64
		for _, it := range items {
			sum += it.Confidence
		}
		bonus += (sum / float64(len(items))) * 0.10
	}

	if len(s.KeyPoints) >= 3 {
		bonus += 0.05
	}

	if len(s.Decisions) > 0 {
		bonus += 0.05
	}

	score := s.EngineConfidence + bonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// crmStageRule is one row of the first-match-wins keyword table (§4.4).
type crmStageRule struct {
	keywords   []string
	salesforce string
	hubspot    string
	creatio    string
}

var crmStageRules = []crmStageRule{
	{
		keywords:   []string{"signed", "approved", "contract", "deal closed", "purchase order"},
		salesforce: "Closed Won", hubspot: "closedwon", creatio: "Won",
	},
	{
		keywords:   []string{"proposal", "quote", "pricing", "contract review"},
		salesforce: "Proposal/Price Quote", hubspot: "presentationscheduled", creatio: "Proposal",
	},
	{
		keywords:   []string{"negotiate", "terms", "conditions", "discount"},
		salesforce: "Negotiation/Review", hubspot: "decisionmakerboughtin", creatio: "Negotiation",
	},
	{
		keywords:   []string{"requirements", "needs", "budget", "timeline"},
		salesforce: "Needs Analysis", hubspot: "qualifiedtobuy", creatio: "Qualification",
	},
}

var defaultCRMStages = crmStageRule{
	salesforce: "Prospecting", hubspot: "appointmentscheduled", creatio: "Prospecting",
}

// suggestCRMStages evaluates the keyword table in order, first match wins,
// falling back to the default Prospecting-equivalent stage per CRM system.
func suggestCRMStages(summaryText string) map[string]models.CRMStageUpdate {
	lower := strings.ToLower(summaryText)

	rule := defaultCRMStages
	for _, r := range crmStageRules {
		if matchesAny(lower, r.keywords) {
			rule = r
			break
		}
	}

	return map[string]models.CRMStageUpdate{
		string(models.CRMSalesforce): {Stage: rule.salesforce},
		string(models.CRMHubSpot):    {Stage: rule.hubspot},
		string(models.CRMCreatio):    {Stage: rule.creatio},
	}
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
