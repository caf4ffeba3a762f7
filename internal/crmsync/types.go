// Package crmsync is the CRM Sync component (§4.6): a name-keyed registry
// of pluggable CRM adapters (salesforce, hubspot, creatio), each an in-repo
// simulated REST client behind the same Adapter contract, upserted through
// an idempotent write path gated on validation completion.
package crmsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/meeting-intelligence/internal/models"
)

// Payload is the CRM-agnostic shape a Formatter produces from a validated
// artifact; adapters translate it into their vendor's wire format.
type Payload struct {
	IdempotencyToken string
	LeadCRMID        string
	Stage            string
	SummaryText      string
	NextSteps        []string
	ActionItems      []ActionItemPayload
}

// ActionItemPayload is one task carried in a Payload.
type ActionItemPayload struct {
	Description string
	Assignee    string
	DueDate     string
}

// Adapter is the pluggable per-CRM write contract. Write must be
// idempotent under the given token: calling it twice with the same token
// must not create two CRM objects.
type Adapter interface {
	Write(ctx context.Context, payload Payload) (crmRecordID string, err error)
}

// Factory builds a new, unconfigured Adapter instance.
type Factory func() Adapter

var (
	mu        sync.RWMutex
	factories = map[models.CRMSystem]Factory{}
)

// Register adds an adapter factory under a stable CRM system name. Called
// from each adapter subpackage's init().
func Register(system models.CRMSystem, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[system] = factory
}

// New builds a fresh Adapter for system, or an error if none is registered.
func New(system models.CRMSystem) (Adapter, error) {
	mu.RLock()
	factory, ok := factories[system]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("crmsync: no adapter registered for CRM system %q", system)
	}
	return factory(), nil
}

// FormatFromValidation builds the CRM-agnostic Payload from a completed
// ValidationSession and its parent DraftSummary/ActionItems. It is system-
// agnostic; each Adapter's Write does its own vendor-specific translation.
func FormatFromValidation(session *models.ValidationSession, draft *models.DraftSummary, leadCRMID string, system models.CRMSystem) (Payload, error) {
	if session.Status != models.ValidationCompleted {
		return Payload{}, fmt.Errorf("crmsync: validation session %s is not completed", session.ID)
	}

	stage := ""
	if update, ok := session.ApprovedCRMUpdates.Data[string(system)]; ok {
		stage = update.Stage
	}

	summaryText := session.ValidatedSummary
	if summaryText == "" {
		summaryText = draft.SummaryText
	}

	items := make([]ActionItemPayload, 0, len(draft.ActionItems))
	for _, item := range draft.ActionItems {
		items = append(items, ActionItemPayload{
			Description: item.Description,
			Assignee:    item.Assignee,
			DueDate:     item.DueDate,
		})
	}

	return Payload{
		IdempotencyToken: session.ID.String() + ":" + string(system),
		LeadCRMID:        leadCRMID,
		Stage:            stage,
		SummaryText:      summaryText,
		NextSteps:        []string(draft.NextSteps),
		ActionItems:      items,
	}, nil
}
