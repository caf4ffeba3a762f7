// Package hubspot is the HubSpot CRM Sync adapter: an in-repo simulated
// REST client against HubSpot's CRM v3 object API, idempotent via HubSpot's
// own search-before-create semantics keyed on a custom property.
package hubspot

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/yourusername/meeting-intelligence/internal/apierrors"
	"github.com/yourusername/meeting-intelligence/internal/crmsync"
	"github.com/yourusername/meeting-intelligence/internal/models"
)

func init() {
	crmsync.Register(models.CRMHubSpot, func() crmsync.Adapter { return New() })
}

const defaultBaseURL = "https://api.hubapi.com/crm/v3/objects/deals"

type Client struct {
	BaseURL    string
	httpClient *http.Client
}

func New() *Client {
	return &Client{BaseURL: defaultBaseURL, httpClient: &http.Client{}}
}

func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

type searchResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type dealResponse struct {
	ID string `json:"id"`
}

// Write searches for a deal tagged with the idempotency token before
// creating one, so a retried sync never produces a duplicate deal.
func (c *Client) Write(ctx context.Context, payload crmsync.Payload) (string, error) {
	headers := map[string]string{"Authorization": "Bearer " + os.Getenv("HUBSPOT_API_KEY")}

	var existing searchResponse
	searchBody := searchRequest{FilterGroups: []filterGroup{{Filters: []filter{
		{PropertyName: "sync_idempotency_token", Operator: "EQ", Value: payload.IdempotencyToken},
	}}}}
	if err := crmsync.DoJSON(ctx, c.httpClient, http.MethodPost, c.BaseURL+"/search", headers, searchBody, &existing); err == nil && len(existing.Results) > 0 {
		return existing.Results[0].ID, nil
	}

	body := map[string]interface{}{
		"properties": map[string]string{
			"sync_idempotency_token": payload.IdempotencyToken,
			"dealstage":              payload.Stage,
			"description":            payload.SummaryText,
			"next_steps":             strings.Join(payload.NextSteps, "; "),
		},
	}

	var created dealResponse
	if err := crmsync.DoJSON(ctx, c.httpClient, http.MethodPost, c.BaseURL, headers, body, &created); err != nil {
		if statusErr, ok := err.(*crmsync.StatusError); ok {
			return "", apierrors.NewCRMAdapterError(statusErr.Retryable(), "hubspot: create deal failed", statusErr)
		}
		return "", apierrors.NewCRMAdapterError(true, "hubspot: create deal failed", err)
	}
	return created.ID, nil
}
