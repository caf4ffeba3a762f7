// Package creatio is the Creatio CRM Sync adapter: an in-repo simulated
// REST client against Creatio's OData-style collection API.
package creatio

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
	crmsync.Register(models.CRMCreatio, func() crmsync.Adapter { return New() })
}

const defaultBaseURL = "https://creatio.example.com/0/odata/Opportunity"

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

type odataLookup struct {
	Value []struct {
		ID string `json:"Id"`
	} `json:"value"`
}

type odataCreateResponse struct {
	ID string `json:"Id"`
}

// Write dedupes via an OData $filter lookup on the sync token before
// POSTing a new Opportunity record.
func (c *Client) Write(ctx context.Context, payload crmsync.Payload) (string, error) {
	headers := map[string]string{"ApiKey": os.Getenv("CREATIO_API_KEY")}

	var lookup odataLookup
	lookupURL := c.BaseURL + "?$filter=SyncIdempotencyToken eq '" + payload.IdempotencyToken + "'"
	if err := crmsync.DoJSON(ctx, c.httpClient, http.MethodGet, lookupURL, headers, nil, &lookup); err == nil && len(lookup.Value) > 0 {
		return lookup.Value[0].ID, nil
	}

	body := map[string]interface{}{
		"SyncIdempotencyToken": payload.IdempotencyToken,
		"Stage":                payload.Stage,
		"Notes":                payload.SummaryText,
		"NextSteps":            strings.Join(payload.NextSteps, "; "),
	}

	var created odataCreateResponse
	if err := crmsync.DoJSON(ctx, c.httpClient, http.MethodPost, c.BaseURL, headers, body, &created); err != nil {
		if statusErr, ok := err.(*crmsync.StatusError); ok {
			return "", apierrors.NewCRMAdapterError(statusErr.Retryable(), "creatio: create opportunity failed", statusErr)
		}
		return "", apierrors.NewCRMAdapterError(true, "creatio: create opportunity failed", err)
	}
	return created.ID, nil
}
