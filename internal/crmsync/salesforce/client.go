// Package salesforce is the Salesforce CRM Sync adapter: an in-repo
// simulated REST client against Salesforce's sobject API shape, idempotent
// on the sync record's (validation_session_id, crm_system) token via a
// dedupe-read before create.
package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/yourusername/meeting-intelligence/internal/apierrors"
	"github.com/yourusername/meeting-intelligence/internal/crmsync"
	"github.com/yourusername/meeting-intelligence/internal/models"
)

func init() {
	crmsync.Register(models.CRMSalesforce, func() crmsync.Adapter { return New() })
}

const defaultBaseURL = "https://login.salesforce.com/services/data/v59.0"

// Client is the Salesforce adapter. httpClient is unexported; tests inject
// a RoundTripper that returns canned responses through SetHTTPClient.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

func New() *Client {
	return &Client{BaseURL: defaultBaseURL, httpClient: &http.Client{}}
}

// SetHTTPClient overrides the transport, used by tests to intercept calls.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

type opportunityLookup struct {
	Records []struct {
		ID string `json:"Id"`
	} `json:"records"`
}

type opportunityCreateResponse struct {
	ID string `json:"id"`
}

// Write upserts an Opportunity by external idempotency key: a dedupe-read
// via SOQL lookup on the token first, then a create only if none is found.
func (c *Client) Write(ctx context.Context, payload crmsync.Payload) (string, error) {
	headers := map[string]string{"Authorization": "Bearer " + os.Getenv("SALESFORCE_API_KEY")}

	var lookup opportunityLookup
	lookupURL := c.BaseURL + "/query?q=SELECT+Id+FROM+Opportunity+WHERE+External_Sync_Token__c='" + payload.IdempotencyToken + "'"
	if err := crmsync.DoJSON(ctx, c.httpClient, http.MethodGet, lookupURL, headers, nil, &lookup); err == nil && len(lookup.Records) > 0 {
		return lookup.Records[0].ID, nil
	}

	body := map[string]interface{}{
		"External_Sync_Token__c": payload.IdempotencyToken,
		"StageName":              payload.Stage,
		"Description":            payload.SummaryText,
		"NextStep":               formatNextSteps(payload),
	}

	var created opportunityCreateResponse
	createURL := c.BaseURL + "/sobjects/Opportunity"
	if err := crmsync.DoJSON(ctx, c.httpClient, http.MethodPost, createURL, headers, body, &created); err != nil {
		if statusErr, ok := err.(*crmsync.StatusError); ok {
			return "", apierrors.NewCRMAdapterError(statusErr.Retryable(), "salesforce: create opportunity failed", statusErr)
		}
		return "", apierrors.NewCRMAdapterError(true, "salesforce: create opportunity failed", err)
	}
	return created.ID, nil
}

func formatNextSteps(payload crmsync.Payload) string {
	out := ""
	for i, step := range payload.NextSteps {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("- %s", step)
	}
	return out
}
