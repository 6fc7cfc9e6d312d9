package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/tidewatch/tidewatch/internal/utils/request"
)

const serviceKeyHeader = "X-Service-Key"

// HubClient talks to the agent framework's hub over HTTP. Every request
// carries the service-identity key; failures are returned to the caller,
// which decides whether they matter.
type HubClient struct {
	baseURL    string
	serviceKey string
	httpClient *resty.Client
}

// NewHubClient creates a collaborator client for the hub at baseURL.
func NewHubClient(baseURL, serviceKey string) *HubClient {
	return &HubClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: request.Request,
	}
}

// PushStatus implements the Collaborator interface
func (c *HubClient) PushStatus(ctx context.Context, taskID, status, note string) error {
	return c.postJSON(ctx, fmt.Sprintf("/tasks/%s/status", taskID), map[string]string{
		"status": status,
		"note":   note,
	})
}

// RequestAssistance implements the Collaborator interface
func (c *HubClient) RequestAssistance(ctx context.Context, taskID, question string) error {
	return c.postJSON(ctx, fmt.Sprintf("/tasks/%s/assistance", taskID), map[string]string{
		"question": question,
	})
}

// UploadArtifact implements the Collaborator interface
func (c *HubClient) UploadArtifact(ctx context.Context, taskID, filename string, content []byte) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(serviceKeyHeader, c.serviceKey).
		SetFileReader("file", filename, bytes.NewReader(content)).
		Post(c.baseURL + fmt.Sprintf("/tasks/%s/artifacts", taskID))
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	return checkStatus(resp)
}

// SendChat implements the Collaborator interface
func (c *HubClient) SendChat(ctx context.Context, taskID, text string) error {
	return c.postJSON(ctx, fmt.Sprintf("/tasks/%s/chat", taskID), map[string]string{
		"text": text,
	})
}

func (c *HubClient) postJSON(ctx context.Context, path string, body interface{}) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(serviceKeyHeader, c.serviceKey).
		SetBody(body).
		Post(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to call hub %s: %w", path, err)
	}
	return checkStatus(resp)
}

func checkStatus(resp *resty.Response) error {
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("hub returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
