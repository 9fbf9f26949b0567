// Package notify holds the HTTP clients for the notification and invoice
// collaborators. The engine only needs boolean outcomes from them; template
// rendering and document storage are their concern.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/config"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ application.NotificationSender = (*HTTPClient)(nil)
	_ application.InvoiceGenerator   = (*HTTPClient)(nil)
)

func NewHTTPClient(cfg config.NotifyConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type sendRequestBody struct {
	PaymentID  string   `json:"payment_id"`
	TemplateID string   `json:"template_id"`
	Channels   []string `json:"channels"`
}

type sendResponseBody struct {
	Success  bool            `json:"success"`
	Channels map[string]bool `json:"channels"`
}

func (c *HTTPClient) Send(ctx context.Context, paymentID, templateID string, channels []string) (application.NotificationResult, error) {
	url := fmt.Sprintf("%s/api/v1/notifications", c.baseURL)
	body := sendRequestBody{PaymentID: paymentID, TemplateID: templateID, Channels: channels}

	resp, err := postJSON[sendRequestBody, sendResponseBody](c, ctx, url, &body)
	if err != nil {
		return application.NotificationResult{}, err
	}
	return application.NotificationResult{Success: resp.Success, Channels: resp.Channels}, nil
}

type generateRequestBody struct {
	PaymentID string `json:"payment_id"`
}

type generateResponseBody struct {
	Success     bool   `json:"success"`
	DocumentRef string `json:"document_ref"`
}

func (c *HTTPClient) Generate(ctx context.Context, paymentID string) (application.InvoiceResult, error) {
	url := fmt.Sprintf("%s/api/v1/invoices", c.baseURL)
	body := generateRequestBody{PaymentID: paymentID}

	resp, err := postJSON[generateRequestBody, generateResponseBody](c, ctx, url, &body)
	if err != nil {
		return application.InvoiceResult{}, err
	}
	return application.InvoiceResult{Success: resp.Success, DocumentRef: resp.DocumentRef}, nil
}

func postJSON[Req any, Resp any](c *HTTPClient, ctx context.Context, url string, reqBody *Req) (*Resp, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling json: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp senderErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("collaborator returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, &SenderError{
			Code:       errResp.Err,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var decoded Resp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}
	return &decoded, nil
}
