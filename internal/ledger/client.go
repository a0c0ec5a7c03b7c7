package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type executionEnvelope struct {
	Type string `json:"type"`
	ExecutionReport
}

type finalizeEnvelope struct {
	Type string `json:"type"`
	FinalizeReport
}

// Client posts boundary events to a single HTTP endpoint. No retries; the
// client timeout bounds every call.
type Client struct {
	client   *http.Client
	endpoint string
}

// NewClient builds a client for the given endpoint; timeout defaults to 10s
// when non-positive.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

func (c *Client) ReportExecution(ctx context.Context, report ExecutionReport) (ExecutionAck, error) {
	body, err := c.post(ctx, executionEnvelope{Type: TypeTradeExecuted, ExecutionReport: report})
	if err != nil {
		return ExecutionAck{}, err
	}
	var ack ExecutionAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return ExecutionAck{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}

func (c *Client) FinalizeTrade(ctx context.Context, report FinalizeReport) error {
	_, err := c.post(ctx, finalizeEnvelope{Type: TypeFinalizeTrade, FinalizeReport: report})
	return err
}

func (c *Client) post(ctx context.Context, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
