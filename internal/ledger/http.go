package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/minesgame/internal/model"
)

// HTTPConfig holds settings for the remote ledger
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultHTTPConfig returns sensible defaults for the remote ledger
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL: "http://localhost:9090",
		Timeout: 10 * time.Second,
	}
}

// HTTPClient is a JSON-over-HTTP ledger client
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a ledger client for the given endpoint
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Ensure HTTPClient implements the interface
var _ Ledger = (*HTTPClient)(nil)

type errorResponse struct {
	Message string `json:"message"`
}

type balanceResponse struct {
	Balance model.Money `json:"balance"`
}

func (c *HTTPClient) Debit(ctx context.Context, req DebitRequest) (DebitResult, error) {
	var result DebitResult
	if err := c.do(ctx, http.MethodPost, "/debit", req, &result); err != nil {
		return DebitResult{}, err
	}
	if result.TxnID == "" {
		return DebitResult{}, fmt.Errorf("%w: response carried no txn id", ErrDeclined)
	}
	return result, nil
}

func (c *HTTPClient) Credit(ctx context.Context, req CreditRequest) (CreditResult, error) {
	var result CreditResult
	if err := c.do(ctx, http.MethodPost, "/credit", req, &result); err != nil {
		return CreditResult{}, err
	}
	return result, nil
}

func (c *HTTPClient) Balance(ctx context.Context, player model.PlayerID) (model.Money, error) {
	var result balanceResponse
	path := fmt.Sprintf("/balance/%s/%s", url.PathEscape(player.OperatorID), url.PathEscape(player.UserID))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return 0, err
	}
	return result.Balance, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// 4xx is a refusal, anything else non-2xx is a transport failure
	if resp.StatusCode >= 400 {
		msg := string(respBody)
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			msg = errResp.Message
		}
		if resp.StatusCode < 500 {
			return fmt.Errorf("%w: HTTP %d: %s", ErrDeclined, resp.StatusCode, msg)
		}
		return fmt.Errorf("ledger HTTP %d: %s", resp.StatusCode, msg)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
