package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/models"
)

// StatusClient is the HTTP implementation of CheckFunc, calling the
// server's check-payment-status endpoint with the user's bearer token.
type StatusClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewStatusClient(baseURL, token string) *StatusClient {
	return &StatusClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CheckStatus satisfies CheckFunc.
func (c *StatusClient) CheckStatus(ctx context.Context, checkoutRequestID string) (StatusResult, error) {
	payload, err := json.Marshal(map[string]string{"checkoutRequestId": checkoutRequestID})
	if err != nil {
		return StatusResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/mpesa/check-payment-status", bytes.NewBuffer(payload))
	if err != nil {
		return StatusResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return StatusResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return StatusResult{}, fmt.Errorf("status check failed: %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Status models.PaymentStatus `json:"status"`
		Detail string               `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return StatusResult{}, err
	}

	return StatusResult{Status: out.Status, Detail: out.Detail}, nil
}
