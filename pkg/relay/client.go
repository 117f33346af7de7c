package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrSubmissionFailed wraps every failed submission attempt.
var ErrSubmissionFailed = errors.New("submission failed")

// Client submits applications to a relay endpoint over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the relay at endpoint. A nil httpClient
// uses a client with a 60 second timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Submit posts the submission and decodes the relay's Result. Transport
// errors, non-2xx statuses and ok:false answers are returned as errors
// wrapping ErrSubmissionFailed.
func (c *Client) Submit(ctx context.Context, sub Submission) (Result, error) {
	body, contentType, err := sub.Encode()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %w", ErrSubmissionFailed, err)
	}

	var result Result
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr != nil {
			result = failure(MessageUpstreamFailed)
		}
		return result, fmt.Errorf("%w: relay status %d", ErrSubmissionFailed, resp.StatusCode)
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("%w: decode response: %w", ErrSubmissionFailed, decodeErr)
	}
	if !result.OK {
		return result, fmt.Errorf("%w: %s", ErrSubmissionFailed, result.Message)
	}
	return result, nil
}
