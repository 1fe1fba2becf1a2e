package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vip-pay-bot/internal/config"
)

// Client handles communication with the OCR service API
type Client struct {
	baseURL    string
	wsURL      string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new OCR client
func NewClient(cfg config.OCRConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		wsURL:    cfg.WebSocketURL,
		language: cfg.Language,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// ExtractText is the main entry point for receipt text extraction
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	// Create job monitor with unique client ID
	monitor := NewJobMonitor(c.wsURL, c.logger)

	// Queue the job
	jobID, err := c.SubmitJob(ctx, image, monitor.ClientID())
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}

	c.logger.Debug("ocr job queued", "job_id", jobID)

	// Wait for completion
	if err := monitor.WaitForCompletion(ctx, jobID, nil); err != nil {
		return "", fmt.Errorf("wait for completion: %w", err)
	}

	// Fetch the extracted text
	result, err := c.GetResult(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("get result: %w", err)
	}
	if !result.Completed {
		return "", fmt.Errorf("job %s not completed", jobID)
	}

	return result.Text, nil
}

// SubmitJob sends an image to the OCR service
func (c *Client) SubmitJob(ctx context.Context, image []byte, clientID string) (string, error) {
	req := JobRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Language: c.language,
		ClientID: clientID,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var jobResp JobResponse
	if err := json.Unmarshal(respBody, &jobResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if jobResp.Error != "" {
		return "", fmt.Errorf("ocr service error: %s", jobResp.Error)
	}

	return jobResp.JobID, nil
}

// GetResult retrieves the extracted text for a job
func (c *Client) GetResult(ctx context.Context, jobID string) (*ResultResponse, error) {
	reqURL := fmt.Sprintf("%s/jobs/%s/result", c.baseURL, jobID)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var result ResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// CheckHealth verifies the OCR service is accessible
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
