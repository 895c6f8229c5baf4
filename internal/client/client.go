package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL matches the server's default HOST and PORT
	DefaultBaseURL = "http://127.0.0.1:5001"

	// DefaultTimeout bounds each request
	DefaultTimeout = 5 * time.Second

	// ProbeTimeout bounds the reachability probe
	ProbeTimeout = 500 * time.Millisecond
)

// Job is the body of POST /enqueue
type Job struct {
	JobID  string `json:"job_id"`
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Health is the body of GET /health
type Health struct {
	OK             bool     `json:"ok"`
	Pending        int      `json:"pending"`
	Processing     int      `json:"processing"`
	ProcessingJobs []string `json:"processing_jobs"`
	QueueSize      int      `json:"queue_size"`
}

type enqueueResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	Error  string `json:"error"`
	Src    string `json:"src"`
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Config configures a Client
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the thumbnailer intake API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. Empty fields take their defaults.
func New(config Config) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		token:   config.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health fetches the queue state
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("invalid health response: %w", err)
	}
	return &health, nil
}

// Reachable reports whether the server answers /health within ProbeTimeout
func (c *Client) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	_, err := c.Health(ctx)
	return err == nil
}

// Enqueue submits job and returns the admission status, "queued" or
// "already_queued". Rejections are returned as *APIError.
func (c *Client) Enqueue(ctx context.Context, job Job) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/enqueue", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("enqueue failed: %w", err)
	}
	defer resp.Body.Close()

	var body enqueueResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("invalid enqueue response: %w", decodeErr)
	}
	if !body.OK {
		return "", errors.New("server did not accept the job")
	}
	return body.Status, nil
}
