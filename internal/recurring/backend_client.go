package recurring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskflow/pkg/circuitbreaker"
	"taskflow/pkg/metrics"
	"taskflow/pkg/trace"
)

const createTaskPath = "/api/tasks"

// CreateTaskRequest is the successor task sent to the task API.
type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Recurrence   string     `json:"recurrence,omitempty"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
	UserID       string     `json:"user_id"`
}

type CreatedTask struct {
	ID string `json:"id"`
}

// BackendClient creates successor tasks through the task API collaborator.
type BackendClient interface {
	CreateTask(ctx context.Context, req CreateTaskRequest, token string) (*CreatedTask, error)
}

// Client is the HTTP implementation of BackendClient, with a circuit breaker
// so a dead backend fails fast instead of tying up deliveries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewClient(baseURL string) *Client {
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		cb: circuitbreaker.NewCircuitBreaker(cbConfig),
	}
}

// CreateTask posts a new task carrying the caller's bearer credential.
// 5xx and transport failures come back as transient errors; 4xx means the
// request itself is bad and retrying cannot help.
func (c *Client) CreateTask(ctx context.Context, taskReq CreateTaskRequest, token string) (*CreatedTask, error) {
	var created *CreatedTask

	err := c.cb.Execute(func() error {
		start := time.Now()

		b, err := json.Marshal(taskReq)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createTaskPath, bytes.NewReader(b))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName(), traceID)
		}

		resp, err := c.httpClient.Do(req)
		latency := time.Since(start)
		if err != nil {
			metrics.RecordBackendCall(createTaskPath, "error", latency)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			metrics.RecordBackendCall(createTaskPath, "5xx", latency)
			return fmt.Errorf("backend returned 5xx: %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			metrics.RecordBackendCall(createTaskPath, fmt.Sprintf("%d", resp.StatusCode), latency)
			return fmt.Errorf("backend returned error: %d", resp.StatusCode)
		}

		metrics.RecordBackendCall(createTaskPath, "success", latency)

		var task CreatedTask
		if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
			return fmt.Errorf("failed to decode created task: %w", err)
		}
		created = &task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
