package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/sirupsen/logrus"
)

// maxErrorBodyLen bounds how much of an error response body is logged.
const maxErrorBodyLen = 512

// trackerClient issues the three tracking calls. Each call carries the
// configured per-request timeout and is attempted exactly once.
type trackerClient struct {
	log        logrus.FieldLogger
	baseURL    string
	token      string
	httpClient *http.Client
}

func newTrackerClient(log logrus.FieldLogger, cfg *config.ReporterConfig) *trackerClient {
	return &trackerClient{
		log:     log.WithField("component", "tracker-client"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// createRun creates the run resource and returns the assigned run id.
func (c *trackerClient) createRun(
	ctx context.Context,
	req *createRunRequest,
) (string, error) {
	var resp createRunResponse
	if err := c.doJSON(
		ctx, http.MethodPost, "/api/v1/pipeline-runs", req, &resp,
	); err != nil {
		return "", err
	}

	if resp.Data.RunID == "" {
		return "", fmt.Errorf("create run response missing data.run_id")
	}

	return resp.Data.RunID, nil
}

// createTestCase records one test case against the run.
func (c *trackerClient) createTestCase(
	ctx context.Context,
	req *createTestCaseRequest,
) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/test-cases", req, nil)
}

// finalizeRun updates the run resource with final status and aggregates.
func (c *trackerClient) finalizeRun(
	ctx context.Context,
	runID string,
	req *finalizeRunRequest,
) error {
	return c.doJSON(
		ctx, http.MethodPatch, "/api/v1/pipeline-runs/"+runID, req, nil,
	)
}

// doJSON performs one JSON request/response round trip. Non-2xx statuses
// are returned as errors carrying a bounded response body snippet.
func (c *trackerClient) doJSON(
	ctx context.Context,
	method, path string,
	body, out any,
) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.baseURL+path, bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))

		return fmt.Errorf(
			"%s %s: unexpected status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(snippet)),
		)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
