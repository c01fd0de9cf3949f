package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RemoteClassifier scores rows on an HTTP endpoint. It lets the service sit
// in front of a model that only its training runtime can deserialize.
type RemoteClassifier struct {
	endpoint string
	names    []string
	client   *http.Client
}

func NewRemoteClassifier(endpoint string, names []string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if len(names) == 0 {
		names = FeatureNames()
	}
	return &RemoteClassifier{
		endpoint: endpoint,
		names:    append([]string(nil), names...),
		client:   &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
}

func (c *RemoteClassifier) FeatureNames() []string {
	return append([]string(nil), c.names...)
}

func (c *RemoteClassifier) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("remote classifier not configured")
	}
	payload, err := json.Marshal(remoteRequest{Columns: c.names, Rows: rows})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body remoteResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && body.Error != "" {
			return nil, fmt.Errorf("scoring endpoint error: %s", body.Error)
		}
		return nil, fmt.Errorf("scoring endpoint returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode scoring response: %w", decodeErr)
	}
	if len(body.Predictions) != len(rows) {
		return nil, fmt.Errorf("scoring endpoint returned %d predictions for %d rows", len(body.Predictions), len(rows))
	}
	return body.Predictions, nil
}
