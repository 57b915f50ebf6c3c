// Package classify is the boundary to the external species-detection
// model. The model itself is a black box: it receives a pointer to the
// uploaded asset and answers with a species-count map.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Request struct {
	FileID   string `json:"fileId"`
	S3URL    string `json:"s3Url"`
	FileType string `json:"fileType"`
}

type response struct {
	Tags map[string]int `json:"tags"`
}

type Classifier interface {
	Detect(ctx context.Context, req Request) (map[string]int, error)
}

// HTTPClassifier posts the asset reference to the configured detection
// endpoint.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClassifier) Detect(ctx context.Context, req Request) (map[string]int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode detect request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("detect call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect call: unexpected status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}

	// The model must not hand back zero or negative counts; drop them so
	// the sparse-map invariant holds no matter what it returns.
	detected := make(map[string]int, len(out.Tags))
	for species, count := range out.Tags {
		if species == "" || count <= 0 {
			continue
		}
		detected[species] = count
	}
	return detected, nil
}
