package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/jask/finlink/internal/fault"
)

const callTimeout = 15 * time.Second

// HTTPClassifier calls the model service's process-content endpoint.
type HTTPClassifier struct {
	url  string
	http *http.Client
}

func NewHTTPClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{url: url, http: &http.Client{Timeout: callTimeout}}
}

type classifyRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

type classifyResponse struct {
	Result          Result `json:"result"`
	ReceivedContent string `json:"received_content"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, narration, sourceTag string) (Result, error) {
	if narration == "" {
		return Result{}, fault.New(fault.Validation, "narration required")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(classifyRequest{Content: narration, Type: sourceTag})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fault.Wrap(fault.Upstream, "classifier call", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fault.Newf(fault.Upstream, "classifier: status %d: %s", resp.StatusCode, b)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fault.Wrap(fault.Upstream, "classifier response decode", err)
	}
	return out.Result, nil
}
