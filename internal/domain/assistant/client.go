// Package assistant integrates the external generative-text collaborator
// that powers medicine suggestions, dosage hints, interaction checks and
// health tips. The upstream is best-effort: every call carries a hard
// timeout and failures degrade to typed fallbacks instead of propagating.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Suggestion is one medicine proposal from the collaborator.
type Suggestion struct {
	BrandName   string `json:"brandName"`
	GenericName string `json:"genericName"`
	Note        string `json:"note,omitempty"`
}

// Interaction describes a potential conflict between prescribed medicines.
type Interaction struct {
	Medicines   []string `json:"medicines"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
}

// Client is the collaborator contract. Implementations must respect ctx and
// return promptly; callers treat any error as upstream degradation.
type Client interface {
	SuggestMedicines(ctx context.Context, query string) ([]Suggestion, error)
	SuggestDosage(ctx context.Context, medicine string) (string, error)
	CheckInteractions(ctx context.Context, genericNames []string) ([]Interaction, error)
	HealthTips(ctx context.Context, patientSummary string) ([]string, error)
	AnswerQuestion(ctx context.Context, patientSummary, question string) (string, error)
}

// DefaultTimeout bounds each upstream call when config does not override it.
const DefaultTimeout = 5 * time.Second

// HTTPClient talks to the collaborator over JSON POST endpoints.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// post sends the request and decodes the response into out. The client-level
// timeout caps the call even when ctx has no deadline.
func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("assistant: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("assistant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.ReadAll(io.LimitReader(resp.Body, 1024)) // drain
		return fmt.Errorf("assistant: upstream returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("assistant: decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) SuggestMedicines(ctx context.Context, query string) ([]Suggestion, error) {
	var out struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	err := c.post(ctx, "/v1/medicines/suggest", map[string]string{"query": query}, &out)
	if err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

func (c *HTTPClient) SuggestDosage(ctx context.Context, medicine string) (string, error) {
	var out struct {
		Dosage string `json:"dosage"`
	}
	err := c.post(ctx, "/v1/medicines/dosage", map[string]string{"medicine": medicine}, &out)
	if err != nil {
		return "", err
	}
	return out.Dosage, nil
}

func (c *HTTPClient) CheckInteractions(ctx context.Context, genericNames []string) ([]Interaction, error) {
	var out struct {
		Interactions []Interaction `json:"interactions"`
	}
	err := c.post(ctx, "/v1/medicines/interactions", map[string][]string{"medicines": genericNames}, &out)
	if err != nil {
		return nil, err
	}
	return out.Interactions, nil
}

func (c *HTTPClient) HealthTips(ctx context.Context, patientSummary string) ([]string, error) {
	var out struct {
		Tips []string `json:"tips"`
	}
	err := c.post(ctx, "/v1/health-tips", map[string]string{"patient": patientSummary}, &out)
	if err != nil {
		return nil, err
	}
	return out.Tips, nil
}

func (c *HTTPClient) AnswerQuestion(ctx context.Context, patientSummary, question string) (string, error) {
	var out struct {
		Answer string `json:"answer"`
	}
	err := c.post(ctx, "/v1/questions", map[string]string{"patient": patientSummary, "question": question}, &out)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}
