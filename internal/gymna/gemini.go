package gymna

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/honestmeals/honestmeals/internal/models"
)

// NewModelClient is a variable so tests can swap in a mock client.
var NewModelClient = newGeminiClientImpl

// ModelClient is the interface to the generative-language service.
type ModelClient interface {
	// Generate produces a freeform reply from an alternating conversation.
	Generate(ctx context.Context, history []Turn, userText string) (string, error)
	// GenerateStructured produces raw JSON matching the prompt's schema.
	GenerateStructured(ctx context.Context, prompt string) ([]byte, error)
}

// HTTPGeminiClient implements ModelClient over the generative-language HTTP API
type HTTPGeminiClient struct {
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client

	// Optional function for testing/mocking
	generateFunc func(ctx context.Context, history []Turn, userText string) (string, error)
}

// GeminiRequest represents a request to the Gemini API
type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

// GeminiContent is one conversation turn; role is "user" or "model"
type GeminiContent struct {
	Role  string       `json:"role"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart is a part of a turn's content
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiResponse represents a response from the Gemini API
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// GeminiCandidate represents a candidate response from Gemini
type GeminiCandidate struct {
	Content struct {
		Parts []GeminiPart `json:"parts"`
	} `json:"content"`
}

// newGeminiClientImpl creates a client with the API key from the environment.
// A missing key is reported as ErrServiceConfiguration at request time.
func newGeminiClientImpl(model string, timeout time.Duration) (ModelClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, ErrServiceConfiguration
	}
	if model == "" {
		model = "gemini-pro"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &HTTPGeminiClient{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Generate sends the sanitized history plus the new user text and returns the
// model's reply. The call is bounded by the configured timeout and retried at
// most once on transient failure.
func (c *HTTPGeminiClient) Generate(ctx context.Context, history []Turn, userText string) (string, error) {
	if c.generateFunc != nil {
		return c.generateFunc(ctx, history, userText)
	}

	contents := make([]GeminiContent, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, GeminiContent{
			Role:  role,
			Parts: []GeminiPart{{Text: turn.Text}},
		})
	}
	contents = append(contents, GeminiContent{
		Role:  "user",
		Parts: []GeminiPart{{Text: userText}},
	})

	return c.call(ctx, GeminiRequest{Contents: contents})
}

// GenerateStructured sends a single prompt and returns cleaned JSON bytes.
func (c *HTTPGeminiClient) GenerateStructured(ctx context.Context, prompt string) ([]byte, error) {
	text, err := c.call(ctx, GeminiRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return nil, err
	}

	clean := CleanModelJSON(text)

	// Validate the response is valid JSON
	var jsonResponse interface{}
	if err := json.Unmarshal([]byte(clean), &jsonResponse); err != nil {
		return nil, fmt.Errorf("invalid JSON response from LLM: %w", err)
	}

	return []byte(clean), nil
}

func (c *HTTPGeminiClient) call(ctx context.Context, reqBody GeminiRequest) (string, error) {
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", c.model, c.apiKey)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// One retry on transient failure; a timeout counts as any other failure.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, retryable, err := c.doRequest(ctx, url, reqBytes)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (c *HTTPGeminiClient) doRequest(ctx context.Context, url string, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failures are worth one retry.
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", false, errors.New("no response generated")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, false, nil
}

// CleanModelJSON strips markdown code-block formatting the model sometimes
// wraps around JSON output.
func CleanModelJSON(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
