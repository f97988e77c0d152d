package openai

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

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ErrUnauthorized is returned when the API rejects the configured key.
var ErrUnauthorized = errors.New("openai request unauthorized")

// Client implements the report generator and normative responder on top of
// the OpenAI Responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

var (
	_ providers.ReportGenerator    = (*Client)(nil)
	_ providers.NormativeResponder = (*Client)(nil)
)

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			// Zero means no client-side deadline.
			Timeout: cfg.Timeout,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// Close stops the rate limiter refill goroutine.
func (c *Client) Close() {
	if c.limiter != nil {
		c.limiter.Stop()
	}
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model           string         `json:"model"`
	Input           []inputMessage `json:"input"`
	Temperature     float64        `json:"temperature"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
	Text            *textOptions   `json:"text,omitempty"`
}

type textOptions struct {
	Format textFormat `json:"format"`
}

type textFormat struct {
	Type   string                 `json:"type"`
	Name   string                 `json:"name,omitempty"`
	Schema map[string]interface{} `json:"schema,omitempty"`
	Strict bool                   `json:"strict"`
}

// GenerateReport asks the model for a structured compliance report. The
// response is parsed structurally; its content is not second-guessed.
func (c *Client) GenerateReport(ctx context.Context, submission *entities.ChecklistSubmission) (*entities.Report, error) {
	if submission == nil {
		return nil, errors.New("submission is required")
	}

	userPrompt, err := buildReportUserPrompt(submission)
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, "report", responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: reportSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:     0.2,
		MaxOutputTokens: 4000,
		Text: &textOptions{Format: textFormat{
			Type:   "json_schema",
			Name:   "inspection_report",
			Schema: reportSchema(),
		}},
	})
	if err != nil {
		return nil, err
	}

	report, err := parseReportPayload([]byte(stripCodeFence(text)))
	if err != nil {
		recordOpenAIParseError(ctx, c.model, "report")
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}
	return report, nil
}

// Answer returns free text answering a regulatory question.
func (c *Client) Answer(ctx context.Context, question string) (string, error) {
	text, err := c.complete(ctx, "normative", responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: normativeSystemPrompt},
			{Role: "user", Content: buildNormativeUserPrompt(question)},
		},
		Temperature:     0.3,
		MaxOutputTokens: 800,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// complete sends one request to /responses and returns the first output text.
func (c *Client) complete(ctx context.Context, operation string, payload responsesRequest) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordOpenAIMetric(ctx, c.model, operation, 0, 0, err)
			return "", err
		}
		recordOpenAIRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordOpenAIMetric(ctx, c.model, operation, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		statusErr := fmt.Errorf("status %d", resp.StatusCode)
		recordOpenAIMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), statusErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		}
		return "", fmt.Errorf("openai request failed with status %d", resp.StatusCode)
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordOpenAIMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), err)
		return "", fmt.Errorf("failed to decode openai envelope: %w", err)
	}

	text := firstOutputText(envelope)
	if text == "" {
		err := errors.New("openai response missing output text")
		recordOpenAIMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	recordOpenAIMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), nil)
	return text, nil
}

func firstOutputText(envelope responseEnvelope) string {
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				return content.Text
			}
		}
	}
	return ""
}

// stripCodeFence removes a Markdown code fence some models wrap JSON in.
func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}
