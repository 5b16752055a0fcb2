package narrative

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

	"github.com/cenkalti/backoff/v4"

	"palatlas-go/internal/logger"
)

var (
	ErrMissingCredential = errors.New("language model credential not configured: set OPENAI_API_KEY and restart the server")
	ErrUpstream          = errors.New("language model request failed")
	ErrEmptyOutput       = errors.New("language model returned no text")
)

// Model turns a prompt into free text.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ResponsesConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	HTTPTimeout  time.Duration
	MaxRetryTime time.Duration
}

// ResponsesModel talks to an OpenAI-compatible /responses endpoint.
type ResponsesModel struct {
	cfg  ResponsesConfig
	http *http.Client
	log  *logger.Logger
}

func NewResponsesModel(cfg ResponsesConfig, log *logger.Logger) *ResponsesModel {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	if cfg.MaxRetryTime <= 0 {
		cfg.MaxRetryTime = 90 * time.Second
	}
	return &ResponsesModel{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		log:  log.Component("responses-model"),
	}
}

// Configured reports whether a credential is present.
func (m *ResponsesModel) Configured() bool {
	return m != nil && m.cfg.APIKey != ""
}

func (m *ResponsesModel) Complete(ctx context.Context, prompt string) (string, error) {
	if !m.Configured() {
		return "", ErrMissingCredential
	}
	data, err := json.Marshal(map[string]any{
		"model": m.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimRight(m.cfg.BaseURL, "/") + "/responses"

	var text string
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUpstream, err)
			m.log.WithError(err).Warn("llm request failed")
			return lastErr
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		m.log.WithField("http_status", resp.StatusCode).WithField("body_len", len(body)).Debug("llm response")

		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(body), 300))
			if resp.StatusCode < 500 {
				// Permanent: don't retry on client errors
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}

		text = outputText(body)
		if text == "" {
			lastErr = ErrEmptyOutput
			return lastErr
		}
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = m.cfg.MaxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr != nil {
			return "", lastErr
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return text, nil
}

// outputText reads output_text, then output[].content[].text, then
// choices[0].message.content.
func outputText(body []byte) string {
	var parsed struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if s := strings.TrimSpace(parsed.OutputText); s != "" {
		return s
	}
	var parts []string
	for _, o := range parsed.Output {
		for _, c := range o.Content {
			if c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	if len(parts) > 0 {
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}
	if len(parsed.Choices) > 0 {
		return strings.TrimSpace(parsed.Choices[0].Message.Content)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// MockModel returns canned text for offline demos (USE_MOCK_LLM=true).
type MockModel struct{}

func (MockModel) Complete(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, chatMarker) {
		return "Based on the analysis above, the strongest near-term opportunity is in under-served " +
			"categories with few highly rated competitors. Validate demand with a small pilot before scaling.", nil
	}
	return `**MARKET OVERVIEW**
A mixed consumer market with a strong hospitality core.

**BUSINESS DIVERSITY**
Moderate diversity, concentrated in food and retail.

**QUALITY METRICS**
Ratings cluster in the upper range for established venues.

**OPPORTUNITY LANDSCAPE**
Gaps exist in specialty services and late-hours offerings.

**COMPETITIVE DYNAMICS**
Leading brands hold share through visibility rather than price.

**CONSUMER INSIGHTS**
Consumers favor convenience and consistent quality.

**EXECUTIVE SUMMARY**
Target under-served niches, compete on experience, and monitor category saturation.`, nil
}
