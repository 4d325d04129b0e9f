package llm

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

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const userPromptPrefix = "Please provide a concise and engaging summary of this news article: "

// ChatGPTClient implements ports.Summarizer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	maxTokens    int
	httpClient   *http.Client
}

var _ ports.Summarizer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    200,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize asks the chat model for a 2-3 sentence summary of text.
func (c *ChatGPTClient) Summarize(ctx context.Context, text string) (string, error) {
	if c == nil {
		return "", &domain.SummarizationError{Err: errors.New("chatgpt client is nil")}
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", &domain.SummarizationError{Err: errors.New("chatgpt client misconfigured")}
	}
	if strings.TrimSpace(text) == "" {
		return "", &domain.SummarizationError{Err: errors.New("empty content")}
	}

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": userPromptPrefix + text},
		},
	})
	if err != nil {
		return "", &domain.SummarizationError{Err: fmt.Errorf("marshal chatgpt payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &domain.SummarizationError{Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.SummarizationError{Err: fmt.Errorf("send completion: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.SummarizationError{Err: fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &domain.SummarizationError{Err: fmt.Errorf("decode completion: %w", err)}
	}
	if len(decoded.Choices) == 0 {
		return "", &domain.SummarizationError{Err: errors.New("completion has no choices")}
	}

	summary := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if summary == "" {
		return "", &domain.SummarizationError{Err: errors.New("empty summary")}
	}
	return summary, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a professional news summarizer. Reply with a 2-3 sentence summary."
	}
	return prompt
}
