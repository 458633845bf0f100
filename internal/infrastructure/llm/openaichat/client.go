// Package openaichat implements the chat completion port against an
// OpenAI-compatible API (Groq, Together, vLLM and the like all speak it).
package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/resilience"
)

type Client struct {
	baseURL       string
	apiKey        string
	primaryModel  string
	fallbackModel string
	maxTokens     int
	temperature   float64

	httpClient   *http.Client
	executor     *resilience.Executor
	recordTokens func(model string, promptTokens, completionTokens int)
}

type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	Executor *resilience.Executor
	// RecordTokens receives usage counts per call; nil disables recording.
	RecordTokens func(model string, promptTokens, completionTokens int)
}

func New(baseURL, apiKey, primaryModel, fallbackModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		maxTokens:     maxTokens,
		temperature:   options.Temperature,
		httpClient:    &http.Client{Timeout: timeout},
		executor:      options.Executor,
		recordTokens:  options.RecordTokens,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) Complete(ctx context.Context, req ports.ChatRequest) (ports.ChatResult, error) {
	model := c.primaryModel
	if req.Model == ports.ModelFallback {
		model = c.fallbackModel
	}

	payload := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if req.ForceJSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var response chatCompletionResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/chat/completions", payload, &response)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "chat.complete", call, classifyChatError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return ports.ChatResult{}, wrapTemporaryIfNeeded("chat complete", err)
	}

	if len(response.Choices) == 0 {
		return ports.ChatResult{}, fmt.Errorf("chat completion returned no choices")
	}
	if c.recordTokens != nil {
		c.recordTokens(model, response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}
	return ports.ChatResult{
		Content:          strings.TrimSpace(response.Choices[0].Message.Content),
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode chat response: %w", err)
	}
	return nil
}
