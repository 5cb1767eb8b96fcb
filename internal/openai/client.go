// Copyright 2025 Soporte AVI Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai wraps the go-openai client with the retry and error
// classification the dialogue engine needs: embeddings for index building and
// query vectors, chat completions for generated answers.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// EmbeddingModel is the model used for all embeddings.
	EmbeddingModel = openai.SmallEmbedding3
	// DefaultChatModel answers retrieval queries.
	DefaultChatModel = "gpt-4o-mini"
	// DefaultTemperature keeps answers close to the retrieved context.
	DefaultTemperature = 0.1
	// MaxRetries is the maximum number of attempts per request.
	MaxRetries = 3
	// BaseRetryDelay is the base delay for exponential backoff.
	BaseRetryDelay = time.Second
)

// RetryableError marks an API failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// Client wraps the go-openai client.
type Client struct {
	client    *openai.Client
	logger    *zap.Logger
	chatModel string
}

// NewClient creates a client. endpoint and chatModel are optional; empty
// values fall back to the OpenAI default endpoint and DefaultChatModel.
func NewClient(apiKey, endpoint, chatModel string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if !strings.HasPrefix(apiKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}

	return &Client{
		client:    openai.NewClientWithConfig(cfg),
		logger:    logger,
		chatModel: chatModel,
	}, nil
}

// EmbedTexts generates embeddings for a batch of texts.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var embeddings [][]float32
	err := c.withRetry(ctx, "embeddings", func() error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: EmbeddingModel,
		})
		if err != nil {
			return c.classifyAPIError(err)
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("unexpected response: got %d embeddings for %d texts", len(resp.Data), len(texts))
		}

		embeddings = make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			embeddings[i] = d.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Generated embeddings",
		zap.Int("texts", len(texts)),
		zap.String("model", string(EmbeddingModel)))
	return embeddings, nil
}

// EmbedQuery generates the embedding for a single query text.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	embeddings, err := c.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned for query")
	}
	return embeddings[0], nil
}

// Complete runs a chat completion with the configured model.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var content string
	err := c.withRetry(ctx, "chat completion", func() error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Temperature: DefaultTemperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		})
		if err != nil {
			return c.classifyAPIError(err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// withRetry runs operation with exponential backoff on retryable errors.
func (c *Client) withRetry(ctx context.Context, name string, operation func() error) error {
	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying request",
				zap.String("operation", name),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		retryErr, ok := err.(*RetryableError)
		if !ok {
			return err
		}
		if retryErr.RetryAfter > 0 {
			delay = retryErr.RetryAfter
		} else {
			delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
		}
	}

	return fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// classifyAPIError decides whether an API error is retryable.
func (c *Client) classifyAPIError(err error) error {
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return fmt.Errorf("OpenAI client error: %w", err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid API key or unauthorized access: %w", err)
	case http.StatusTooManyRequests:
		retryAfter := BaseRetryDelay
		if apiErr.RetryAfter != nil {
			retryAfter = time.Duration(*apiErr.RetryAfter) * time.Second
		}
		return &RetryableError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			RetryAfter: retryAfter,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &RetryableError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	default:
		return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
}
