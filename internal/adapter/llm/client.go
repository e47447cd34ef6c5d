// Package llm provides the relevance scorer and reply composer backed by an
// OpenAI-compatible chat completions endpoint (e.g. a LiteLLM proxy).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/birdwork/roost/internal/config"
	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/resilience"
)

const (
	scoreSystemPrompt = "You rate how relevant a social media post is to a set of topics. " +
		"Respond with a single number between 0.0 and 1.0 and nothing else."
	composeSystemPrompt = "You write short, conversational replies to social media posts. " +
		"Plain text only: no hashtags, no links, no quotes around the reply. Keep it under 250 characters."
)

// Client talks to the chat completions API. It implements both the scoring
// and composing sides of the engagement pipeline.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a chat completions client from config.
func NewClient(cfg config.Scorer) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Score implements scorer.Scorer. It asks the model for a single relevance
// number in [0,1] and parses it strictly.
func (c *Client) Score(ctx context.Context, text string, keywords []string) (float64, error) {
	prompt := fmt.Sprintf("Topics: %s\n\nPost:\n%s\n\nRelevance score:",
		strings.Join(keywords, ", "), text)

	raw, err := c.complete(ctx, scoreSystemPrompt, prompt)
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("score: parse %q: %w", raw, err)
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("score: %v out of range", score)
	}
	return score, nil
}

// Compose implements actions.Composer. The draft still passes through the
// deterministic guard pass before posting.
func (c *Client) Compose(ctx context.Context, cand candidate.Candidate) (string, error) {
	prompt := fmt.Sprintf("Write a reply to this post by @%s:\n\n%s", cand.Author, cand.Text)

	draft, err := c.complete(ctx, composeSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	return draft, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var content string
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("completions API error %d: %s", resp.StatusCode, string(data))
		}

		var parsed chatResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("empty completions response")
		}
		content = parsed.Choices[0].Message.Content
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}
	return content, nil
}
