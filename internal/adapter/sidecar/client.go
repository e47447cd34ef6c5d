// Package sidecar is the HTTP client for the browser-automation sidecar that
// performs platform login, scraping, and engagement actions. It implements
// the authenticator, scraper, and action backend ports.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/birdwork/roost/internal/config"
	"github.com/birdwork/roost/internal/domain"
	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/port/authenticator"
	"github.com/birdwork/roost/internal/port/scraper"
)

// Client talks to the sidecar REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a sidecar client from config.
func NewClient(cfg config.Sidecar) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// session carries the sidecar's opaque session token for one account.
type session struct {
	accountID string
	Token     string `json:"token"`
}

func (s *session) AccountID() string { return s.accountID }

// Authenticate implements the authenticator port. The sidecar resolves the
// credential and proxy references itself; the engine never sees secrets.
func (c *Client) Authenticate(ctx context.Context, acct account.Account) (authenticator.Session, error) {
	body, err := json.Marshal(map[string]string{
		"account_id":     acct.ID,
		"credential_ref": acct.CredentialRef,
		"proxy_ref":      acct.ProxyRef,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	data, status, err := c.do(ctx, http.MethodPost, "/v1/sessions", "", body)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrAuthFailed)
	}
	if status >= 400 {
		return nil, fmt.Errorf("sidecar login %d: %s: %w", status, data, domain.ErrAuthFailed)
	}

	sess := &session{accountID: acct.ID}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.Token == "" {
		return nil, fmt.Errorf("sidecar returned empty session token: %w", domain.ErrAuthFailed)
	}
	return sess, nil
}

// scrapeItem is the sidecar's wire shape for one piece of content.
type scrapeItem struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	Replies   int       `json:"replies"`
	Views     int64     `json:"views"`
	HasMedia  bool      `json:"has_media"`
	CreatedAt time.Time `json:"created_at"`
}

// Fetch implements the scraper port. Network failures and 5xx responses are
// transient; 4xx responses (bad target, gone resource) are permanent.
func (c *Client) Fetch(ctx context.Context, req scraper.Request) ([]candidate.Candidate, error) {
	body, err := json.Marshal(map[string]any{
		"phase":  req.Phase,
		"target": req.Target,
		"since":  req.Since,
		"limit":  req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	data, status, err := c.do(ctx, http.MethodPost, "/v1/scrape", "", body)
	if err != nil {
		return nil, &scraper.Error{Target: req.Target, Transient: true, Err: err}
	}
	if status >= 500 {
		return nil, &scraper.Error{Target: req.Target, Transient: true,
			Err: fmt.Errorf("sidecar scrape %d: %s", status, data)}
	}
	if status >= 400 {
		return nil, &scraper.Error{Target: req.Target, Transient: false,
			Err: fmt.Errorf("sidecar scrape %d: %s", status, data)}
	}

	var parsed struct {
		Items []scrapeItem `json:"items"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &scraper.Error{Target: req.Target, Transient: false,
			Err: fmt.Errorf("unmarshal scrape response: %w", err)}
	}

	out := make([]candidate.Candidate, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		out = append(out, candidate.Candidate{
			ID:        it.ID,
			Author:    it.Author,
			Text:      it.Text,
			Likes:     it.Likes,
			Reposts:   it.Reposts,
			Replies:   it.Replies,
			Views:     it.Views,
			HasMedia:  it.HasMedia,
			CreatedAt: it.CreatedAt,
			Phase:     req.Phase,
			Target:    req.Target,
		})
	}
	return out, nil
}

// Like implements the action backend port.
func (c *Client) Like(ctx context.Context, sess authenticator.Session, contentID string) error {
	return c.action(ctx, sess, phase.ActionLike, contentID, "")
}

// Repost implements the action backend port.
func (c *Client) Repost(ctx context.Context, sess authenticator.Session, contentID string) error {
	return c.action(ctx, sess, phase.ActionRepost, contentID, "")
}

// Reply implements the action backend port.
func (c *Client) Reply(ctx context.Context, sess authenticator.Session, contentID, text string) error {
	return c.action(ctx, sess, phase.ActionReply, contentID, text)
}

func (c *Client) action(ctx context.Context, sess authenticator.Session, kind phase.ActionKind, contentID, text string) error {
	token := ""
	if s, ok := sess.(*session); ok {
		token = s.Token
	}

	body, err := json.Marshal(map[string]string{
		"kind":       string(kind),
		"content_id": contentID,
		"text":       text,
	})
	if err != nil {
		return fmt.Errorf("marshal action request: %w", err)
	}

	data, status, err := c.do(ctx, http.MethodPost, "/v1/actions", token, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, contentID, err)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s %s: sidecar %d: %w", kind, contentID, status, domain.ErrSessionInvalid)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", kind, contentID, domain.ErrRateLimited)
	case status >= 400:
		return fmt.Errorf("%s %s: sidecar %d: %s", kind, contentID, status, data)
	}
	return nil
}

// do issues one request and returns the body and status. The error return is
// transport-level only; HTTP error statuses are the caller's to classify.
func (c *Client) do(ctx context.Context, method, path, sessionToken string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if sessionToken != "" {
		req.Header.Set("X-Session-Token", sessionToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}
