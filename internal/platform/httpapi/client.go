package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// StatusError は 2xx 以外の応答を表します。
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpapi: %d: %s", e.Code, e.Status)
}

// Client はベーシック認証の JSON REST API クライアントです。
// 連携先サービスのアダプタが共通で利用します。
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	logger     zerolog.Logger
}

// NewClient は server をベース URL とする Client を生成します。
func NewClient(server, username, password string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(server, "/"),
		username:   username,
		password:   password,
		logger:     logger,
	}
}

// GetJSON は GET リクエストを送り、応答の JSON を out へ展開します。
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpapi: decode %s: %w", path, err)
	}
	return nil
}

// Post は POST リクエストを送ります。
func (c *Client) Post(ctx context.Context, path string, query url.Values) error {
	resp, err := c.do(ctx, http.MethodPost, path, query)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Delete は DELETE リクエストを送ります。
func (c *Client) Delete(ctx context.Context, path string, query url.Values) error {
	resp, err := c.do(ctx, http.MethodDelete, path, query)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpapi: build request %s %s: %w", method, path, err)
	}
	req.SetBasicAuth(c.username, c.password)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		c.logger.Error().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg(resp.Status)
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}
