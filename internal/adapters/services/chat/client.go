// Package chat はチャットサービスの REST API をアカウント管理の操作へ
// 変換します。アカウントは組織単位で管理されます。
package chat

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/httpapi"
)

// User は組織に属するユーザー 1 人分の情報です。
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client はチャットサービスの API クライアントです。
type Client struct {
	api          *httpapi.Client
	organisation string
	logger       zerolog.Logger
}

// NewClient は organisation を対象とする Client を生成します。
func NewClient(api *httpapi.Client, organisation string, logger zerolog.Logger) *Client {
	return &Client{api: api, organisation: organisation, logger: logger}
}

// Users は組織の全ユーザーを返します。
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.api.GetJSON(ctx, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveUserFromOrganisation はユーザーを組織から外します。
func (c *Client) RemoveUserFromOrganisation(ctx context.Context, userID string) error {
	path := fmt.Sprintf("/organizations/%s/users/%s", url.PathEscape(c.organisation), url.PathEscape(userID))
	return c.api.Delete(ctx, path, nil)
}
