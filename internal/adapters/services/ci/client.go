// Package ci は CI サーバーの REST API をアカウント管理の操作へ変換します。
// CI サーバーはユーザーを削除せずビューから隠すだけなので、有効・無効の
// 判定は各ユーザーの詳細を確認して行います。
package ci

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/httpapi"
)

// activeUserMarker はユーザーが有効 (ビューに表示される) 場合にだけ
// 詳細に現れるプロパティです。
const activeUserMarker = "hudson.security.HudsonPrivateSecurityRealm$Details"

// Client は CI サーバーの API クライアントです。
type Client struct {
	api    *httpapi.Client
	server string
	logger zerolog.Logger
}

// NewClient は Client を生成します。server は URL からユーザー ID を
// 切り出すために利用します。
func NewClient(api *httpapi.Client, server string, logger zerolog.Logger) *Client {
	return &Client{api: api, server: strings.TrimRight(server, "/"), logger: logger}
}

type peopleList struct {
	Users []struct {
		User struct {
			AbsoluteURL string `json:"absoluteUrl"`
		} `json:"user"`
	} `json:"users"`
}

type userDetail struct {
	Property []struct {
		Class string `json:"_class"`
	} `json:"property"`
}

// AllUsers は有効・無効を問わず全ユーザーの ID を返します。
func (c *Client) AllUsers(ctx context.Context) ([]string, error) {
	var out peopleList
	if err := c.api.GetJSON(ctx, "/asynchPeople/api/json", nil, &out); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(out.Users))
	prefix := c.server + "/user/"
	for _, u := range out.Users {
		ids = append(ids, strings.TrimPrefix(u.User.AbsoluteURL, prefix))
	}
	return ids, nil
}

// IsUserActive はユーザーが有効かどうかを返します。
func (c *Client) IsUserActive(ctx context.Context, userID string) (bool, error) {
	var out userDetail
	path := fmt.Sprintf("/user/%s/api/json", url.PathEscape(userID))
	if err := c.api.GetJSON(ctx, path, nil, &out); err != nil {
		return false, err
	}

	for _, p := range out.Property {
		if p.Class == activeUserMarker {
			return true, nil
		}
	}
	return false, nil
}

// ActiveUsers は有効なユーザーの ID だけを返します。
func (c *Client) ActiveUsers(ctx context.Context) ([]string, error) {
	ids, err := c.AllUsers(ctx)
	if err != nil {
		return nil, err
	}

	var active []string
	for _, id := range ids {
		ok, err := c.IsUserActive(ctx, id)
		if err != nil {
			c.logger.Error().Err(err).Str("user", id).Msg("checking user failed")
			continue
		}
		if ok {
			active = append(active, id)
		}
	}
	return active, nil
}

// RemoveUser はユーザーを削除します。削除エンドポイントは成功時でも
// 接続を切ってエラーを返すことがあるため、その場合はユーザーが無効に
// なったかどうかを確認し直して結果とします。
func (c *Client) RemoveUser(ctx context.Context, userID string) error {
	path := fmt.Sprintf("/user/%s/doDelete", url.PathEscape(userID))
	err := c.api.Post(ctx, path, nil)
	if err != nil {
		active, checkErr := c.IsUserActive(ctx, userID)
		if checkErr != nil || active {
			return err
		}
	}

	c.logger.Info().Str("user", userID).Msg("user deactivated")
	return nil
}
