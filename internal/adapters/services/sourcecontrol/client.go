// Package sourcecontrol はソースコントロールホスティングの REST API を
// アカウント管理の操作へ変換します。アクセスはチーム単位で管理されます。
package sourcecontrol

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/httpapi"
)

// Member はチームに属するメンバー 1 人分の情報です。
type Member struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	CreatedOn   string `json:"created_on"`
	UUID        string `json:"uuid"`
}

// Client はソースコントロールサービスの API クライアントです。
type Client struct {
	api    *httpapi.Client
	logger zerolog.Logger
}

// NewClient は Client を生成します。
func NewClient(api *httpapi.Client, logger zerolog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

type memberPage struct {
	Values []Member `json:"values"`
}

// TeamMembers はチームの全メンバーを表示名順で返します。
func (c *Client) TeamMembers(ctx context.Context, team string) ([]Member, error) {
	var out memberPage
	path := fmt.Sprintf("/2.0/teams/%s/members", url.PathEscape(team))
	if err := c.api.GetJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}

	members := out.Values
	sort.Slice(members, func(i, j int) bool {
		return members[i].DisplayName < members[j].DisplayName
	})
	return members, nil
}

// RemoveTeamAccess はチームの全リポジトリへのアクセスを取り消します。
func (c *Client) RemoveTeamAccess(ctx context.Context, team, username string) error {
	path := fmt.Sprintf("/2.0/teams/%s/users/%s/access", url.PathEscape(team), url.PathEscape(username))
	return c.api.Delete(ctx, path, nil)
}
