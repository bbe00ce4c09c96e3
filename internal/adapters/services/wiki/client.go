// Package wiki は wiki / コラボレーションサービスの REST API を
// アカウント管理の操作へ変換します。
package wiki

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/httpapi"
)

const licenseProductID = "product:wiki:wiki"

// Member はグループに属するメンバー 1 人分の情報です。
type Member struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	UserKey     string `json:"userKey"`
}

// GroupMembership はメンバーと所属グループ名の集約です。
type GroupMembership struct {
	DisplayName string
	Groups      []string
}

// Client は wiki サービスの API クライアントです。
type Client struct {
	api    *httpapi.Client
	logger zerolog.Logger
}

// NewClient は Client を生成します。
func NewClient(api *httpapi.Client, logger zerolog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

type groupList struct {
	Results []struct {
		Name string `json:"name"`
	} `json:"results"`
}

type memberList struct {
	Results []Member `json:"results"`
}

// Groups は認証ユーザーから見える全グループ名を返します。
func (c *Client) Groups(ctx context.Context) ([]string, error) {
	var out groupList
	if err := c.api.GetJSON(ctx, "/wiki/rest/api/group", nil, &out); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Results))
	for _, g := range out.Results {
		names = append(names, g.Name)
	}
	return names, nil
}

// GroupMembers はグループの全メンバーを返します。
func (c *Client) GroupMembers(ctx context.Context, group string) ([]Member, error) {
	var out memberList
	path := fmt.Sprintf("/wiki/rest/api/group/%s/member", url.PathEscape(group))
	if err := c.api.GetJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// MemberGroups はメンバーが所属する全グループ名を返します。
func (c *Client) MemberGroups(ctx context.Context, username string) ([]string, error) {
	var out groupList
	query := url.Values{"username": {username}}
	if err := c.api.GetJSON(ctx, "/wiki/rest/api/user/memberof", query, &out); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Results))
	for _, g := range out.Results {
		names = append(names, g.Name)
	}
	return names, nil
}

// RemoveMemberFromGroup はメンバーをグループから外します。
func (c *Client) RemoveMemberFromGroup(ctx context.Context, username, group string) error {
	query := url.Values{
		"username":  {username},
		"groupname": {group},
	}
	return c.api.Delete(ctx, "/admin/rest/um/1/user/group/direct", query)
}

// RevokeApplicationAccess はアプリケーションアクセス (ライセンス枠) を
// 取り消します。
func (c *Client) RevokeApplicationAccess(ctx context.Context, username string) error {
	query := url.Values{
		"username":  {username},
		"productId": {licenseProductID},
	}
	return c.api.Delete(ctx, "/admin/rest/um/1/user/access", query)
}

// DeactivateUser はユーザーを無効化します。ユーザー自体は削除しません。
func (c *Client) DeactivateUser(ctx context.Context, username string) error {
	query := url.Values{"username": {username}}
	return c.api.Post(ctx, "/admin/rest/um/1/user/deactivate", query)
}

// MembersInAllGroups は全グループを走査し、メンバーごとに所属グループ名を
// 集約して返します。
func (c *Client) MembersInAllGroups(ctx context.Context) (map[string]GroupMembership, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}

	members := make(map[string]GroupMembership)
	for _, group := range groups {
		c.logger.Info().Str("group", group).Msg("checking group")
		list, err := c.GroupMembers(ctx, group)
		if err != nil {
			return nil, err
		}
		for _, m := range list {
			entry := members[m.Username]
			if entry.DisplayName == "" {
				entry.DisplayName = m.DisplayName
			}
			entry.Groups = append(entry.Groups, group)
			members[m.Username] = entry
		}
	}

	for username, entry := range members {
		sort.Strings(entry.Groups)
		members[username] = entry
	}
	return members, nil
}
