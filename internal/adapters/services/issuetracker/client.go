// Package issuetracker は課題管理サービスの REST API をアカウント管理の
// 操作へ変換します。
package issuetracker

import (
	"context"
	"net/url"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/httpapi"
)

const licenseProductID = "product:issuetracker:software"

// Member はグループに属するメンバー 1 人分の情報です。
type Member struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// GroupMembership はメンバーと所属グループ名の集約です。
type GroupMembership struct {
	DisplayName string
	Groups      []string
}

// Client は課題管理サービスの API クライアントです。
type Client struct {
	api    *httpapi.Client
	logger zerolog.Logger
}

// NewClient は Client を生成します。
func NewClient(api *httpapi.Client, logger zerolog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

type groupPicker struct {
	Groups []struct {
		Name string `json:"name"`
	} `json:"groups"`
}

type memberPage struct {
	Values []Member `json:"values"`
}

// Groups は全グループ名を返します。
func (c *Client) Groups(ctx context.Context) ([]string, error) {
	var out groupPicker
	if err := c.api.GetJSON(ctx, "/rest/api/2/groups/picker", nil, &out); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Groups))
	for _, g := range out.Groups {
		names = append(names, g.Name)
	}
	return names, nil
}

// GroupMembers はグループの全メンバーをユーザー名で引けるマップとして
// 返します。
func (c *Client) GroupMembers(ctx context.Context, group string) (map[string]Member, error) {
	var out memberPage
	query := url.Values{"groupname": {group}}
	if err := c.api.GetJSON(ctx, "/rest/api/2/group/member", query, &out); err != nil {
		return nil, err
	}

	members := make(map[string]Member, len(out.Values))
	for _, m := range out.Values {
		members[m.Name] = m
	}
	return members, nil
}

// RemoveUserFromGroup はメンバーをグループから外します。
func (c *Client) RemoveUserFromGroup(ctx context.Context, username, group string) error {
	query := url.Values{
		"username":  {username},
		"groupname": {group},
	}
	return c.api.Delete(ctx, "/rest/api/2/group/user", query)
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
		list, err := c.GroupMembers(ctx, group)
		if err != nil {
			return nil, err
		}
		for username, m := range list {
			entry := members[username]
			if entry.DisplayName == "" {
				entry.DisplayName = m.DisplayName
			}
			entry.Groups = append(entry.Groups, group)
			members[username] = entry
		}
	}

	for username, entry := range members {
		sort.Strings(entry.Groups)
		members[username] = entry
	}
	return members, nil
}
