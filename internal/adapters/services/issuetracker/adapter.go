package issuetracker

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// Adapter は課題管理サービスの access.Adapter 実装です。
type Adapter struct {
	client *Client
	logger zerolog.Logger
}

// NewAdapter は Adapter を生成します。
func NewAdapter(client *Client, logger zerolog.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Kind は account.KindIssueTracker を返します。
func (a *Adapter) Kind() account.ServiceKind {
	return account.KindIssueTracker
}

// ListLiveAccounts は全グループのメンバーを集約して返します。
func (a *Adapter) ListLiveAccounts(ctx context.Context) ([]access.LiveAccount, error) {
	members, err := a.client.MembersInAllGroups(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]access.LiveAccount, 0, len(members))
	for username, entry := range members {
		accounts = append(accounts, access.LiveAccount{
			ID:          username,
			DisplayName: entry.DisplayName,
			Extra:       map[string]string{"groups": strings.Join(entry.Groups, ";")},
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// RemoveAccess は課題管理サービスの全アクセスを削除します。メンバーで
// あるグループからの除外、ライセンス枠の取り消し、ユーザーの無効化を
// 1 つの Outcome に集約します。
func (a *Adapter) RemoveAccess(ctx context.Context, ref string) access.Outcome {
	logger := a.logger.With().Str("person", ref).Logger()

	groups, err := a.client.Groups(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("listing groups failed")
		return access.OutcomeTransportError
	}

	failed := 0
	for _, group := range groups {
		members, err := a.client.GroupMembers(ctx, group)
		if err != nil {
			logger.Error().Err(err).Str("group", group).Msg("listing group members failed")
			failed++
			continue
		}
		if _, ok := members[ref]; !ok {
			continue
		}

		logger.Info().Str("group", group).Msg("removing from group")
		if err := a.client.RemoveUserFromGroup(ctx, ref, group); err != nil {
			logger.Error().Err(err).Str("group", group).Msg("removing from group failed")
			failed++
		}
	}

	logger.Info().Msg("revoking application access")
	if err := a.client.RevokeApplicationAccess(ctx, ref); err != nil {
		logger.Error().Err(err).Msg("revoking application access failed")
		failed++
	}

	logger.Info().Msg("deactivating user")
	if err := a.client.DeactivateUser(ctx, ref); err != nil {
		logger.Error().Err(err).Msg("deactivating user failed")
		failed++
	}

	if failed > 0 {
		return access.OutcomePartialFailure
	}
	return access.OutcomeSucceeded
}
