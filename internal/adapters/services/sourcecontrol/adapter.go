package sourcecontrol

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// Adapter はソースコントロールサービスの access.Adapter 実装です。
// 設定されたチームごとに一覧取得とアクセス削除を行います。
type Adapter struct {
	client *Client
	teams  []string
	logger zerolog.Logger
}

// NewAdapter は Adapter を生成します。
func NewAdapter(client *Client, teams []string, logger zerolog.Logger) *Adapter {
	return &Adapter{client: client, teams: teams, logger: logger}
}

// Kind は account.KindSourceControl を返します。
func (a *Adapter) Kind() account.ServiceKind {
	return account.KindSourceControl
}

// Scopes は設定されたチーム名を返します。
func (a *Adapter) Scopes() []string {
	return a.teams
}

// ListScopeAccounts はチームの全メンバーを返します。
func (a *Adapter) ListScopeAccounts(ctx context.Context, team string) ([]access.LiveAccount, error) {
	members, err := a.client.TeamMembers(ctx, team)
	if err != nil {
		return nil, err
	}

	accounts := make([]access.LiveAccount, 0, len(members))
	for _, m := range members {
		accounts = append(accounts, access.LiveAccount{
			ID:          m.Username,
			DisplayName: m.DisplayName,
			Extra: map[string]string{
				"created_on": m.CreatedOn,
				"uuid":       m.UUID,
			},
		})
	}
	return accounts, nil
}

// ListLiveAccounts は全チームのメンバーをまとめて返します。同じアカウント
// が複数チームに属している場合は 1 件に畳みます。
func (a *Adapter) ListLiveAccounts(ctx context.Context) ([]access.LiveAccount, error) {
	seen := make(map[string]bool)
	var accounts []access.LiveAccount
	for _, team := range a.teams {
		members, err := a.ListScopeAccounts(ctx, team)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			accounts = append(accounts, m)
		}
	}
	return accounts, nil
}

// RemoveAccess は設定された全チームのリポジトリアクセスを取り消します。
func (a *Adapter) RemoveAccess(ctx context.Context, ref string) access.Outcome {
	logger := a.logger.With().Str("person", ref).Logger()

	failed := 0
	for _, team := range a.teams {
		logger.Info().Str("team", team).Msg("removing team repo access")
		if err := a.client.RemoveTeamAccess(ctx, team, ref); err != nil {
			logger.Error().Err(err).Str("team", team).Msg("removing team repo access failed")
			failed++
		}
	}

	switch {
	case failed == 0:
		return access.OutcomeSucceeded
	case failed == len(a.teams):
		return access.OutcomeTransportError
	default:
		return access.OutcomePartialFailure
	}
}
