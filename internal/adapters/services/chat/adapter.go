package chat

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// Adapter はチャットサービスの access.Adapter 実装です。
// knownAddresses が空で無い場合、一覧はそのアドレス集合に絞り込まれます。
// 組織の一覧にはゲストなどディレクトリ管理外のアカウントが多く混ざる
// ためです。
type Adapter struct {
	client         *Client
	knownAddresses map[string]bool
	logger         zerolog.Logger
}

// NewAdapter は Adapter を生成します。
func NewAdapter(client *Client, knownAddresses []string, logger zerolog.Logger) *Adapter {
	known := make(map[string]bool, len(knownAddresses))
	for _, addr := range knownAddresses {
		known[addr] = true
	}
	return &Adapter{client: client, knownAddresses: known, logger: logger}
}

// Kind は account.KindChat を返します。
func (a *Adapter) Kind() account.ServiceKind {
	return account.KindChat
}

// ListLiveAccounts は組織のユーザーを返します。
func (a *Adapter) ListLiveAccounts(ctx context.Context) ([]access.LiveAccount, error) {
	users, err := a.client.Users(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]access.LiveAccount, 0, len(users))
	for _, u := range users {
		if len(a.knownAddresses) > 0 && !a.knownAddresses[u.Email] {
			continue
		}
		accounts = append(accounts, access.LiveAccount{
			ID:          strconv.FormatInt(u.ID, 10),
			DisplayName: u.Name,
			Extra:       map[string]string{"email": u.Email},
		})
	}
	return accounts, nil
}

// RemoveAccess はユーザーを組織から外します。
func (a *Adapter) RemoveAccess(ctx context.Context, ref string) access.Outcome {
	a.logger.Info().Str("person", ref).Msg("removing from organisation")
	if err := a.client.RemoveUserFromOrganisation(ctx, ref); err != nil {
		a.logger.Error().Err(err).Str("person", ref).Msg("removing from organisation failed")
		return access.OutcomeTransportError
	}
	return access.OutcomeSucceeded
}
