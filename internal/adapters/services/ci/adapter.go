package ci

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// Adapter は CI サーバーの access.Adapter 実装です。
type Adapter struct {
	client *Client
	logger zerolog.Logger
}

// NewAdapter は Adapter を生成します。
func NewAdapter(client *Client, logger zerolog.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Kind は account.KindCI を返します。
func (a *Adapter) Kind() account.ServiceKind {
	return account.KindCI
}

// ListLiveAccounts は有効なユーザーだけを返します。
func (a *Adapter) ListLiveAccounts(ctx context.Context) ([]access.LiveAccount, error) {
	ids, err := a.client.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]access.LiveAccount, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, access.LiveAccount{ID: id, DisplayName: id})
	}
	return accounts, nil
}

// RemoveAccess はユーザーを CI サーバーから削除します。
func (a *Adapter) RemoveAccess(ctx context.Context, ref string) access.Outcome {
	a.logger.Info().Str("person", ref).Msg("removing user")
	if err := a.client.RemoveUser(ctx, ref); err != nil {
		a.logger.Error().Err(err).Str("person", ref).Msg("removing user failed")
		return access.OutcomeTransportError
	}
	return access.OutcomeSucceeded
}
