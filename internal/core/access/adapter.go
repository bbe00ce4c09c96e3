package access

import (
	"context"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// LiveAccount は連携先サービスから取得した生きているアカウントです。
// 1 回のレポート実行の間だけ存在し、永続化されません。Extra には
// サービス固有の属性 (所属グループなど) が入ります。
type LiveAccount struct {
	ID          string
	DisplayName string
	Extra       map[string]string
}

// Adapter は連携先サービス 1 つ分の操作を抽象化します。
// ListLiveAccounts は取得失敗の場合にエラーを返しますが、呼び出し側は
// 「データ無し」として扱い処理を継続します。RemoveAccess は複数ステップの
// 削除を 1 つの Outcome に集約します。
type Adapter interface {
	Kind() account.ServiceKind
	ListLiveAccounts(ctx context.Context) ([]LiveAccount, error)
	RemoveAccess(ctx context.Context, ref string) Outcome
}

// ScopedLister はチーム単位など、スコープごとの一覧取得を提供する
// アダプタが追加で実装します。
type ScopedLister interface {
	Scopes() []string
	ListScopeAccounts(ctx context.Context, scope string) ([]LiveAccount, error)
}
