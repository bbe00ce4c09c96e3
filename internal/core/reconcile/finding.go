package reconcile

import (
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// FindingKind は整合性レポートの検出種別を表します。
type FindingKind string

const (
	// FindingStaleAccess は在籍状態が無効なのにサービスアカウント参照が
	// 残っているレコードを表します。
	FindingStaleAccess FindingKind = "stale_access"
	// FindingUnmanagedAccount はサービス側に生きているのにディレクトリが
	// 把握していないアカウントを表します。
	FindingUnmanagedAccount FindingKind = "unmanaged_account"
)

// Finding は整合性レポートの検出 1 件です。レポート実行のたびに
// 生成し直され、永続化されません。
type Finding struct {
	Service account.ServiceKind
	Kind    FindingKind
	Subject string
	Scope   string
}

// StaleAccess は在籍状態が active / transferred 以外で、なおかつ kind の
// アカウント参照を持つレコードを検出します。オフボーディングはサービス間で
// アトミックでは無いため、この不変条件は検出のみで強制はしません。
func StaleAccess(snapshot map[string]*account.Record, kind account.ServiceKind) []Finding {
	var findings []Finding
	for key, record := range snapshot {
		if record.Status.HasAccess() {
			continue
		}
		if _, ok := record.AccountRef(kind); !ok {
			continue
		}
		findings = append(findings, Finding{
			Service: kind,
			Kind:    FindingStaleAccess,
			Subject: key,
		})
	}
	return findings
}

// Unmanaged は live のうち、ディレクトリのどのレコードの kind 参照とも
// 一致しないアカウントを検出します。
func Unmanaged(live []access.LiveAccount, snapshot map[string]*account.Record, kind account.ServiceKind, scope string) []Finding {
	known := make(map[string]struct{}, len(snapshot))
	for _, record := range snapshot {
		if ref, ok := record.AccountRef(kind); ok {
			known[ref] = struct{}{}
		}
	}

	var findings []Finding
	for _, acct := range live {
		if _, ok := known[acct.ID]; ok {
			continue
		}
		findings = append(findings, Finding{
			Service: kind,
			Kind:    FindingUnmanagedAccount,
			Subject: acct.ID,
			Scope:   scope,
		})
	}
	return findings
}
