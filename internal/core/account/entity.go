package account

import "time"

// Status はアカウントの在籍状態を表します。
type Status string

const (
	StatusActive      Status = "active"
	StatusSuspended   Status = "suspended"
	StatusTransferred Status = "transferred"
	StatusDeleted     Status = "deleted"
)

// HasAccess は status が有効なアクセスを意味するかどうかを返します。
// suspended / deleted のレコードにサービスアカウントが残っている場合は
// 整合性レポートの対象です。
func (s Status) HasAccess() bool {
	return s == StatusActive || s == StatusTransferred
}

// ServiceKind は連携先サービスの種別を表します。種別は固定の閉集合です。
type ServiceKind string

const (
	KindSourceControl ServiceKind = "sourcecontrol"
	KindWiki          ServiceKind = "wiki"
	KindChat          ServiceKind = "chat"
	KindCI            ServiceKind = "ci"
	KindIssueTracker  ServiceKind = "issuetracker"
)

// AllKinds はサポートする全サービス種別を定義順で返します。
func AllKinds() []ServiceKind {
	return []ServiceKind{
		KindSourceControl,
		KindWiki,
		KindChat,
		KindCI,
		KindIssueTracker,
	}
}

// Record は authoritative directory に保存される 1 人分のレコードです。
// Key は個人を特定する主キー (メールのローカルパートなど) です。
// ServiceAccounts はサービス種別ごとのアカウント参照で、キーが無いことは
// 「そのサービスにアカウントを持たない」ことを意味します。
type Record struct {
	Key             string
	Status          Status
	ServiceAccounts map[ServiceKind]string
	UpdatedAt       time.Time
}

// Clone はレコードの複製を返します。スナップショット側のレコードを
// 書き換えないために、更新は必ず複製へ対して行います。
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	copied := *r
	copied.ServiceAccounts = make(map[ServiceKind]string, len(r.ServiceAccounts))
	for kind, ref := range r.ServiceAccounts {
		copied.ServiceAccounts[kind] = ref
	}
	return &copied
}

// AccountRef は kind のアカウント参照を返します。
func (r *Record) AccountRef(kind ServiceKind) (string, bool) {
	ref, ok := r.ServiceAccounts[kind]
	return ref, ok
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusSuspended, StatusTransferred, StatusDeleted:
		return true
	default:
		return false
	}
}

func isValidKind(kind ServiceKind) bool {
	switch kind {
	case KindSourceControl, KindWiki, KindChat, KindCI, KindIssueTracker:
		return true
	default:
		return false
	}
}

// ValidateStatus は status が定義済みであることを検証します。
func ValidateStatus(status Status) error {
	if !isValidStatus(status) {
		return ErrInvalidStatus
	}
	return nil
}

// ValidateKind は kind が定義済みであることを検証します。
func ValidateKind(kind ServiceKind) error {
	if !isValidKind(kind) {
		return ErrInvalidServiceKind
	}
	return nil
}
