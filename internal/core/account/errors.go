package account

import "errors"

var (
	// ErrNotFound はレコードがディレクトリに存在しない場合に返却されます。
	ErrNotFound = errors.New("account: not found")
	// ErrInvalidKey は主キーが不正な場合に返却されます。
	ErrInvalidKey = errors.New("account: invalid key")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = errors.New("account: invalid status")
	// ErrInvalidServiceKind はサービス種別が不正な場合に返却されます。
	ErrInvalidServiceKind = errors.New("account: invalid service kind")
)
