package account

import "context"

// Directory は authoritative directory への永続化インターフェースです。
// ReadAll は全レコードのスナップショットを返します。ページングは提供せず、
// 常に全件をメモリに載せます。Upsert は主キーによる last-writer-wins の
// 上書きです。
type Directory interface {
	ReadAll(ctx context.Context) (map[string]*Record, error)
	Upsert(ctx context.Context, record *Record) error
	Exists(ctx context.Context, key string) (bool, error)
}
