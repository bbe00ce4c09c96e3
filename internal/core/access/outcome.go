package access

// Outcome はアクセス削除の結果を表します。レガシーの境界では真偽値のみが
// 意味を持ちますが、内部では部分的な失敗と通信エラーを区別して記録します。
type Outcome int

const (
	// OutcomeSucceeded は全ステップが成功したことを表します。
	OutcomeSucceeded Outcome = iota
	// OutcomePartialFailure は一部のステップが失敗したことを表します。
	OutcomePartialFailure
	// OutcomeTransportError は通信そのものに失敗したことを表します。
	OutcomeTransportError
)

// OK は境界用の真偽値へ縮退させます。
func (o Outcome) OK() bool {
	return o == OutcomeSucceeded
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}
