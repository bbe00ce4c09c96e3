package offboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Service はオフボーディングのユースケースをまとめます。
// 1 人分のレコードに対して、設定されたサービスから順番にアクセスを
// 削除し、ディレクトリのレコードを更新します。
type Service struct {
	directory account.Directory
	adapters  map[account.ServiceKind]access.Adapter
	clock     Clock
	logger    zerolog.Logger
	strict    bool
}

// Config は Service の生成時オプションです。
type Config struct {
	Logger zerolog.Logger
	Clock  Clock
	// StrictRemoval が true の場合、削除に失敗したサービスのアカウント
	// 参照はレコードに残し、ディレクトリの更新も行いません。
	// 既定 (false) では削除結果に関わらず参照を取り除いて更新します。
	StrictRemoval bool
}

// NewService は Service を生成します。
func NewService(directory account.Directory, adapters []access.Adapter, cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}

	byKind := make(map[account.ServiceKind]access.Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}

	return &Service{
		directory: directory,
		adapters:  byKind,
		clock:     clock,
		logger:    cfg.Logger,
		strict:    cfg.StrictRemoval,
	}
}

// Request はオフボーディング 1 回分の入力です。Services は処理順を
// 決めるため、並び順に意味があります。
type Request struct {
	PersonKey    string
	TargetStatus account.Status
	Services     []account.ServiceKind
}

// Result はオフボーディングの実行結果です。Failed には削除結果が
// 成功で無かったサービス種別が入ります。既定のモードでは Failed が
// 空で無くても Persisted は true になり得ます。
type Result struct {
	Updated   bool
	Persisted bool
	Failed    []account.ServiceKind
}

// Offboard は snapshot 上の PersonKey のレコードを TargetStatus へ遷移させ、
// Services の各サービスからアクセスを削除します。スナップショットの
// レコードは書き換えず、複製へ変更を加えて明示的に永続化します。
func (s *Service) Offboard(ctx context.Context, snapshot map[string]*account.Record, req Request) (*Result, error) {
	if req.PersonKey == "" {
		return nil, account.ErrInvalidKey
	}
	if err := account.ValidateStatus(req.TargetStatus); err != nil {
		return nil, err
	}
	for _, kind := range req.Services {
		if _, ok := s.adapters[kind]; !ok {
			return nil, fmt.Errorf("offboard: no adapter for %s: %w", kind, account.ErrInvalidServiceKind)
		}
	}

	current, ok := snapshot[req.PersonKey]
	if !ok {
		return nil, fmt.Errorf("offboard: %s: %w", req.PersonKey, account.ErrNotFound)
	}

	record := current.Clone()
	record.Status = req.TargetStatus

	result := &Result{}
	for _, kind := range req.Services {
		s.logger.Info().Str("service", string(kind)).Msg("checking service")

		ref, ok := record.AccountRef(kind)
		if !ok {
			continue
		}
		delete(record.ServiceAccounts, kind)
		result.Updated = true

		outcome := s.adapters[kind].RemoveAccess(ctx, ref)
		if outcome.OK() {
			s.logger.Info().
				Str("service", string(kind)).
				Str("ref", ref).
				Msg("access removed")
			continue
		}

		result.Failed = append(result.Failed, kind)
		s.logger.Warn().
			Str("service", string(kind)).
			Str("ref", ref).
			Str("outcome", outcome.String()).
			Msg("access removal failed")

		if s.strict {
			// 削除できなかった参照は残したままにする。
			record.ServiceAccounts[kind] = ref
		}
	}

	if s.strict && len(result.Failed) > 0 {
		return result, fmt.Errorf("offboard: removal failed for %d services", len(result.Failed))
	}

	if !result.Updated {
		s.logger.Info().Str("person", req.PersonKey).Msg("no change has been made")
		return result, nil
	}

	record.UpdatedAt = s.clock.Now()

	s.logger.Info().Str("person", req.PersonKey).Msg("updating directory record")
	if err := s.directory.Upsert(ctx, record); err != nil {
		return result, fmt.Errorf("offboard: upsert %s: %w", req.PersonKey, err)
	}
	result.Persisted = true

	return result, nil
}
