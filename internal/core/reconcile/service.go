package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// Sink はレポート実行の成果物の書き出し先です。
type Sink interface {
	WriteAccounts(name string, accounts []access.LiveAccount) error
	WriteDirectory(name string, records map[string]*account.Record) error
}

// DirectorySummaryFile はディレクトリのスナップショットを書き出す
// 成果物のファイル名です。
const DirectorySummaryFile = "DirectoryAccountsSummary.json"

// Reporter はサービスごとの整合性レポートとディレクトリの要約を実行する
// バッチジョブです。結果は成果物とログへ出力され、値としては返しません。
type Reporter struct {
	adapters  []access.Adapter
	sink      Sink
	logger    zerolog.Logger
	unmanaged map[account.ServiceKind]bool
}

// Config は Reporter の生成時オプションです。
type Config struct {
	Adapters []access.Adapter
	Sink     Sink
	Logger   zerolog.Logger
	// UnmanagedScanKinds は unmanaged-account の検出を行うサービス種別
	// です。未指定の場合は source control と issue tracker のみ行います。
	UnmanagedScanKinds []account.ServiceKind
}

// NewReporter は Reporter を生成します。
func NewReporter(cfg Config) *Reporter {
	kinds := cfg.UnmanagedScanKinds
	if kinds == nil {
		kinds = []account.ServiceKind{account.KindSourceControl, account.KindIssueTracker}
	}

	unmanaged := make(map[account.ServiceKind]bool, len(kinds))
	for _, kind := range kinds {
		unmanaged[kind] = true
	}

	return &Reporter{
		adapters:  cfg.Adapters,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		unmanaged: unmanaged,
	}
}

// Run は設定済みの全サービスのレポートとディレクトリの要約を実行します。
// あるサービスの一覧取得や書き出しに失敗しても、残りのサービスの処理は
// 継続します。
func (r *Reporter) Run(ctx context.Context, snapshot map[string]*account.Record) error {
	runID := uuid.New().String()
	logger := r.logger.With().Str("run_id", runID).Logger()

	for _, adapter := range r.adapters {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info().Str("service", string(adapter.Kind())).Msg("reporting service accounts")
		r.reportService(ctx, logger, snapshot, adapter)
	}

	logger.Info().Msg("reporting directory accounts")
	r.reportDirectory(logger, snapshot)

	return nil
}

func (r *Reporter) reportService(ctx context.Context, logger zerolog.Logger, snapshot map[string]*account.Record, adapter access.Adapter) {
	kind := adapter.Kind()
	logger = logger.With().Str("service", string(kind)).Logger()

	stale := StaleAccess(snapshot, kind)
	for _, finding := range stale {
		logger.Warn().Str("person", finding.Subject).Msg("user should be off boarded")
	}

	if scoped, ok := adapter.(access.ScopedLister); ok {
		for _, scope := range scoped.Scopes() {
			live, err := scoped.ListScopeAccounts(ctx, scope)
			if err != nil {
				logger.Error().Err(err).Str("scope", scope).Msg("listing live accounts failed")
				continue
			}
			r.emitScope(logger, snapshot, kind, scope, live, len(stale))
		}
		return
	}

	live, err := adapter.ListLiveAccounts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("listing live accounts failed")
		logger.Info().Int("should_off_board", len(stale)).Msg("summary")
		return
	}
	r.emitScope(logger, snapshot, kind, "", live, len(stale))
}

func (r *Reporter) emitScope(logger zerolog.Logger, snapshot map[string]*account.Record, kind account.ServiceKind, scope string, live []access.LiveAccount, staleCount int) {
	name := artifactName(kind, scope)
	if err := r.sink.WriteAccounts(name, live); err != nil {
		logger.Error().Err(err).Str("artifact", name).Msg("writing accounts artifact failed")
	}

	notInDirectory := 0
	if r.unmanaged[kind] {
		findings := Unmanaged(live, snapshot, kind, scope)
		notInDirectory = len(findings)
		for _, finding := range findings {
			logger.Warn().
				Str("subject", finding.Subject).
				Str("scope", finding.Scope).
				Msg("live account not in directory")
		}
	}

	event := logger.Info().
		Int("total", len(live)).
		Int("should_off_board", staleCount)
	if r.unmanaged[kind] {
		event = event.Int("not_in_directory", notInDirectory)
	}
	if scope != "" {
		event = event.Str("scope", scope)
	}
	event.Msg("summary")
}

func (r *Reporter) reportDirectory(logger zerolog.Logger, snapshot map[string]*account.Record) {
	if err := r.sink.WriteDirectory(DirectorySummaryFile, snapshot); err != nil {
		logger.Error().Err(err).Msg("writing directory artifact failed")
	}

	active := 0
	for _, record := range snapshot {
		if record.Status == account.StatusActive {
			active++
		}
	}
	logger.Info().
		Int("total", len(snapshot)).
		Int("active", active).
		Msg("directory summary")
}

func artifactName(kind account.ServiceKind, scope string) string {
	base := map[account.ServiceKind]string{
		account.KindSourceControl: "SourceControlUsers",
		account.KindWiki:          "WikiUsers",
		account.KindChat:          "ChatUsers",
		account.KindCI:            "CIUsers",
		account.KindIssueTracker:  "IssueTrackerUsers",
	}[kind]
	if base == "" {
		base = string(kind) + "Users"
	}
	if scope != "" {
		return fmt.Sprintf("%s-%s.csv", base, scope)
	}
	return base + ".csv"
}
