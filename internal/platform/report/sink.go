package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// FileSink はレポートの成果物を出力ディレクトリ配下のファイルへ書き出します。
type FileSink struct {
	outputDir string
	logger    zerolog.Logger
}

// NewFileSink は FileSink を生成します。出力ディレクトリが無ければ作成します。
func NewFileSink(outputDir string, logger zerolog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}
	return &FileSink{outputDir: outputDir, logger: logger}, nil
}

// WriteAccounts は生きているアカウントの一覧を CSV として書き出します。
// 1 行が 1 アカウントで、サービス固有の属性はキー順で後続の列に並びます。
func (s *FileSink) WriteAccounts(name string, accounts []access.LiveAccount) error {
	path := filepath.Join(s.outputDir, name)
	s.logger.Info().Str("artifact", path).Msg("writing accounts artifact")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, acct := range accounts {
		row := []string{acct.ID, acct.DisplayName}

		keys := make([]string, 0, len(acct.Extra))
		for k := range acct.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row = append(row, fmt.Sprintf("%s=%s", k, acct.Extra[k]))
		}

		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: write %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("report: flush %s: %w", path, err)
	}
	return nil
}

type recordJSON struct {
	Status          account.Status                 `json:"status"`
	ServiceAccounts map[account.ServiceKind]string `json:"service_accounts"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

// WriteDirectory はディレクトリのスナップショットを JSON として書き出します。
func (s *FileSink) WriteDirectory(name string, records map[string]*account.Record) error {
	path := filepath.Join(s.outputDir, name)
	s.logger.Info().Str("artifact", path).Msg("writing directory artifact")

	out := make(map[string]recordJSON, len(records))
	for key, record := range records {
		out[key] = recordJSON{
			Status:          record.Status,
			ServiceAccounts: record.ServiceAccounts,
			UpdatedAt:       record.UpdatedAt,
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal %s: %w", path, err)
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
