package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// New はコンソールと出力ディレクトリ配下のログファイルの両方へ書き出す
// ロガーを生成します。返却されたクローズ関数はログファイルを閉じます。
func New(outputDir, logFile string) (zerolog.Logger, func() error, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: create output dir: %w", err)
	}

	path := filepath.Join(outputDir, logFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: open log file %s: %w", path, err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(io.MultiWriter(console, f)).With().Timestamp().Logger()

	return logger, f.Close, nil
}
