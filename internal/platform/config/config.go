package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Services ServicesConfig `yaml:"services"`
}

// AppConfig は実行全体に関わる設定です。
type AppConfig struct {
	OutputDir string `yaml:"output_dir"`
	LogFile   string `yaml:"logfile"`
	// StrictRemoval が true の場合、オフボーディングは削除に失敗した
	// サービスの参照を残し、ディレクトリの更新を行いません。
	StrictRemoval bool `yaml:"strict_removal"`
	// TransferServices は transfer 時にアクセスを削除するサービス種別
	// です。未指定の場合は source control / issue tracker / ci です。
	TransferServices []account.ServiceKind `yaml:"transfer_services"`
}

// ServicesConfig は連携先サービスごとの設定です。
type ServicesConfig struct {
	SourceControl SourceControlConfig `yaml:"sourcecontrol"`
	Wiki          BasicAuthConfig     `yaml:"wiki"`
	Chat          ChatConfig          `yaml:"chat"`
	CI            BasicAuthConfig     `yaml:"ci"`
	IssueTracker  BasicAuthConfig     `yaml:"issuetracker"`
}

// BasicAuthConfig はベーシック認証のみを必要とするサービスの設定です。
type BasicAuthConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SourceControlConfig はソースコントロールサービスの設定です。
// Teams に列挙したチームごとにレポートとアクセス削除を行います。
type SourceControlConfig struct {
	Server   string   `yaml:"server"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Teams    []string `yaml:"teams"`
}

// ChatConfig はチャットサービスの設定です。
type ChatConfig struct {
	Server       string `yaml:"server"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
	Organisation string `yaml:"organisation"`
	// MailDomain はディレクトリの主キーからチャット側のアドレスを
	// 組み立てるためのドメインです。
	MailDomain string `yaml:"mail_domain"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.App.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	return nil
}

func (a *AppConfig) validateAndNormalize() error {
	if a.OutputDir == "" {
		a.OutputDir = "output"
	}
	if a.LogFile == "" {
		a.LogFile = "lifecycle.log"
	}

	if a.TransferServices == nil {
		a.TransferServices = []account.ServiceKind{
			account.KindSourceControl,
			account.KindIssueTracker,
			account.KindCI,
		}
	}
	for _, kind := range a.TransferServices {
		if err := account.ValidateKind(kind); err != nil {
			return fmt.Errorf("config: app.transfer_services: %s: %w", kind, err)
		}
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}
