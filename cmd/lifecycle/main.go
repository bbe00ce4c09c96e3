package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-account-lifecycle/internal/adapters/services/chat"
	"github.com/ogurasousui/codex-account-lifecycle/internal/adapters/services/ci"
	"github.com/ogurasousui/codex-account-lifecycle/internal/adapters/services/issuetracker"
	"github.com/ogurasousui/codex-account-lifecycle/internal/adapters/services/sourcecontrol"
	"github.com/ogurasousui/codex-account-lifecycle/internal/adapters/services/wiki"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/offboard"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/reconcile"
	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/config"
	pg "github.com/ogurasousui/codex-account-lifecycle/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/httpapi"
	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/logging"
	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		offboardID = flag.String("offboard", "", "person to be off-boarded from all services")
		transferID = flag.String("transfer", "", "person (transferring to another business group) to be off-boarded from a subset of the services")
	)
	flag.Parse()

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logger, closeLog, err := logging.New(cfg.App.OutputDir, cfg.App.LogFile)
	if err != nil {
		log.Printf("failed to initialize logging: %v", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("start")
	defer logger.Info().Msg("end")

	if err := process(ctx, cfg, logger, *offboardID, *transferID); err != nil {
		logger.Error().Err(err).Msg("run failed")
		return 1
	}
	return 0
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func process(ctx context.Context, cfg *config.Config, logger zerolog.Logger, offboardID, transferID string) error {
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	directory := postgres.NewDirectoryRepository(pool)
	txManager := pg.NewTransactionManager(pool)

	var snapshot map[string]*account.Record
	err = txManager.WithinReadOnly(ctx, func(ctx context.Context) error {
		snapshot, err = directory.ReadAll(ctx)
		return err
	})
	if err != nil {
		return err
	}

	adapters := buildAdapters(cfg, logger, snapshot)

	req, ok := actionRequest(cfg, offboardID, transferID)
	if !ok {
		sink, err := report.NewFileSink(cfg.App.OutputDir, logger)
		if err != nil {
			return err
		}
		reporter := reconcile.NewReporter(reconcile.Config{
			Adapters: adapters,
			Sink:     sink,
			Logger:   logger,
		})
		return reporter.Run(ctx, snapshot)
	}

	svc := offboard.NewService(directory, adapters, offboard.Config{
		Logger:        logger,
		StrictRemoval: cfg.App.StrictRemoval,
	})
	return txManager.WithinReadWrite(ctx, func(ctx context.Context) error {
		_, err := svc.Offboard(ctx, snapshot, req)
		return err
	})
}

func actionRequest(cfg *config.Config, offboardID, transferID string) (offboard.Request, bool) {
	if offboardID != "" {
		return offboard.Request{
			PersonKey:    offboardID,
			TargetStatus: account.StatusSuspended,
			Services:     account.AllKinds(),
		}, true
	}
	if transferID != "" {
		return offboard.Request{
			PersonKey:    transferID,
			TargetStatus: account.StatusTransferred,
			Services:     cfg.App.TransferServices,
		}, true
	}
	return offboard.Request{}, false
}

func buildAdapters(cfg *config.Config, logger zerolog.Logger, snapshot map[string]*account.Record) []access.Adapter {
	svcs := cfg.Services

	scClient := sourcecontrol.NewClient(
		httpapi.NewClient(svcs.SourceControl.Server, svcs.SourceControl.Username, svcs.SourceControl.Password, logger),
		logger,
	)
	wikiClient := wiki.NewClient(
		httpapi.NewClient(svcs.Wiki.Server, svcs.Wiki.Username, svcs.Wiki.Password, logger),
		logger,
	)
	chatClient := chat.NewClient(
		httpapi.NewClient(svcs.Chat.Server, svcs.Chat.Email, svcs.Chat.Password, logger),
		svcs.Chat.Organisation,
		logger,
	)
	ciClient := ci.NewClient(
		httpapi.NewClient(svcs.CI.Server, svcs.CI.Username, svcs.CI.Password, logger),
		svcs.CI.Server,
		logger,
	)
	itClient := issuetracker.NewClient(
		httpapi.NewClient(svcs.IssueTracker.Server, svcs.IssueTracker.Username, svcs.IssueTracker.Password, logger),
		logger,
	)

	// 処理順はこの並びのまま維持されます。
	return []access.Adapter{
		sourcecontrol.NewAdapter(scClient, svcs.SourceControl.Teams, logger),
		issuetracker.NewAdapter(itClient, logger),
		wiki.NewAdapter(wikiClient, logger),
		chat.NewAdapter(chatClient, chatAddresses(cfg, snapshot), logger),
		ci.NewAdapter(ciClient, logger),
	}
}

// chatAddresses はディレクトリの主キーからチャット側のメールアドレスを
// 組み立てます。
func chatAddresses(cfg *config.Config, snapshot map[string]*account.Record) []string {
	domain := cfg.Services.Chat.MailDomain
	if domain == "" {
		return nil
	}

	addrs := make([]string, 0, len(snapshot))
	for key := range snapshot {
		addrs = append(addrs, key+"@"+domain)
	}
	return addrs
}
