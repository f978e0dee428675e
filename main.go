package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/quickreport/internal/config"
	"github.com/iamwavecut/quickreport/internal/cooldown"
	"github.com/iamwavecut/quickreport/internal/db"
	"github.com/iamwavecut/quickreport/internal/db/sqlite"
	"github.com/iamwavecut/quickreport/internal/event"
	"github.com/iamwavecut/quickreport/internal/i18n"
	"github.com/iamwavecut/quickreport/internal/infra"
	"github.com/iamwavecut/quickreport/internal/lifecycle"
	"github.com/iamwavecut/quickreport/internal/notify"
	"github.com/iamwavecut/quickreport/internal/observability"
	"github.com/iamwavecut/quickreport/internal/reports"
	"github.com/iamwavecut/quickreport/internal/reward"
	"github.com/iamwavecut/quickreport/internal/stats"
	"github.com/iamwavecut/quickreport/resources"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.QrFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Errorln("quickreport stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) (err error) {
	defer infra.RecoverErr(log.WithField("context", "main"), "run", &err)

	workDir, err := infra.GetWorkDir(cfg.DotPath)
	if err != nil {
		return errors.WithMessage(err, "cant prepare work dir")
	}
	client, err := sqlite.NewSQLiteClient(ctx, workDir, cfg.DBName)
	if err != nil {
		return errors.WithMessage(err, "cant open reports db")
	}

	catalog, err := i18n.Load(resources.FS, "i18n", cfg.DefaultLanguage)
	if err != nil {
		log.WithError(err).Warn("falling back to english messages")
		catalog, _ = i18n.Load(resources.FS, "i18n", i18n.FallbackLanguage)
	}

	bus := event.NewBus(cfg.Notifications.Shards, cfg.Notifications.QueueSize)
	operators := notify.OperatorsFromConfig(cfg.Notifications.Operators, cfg.Notifications.OperatorPermission)
	notifier := notify.NewNotifier(
		notify.NewStaticDirectory(operators...),
		notify.NewLogSender(),
		notify.RequirePermission(cfg.Notifications.OperatorPermission),
		catalog,
	)
	notifier.Register(bus)

	manager := reports.NewManager(
		client,
		cooldown.NewLimiter(),
		notify.NewBusDispatcher(bus, cfg.Notifications.TTL),
		reward.NewCommandHook(cfg.Rewards, reward.NewLogConsole()),
		reports.Options{
			Cooldown:               cfg.Reports.Cooldown,
			StorageTimeout:         cfg.Reports.StorageTimeout,
			Workers:                cfg.Reports.Workers,
			DefaultRejectionReason: cfg.Reports.DefaultRejectionReason,
		},
	)
	board := stats.NewService(client)

	runtime := lifecycle.NewRuntime()
	runtime.Register("store", lifecycle.Func{OnStop: func(context.Context) error { return client.Close() }})
	runtime.Register("observability", observability.NewServer(cfg.MetricsAddr))
	runtime.Register("events", bus)
	runtime.Register("reports", manager)
	runtime.Register("leaderboard", lifecycle.Func{OnStart: func(ctx context.Context) error {
		logLeaderboard(ctx, board)
		return nil
	}})

	if err := runtime.Start(ctx); err != nil {
		return errors.WithMessage(err, "cant start")
	}
	log.WithField("operators", len(operators)).WithField("lang", catalog.Language()).Info("quickreport started")

	<-ctx.Done()
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return runtime.Stop(stopCtx)
}

func logLeaderboard(ctx context.Context, board *stats.Service) {
	top, err := board.TopSubmitters(ctx, db.StatusAccepted, 3)
	if err != nil {
		log.WithError(err).Warn("cant load leaderboard")
		return
	}
	for i, entry := range top {
		log.WithField("rank", i+1).WithField("name", entry.Name).WithField("accepted", entry.Count).Debug("leaderboard")
	}
}
