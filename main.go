package main

import (
	"context"
	"log"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/urfave/cli/v2"

	"github.com/postmottak/mailroom/config"
	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/database"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/repository"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/server"
	"github.com/postmottak/mailroom/services/events"
	"github.com/postmottak/mailroom/services/imap"
	"github.com/postmottak/mailroom/services/storage"
)

func main() {
	app := &cli.App{
		Name:  "mailroom",
		Usage: "mailbox synchronization and MIME decoding engine",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "run database migrations",
				Action: func(c *cli.Context) error {
					cfg, err := config.InitConfig()
					if err != nil {
						return err
					}
					db, err := database.NewConnection(cfg.DatabaseConfig)
					if err != nil {
						return err
					}
					if err := repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
						return err
					}
					log.Print("migrations completed")
					return nil
				},
			},
			{
				Name:  "sync",
				Usage: "run a single synchronization pass and exit",
				Action: func(c *cli.Context) error {
					return runSyncOnce(c.Context)
				},
			},
			{
				Name:  "server",
				Usage: "run the scheduled sync service with the HTTP API",
				Action: func(c *cli.Context) error {
					cfg, err := config.InitConfig()
					if err != nil {
						return err
					}
					db, err := database.NewConnection(cfg.DatabaseConfig)
					if err != nil {
						return err
					}
					srv, err := server.NewServer(cfg, db)
					if err != nil {
						return err
					}
					return srv.Run()
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

func runSyncOnce(ctx context.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	db, err := database.NewConnection(cfg.DatabaseConfig)
	if err != nil {
		return err
	}
	repos := repository.InitRepositories(db)

	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err = events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, appLogger, nil)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	var archive interfaces.RawArchive
	if cfg.ArchiveConfig.Enabled {
		archive = storage.NewS3RawArchive(cfg.ArchiveConfig)
	}

	syncService := imap.NewSyncService(appLogger, cfg.ImapConfig, cfg.SyncConfig, repos, publisher, archive)
	report, err := syncService.RunOnce(ctx)
	if report != nil {
		appLogger.Infof("run %s finished in %s: %d seen, %d stored, %d routed, %d failed",
			report.RunID, report.Duration(), report.MessagesSeen, report.MessagesStored,
			report.MessagesRouted, report.MessagesFailed)
	}
	return err
}
