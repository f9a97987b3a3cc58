package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"hackhub/cmd/buildCFG"
	"hackhub/internal/api/api"
	"hackhub/internal/auth"
	rabbitReader "hackhub/internal/consumerWorker"
	"hackhub/internal/mailer"
	"hackhub/internal/notify"
	"hackhub/internal/rabbit"
	"hackhub/internal/repo"
	"hackhub/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "HACKHUB"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	storageCfg, err := buildCFG.BuildStorageConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid storage config")
	}
	migrationCfg := buildCFG.BuildMigrationConfig(cfg)

	var (
		repository repo.Repository
		pg         *repo.Postgres
	)
	switch storageCfg.Driver {
	case "memory":
		repository = repo.NewMemory()
	default:
		pg = connectPostgres(cfg, &log)
		repository = pg
	}
	migrationPath := migrationCfg.Dir
	if pg != nil {
		if !filepath.IsAbs(migrationPath) {
			cwd, err := os.Getwd()
			if err != nil {
				log.Fatal().Err(err).Msg("cannot get working directory")
			}
			migrationPath = filepath.Join(cwd, migrationPath)
		}
		if err := pg.MigrateUp(migrationPath); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("Migrations applied successfully")
	}

	authCfg, err := buildCFG.BuildAuthConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth config")
	}
	tokens, err := auth.NewTokens(authCfg.JWTSecret, authCfg.ManagerTokenTTL, authCfg.StudentTokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tokens")
	}

	mailCfg := buildCFG.BuildMailConfig(cfg)
	mail := mailer.New(mailer.Config{
		Host:     mailCfg.Host,
		Port:     mailCfg.Port,
		Username: mailCfg.Username,
		Password: mailCfg.Password,
		From:     mailCfg.From,
	}, &log)
	notifierCfg := buildCFG.BuildNotifierConfig(cfg)

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	// Without a broker the dispatcher mails directly; with one it publishes
	// and the reader below does the mailing.
	var sender notify.Sender = mail
	var reader *rabbitReader.Reader
	if rabbitCfg.Enabled {
		rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue, &log)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()

		sender = rabbit.NewSender(rmq)
		reader = rabbitReader.NewReader(rmq, mail, &log, notifierCfg.Timeout)
		if err := reader.Start(workerCtx); err != nil {
			log.Fatal().Err(err).Msg("failed to start notification reader")
		}
	}

	dispatcher := notify.NewDispatcher(sender, &log, notifierCfg.Workers, notifierCfg.Buffer, notifierCfg.Timeout)
	dispatcher.Start()

	serviceInstance := service.NewService(repository, dispatcher, tokens, auth.NewHasher(authCfg.BcryptCost), &log,
		service.WithStorageTimeout(storageCfg.Timeout))
	app := api.NewRouters(&api.Routers{
		Service:      serviceInstance,
		Log:          &log,
		Mode:         serverCfg.GinMode(),
		AllowOrigins: serverCfg.AllowOrigins,
		Debug:        serverCfg.Debug(),
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	// Drain queued notifications before the broker connection goes away.
	dispatcher.Stop()
	if reader != nil {
		reader.Stop()
	}
	cancelWorkers()

	if pg != nil && migrationCfg.DropOnShutdown {
		log.Info().Msg("Rolling back migrations...")
		if err := pg.MigrateDown(migrationPath); err != nil {
			log.Error().Msgf("failed to rollback migrations: %v", err)
		} else {
			log.Info().Msg("Migrations rolled back successfully")
		}
	}
	log.Info().Msg("Shutdown complete")
}

func connectPostgres(cfg *config.Config, log *zerolog.Logger) *repo.Postgres {
	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	if err := db.Master.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	repository, err := repo.NewRepository(db, log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	return repository
}
