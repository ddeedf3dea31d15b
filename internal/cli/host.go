package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-live-service/internal/bank"
	"trivia-live-service/internal/config"
	"trivia-live-service/internal/control"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/history"
	"trivia-live-service/internal/host"
	infomemory "trivia-live-service/internal/infra/memory"
	pgloader "trivia-live-service/internal/infra/postgres"
	inforedis "trivia-live-service/internal/infra/redis"
	"trivia-live-service/internal/report"
	"trivia-live-service/internal/transport"
	busmemory "trivia-live-service/internal/transport/memory"
	busredis "trivia-live-service/internal/transport/redis"
	"trivia-live-service/internal/transport/ws"
)

// NewHostCmd builds the CLI subcommand that runs the session host.
func NewHostCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Run the trivia session host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd.Context(), *configPath, *port)
		},
	}
}

func runHost(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var bus transport.Transport
	if redisClient != nil {
		bus = busredis.NewTransport(redisClient)
	} else {
		bus = busmemory.NewBus()
	}

	var pool *pgxpool.Pool
	var store *history.Store
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		store = history.NewStore(db)
	}

	var loader infomemory.PackLoader = infomemory.NewStaticPackLoader(samplePacks())
	if pool != nil {
		loader = pgloader.NewPackLoader(pool)
	}

	packTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	packID := cfg.Quiz.PackID
	if packID == "" {
		packID = "general-knowledge"
	}

	var pack domain.QuestionPack
	if redisClient != nil {
		pack, err = inforedis.NewPackRepository(redisClient, loader, packTTL).GetPack(ctx, packID)
	} else {
		pack, err = infomemory.NewPackRepository(loader, packTTL).GetPack(ctx, packID)
	}
	if err != nil {
		return err
	}
	questionBank := bank.New(pack.Questions)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mirror *history.Mirror
	if store != nil {
		mirror = history.NewMirror(store)
		go mirror.Run(runCtx)
	}

	orchestrator := host.New(bus, questionBank, mirror)
	go func() {
		if err := orchestrator.Run(runCtx); err != nil && err != context.Canceled {
			log.Printf("orchestrator stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.NewHandler(bus).ServeWS)
	control.NewHandler(orchestrator).Register(mux)
	if store != nil {
		report.NewHandler(store).Register(mux)
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia host on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down host...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down host...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
