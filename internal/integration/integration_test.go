package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-live-service/internal/bank"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/history"
	"trivia-live-service/internal/host"
	pgloader "trivia-live-service/internal/infra/postgres"
	pgmigrations "trivia-live-service/internal/infra/postgres/migrations"
	inforedis "trivia-live-service/internal/infra/redis"
	"trivia-live-service/internal/player"
	busredis "trivia-live-service/internal/transport/redis"
)

func TestFullSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateAndSeed(t, ctx, pgURL, samplePack())
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	// The question bank comes through the Redis-cached Postgres loader,
	// exactly as the host command wires it.
	packRepo := inforedis.NewPackRepository(redisClient, pgloader.NewPackLoader(pool), 5*time.Minute)
	pack, err := packRepo.GetPack(ctx, "pack-1")
	if err != nil {
		t.Fatalf("get pack: %v", err)
	}
	if len(pack.Questions) != 2 {
		t.Fatalf("expected 2 seeded questions, got %d", len(pack.Questions))
	}
	correctByID := make(map[string]int, len(pack.Questions))
	for _, q := range pack.Questions {
		correctByID[q.ID] = q.CorrectIndex
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := history.NewStore(db)
	mirror := history.NewMirror(store)
	go mirror.Run(runCtx)

	bus := busredis.NewTransport(redisClient)
	orch := host.New(bus, bank.New(pack.Questions), mirror)
	go func() { _ = orch.Run(runCtx) }()
	// Wait for the loop, and with it the subscription, to come up before
	// any player publishes a join.
	if _, err := orch.Snapshot(runCtx); err != nil {
		t.Fatalf("await orchestrator loop: %v", err)
	}

	alice := player.NewSession(bus, "u1", "Alice")
	bob := player.NewSession(bus, "u2", "Bob")
	go func() { _ = alice.Run(runCtx) }()
	go func() { _ = bob.Run(runCtx) }()

	if err := alice.Join(runCtx); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	if err := bob.Join(runCtx); err != nil {
		t.Fatalf("bob join: %v", err)
	}
	waitUntil(t, func() bool {
		snap, err := orch.Snapshot(runCtx)
		return err == nil && len(snap.Players) == 2
	})

	if err := orch.Configure(runCtx, 2); err != nil {
		t.Fatalf("configure: %v", err)
	}

	// Round 1: Alice answers correctly, Bob answers wrong.
	playRound(t, runCtx, orch, alice, bob, correctByID)
	if err := orch.Advance(runCtx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// Round 2: same split on the remaining question.
	playRound(t, runCtx, orch, alice, bob, correctByID)

	if err := orch.Complete(runCtx); err != nil {
		t.Fatalf("complete: %v", err)
	}

	waitUntil(t, func() bool {
		snap, err := alice.Snapshot(runCtx)
		return err == nil && snap.State == player.StateCompleted
	})
	snap, err := alice.Snapshot(runCtx)
	if err != nil {
		t.Fatalf("alice snapshot: %v", err)
	}
	if snap.Results == nil || snap.Results.Winner == nil || snap.Results.Winner.PlayerUUID != "u1" {
		t.Fatalf("expected Alice to win, got %+v", snap.Results)
	}
	if snap.Results.Results[0].TotalPoints != 6 {
		t.Fatalf("expected 6 points for the winner, got %+v", snap.Results.Results[0])
	}
	if snap.Stats.TotalPoints != 6 || snap.Stats.QuestionsAnswered != 2 {
		t.Fatalf("expected local stats 6 points over 2 answers, got %+v", snap.Stats)
	}

	// The mirrored history lands best-effort; poll the read side.
	var game history.GameSummary
	waitUntil(t, func() bool {
		games, err := store.RecentGames(ctx, 5)
		if err != nil || len(games) == 0 || games[0].Status != "completed" {
			return false
		}
		game = games[0]
		return true
	})
	if game.WinnerName != "Alice" || game.TotalPlayers != 2 || game.QuestionsAsked != 2 {
		t.Fatalf("unexpected recorded game %+v", game)
	}

	report, err := store.GameDetails(ctx, game.ID)
	if err != nil {
		t.Fatalf("game details: %v", err)
	}
	if len(report.Participants) != 2 || report.Participants[0].PlayerName != "Alice" || report.Participants[0].TotalPoints != 6 {
		t.Fatalf("unexpected participants %+v", report.Participants)
	}

	top, err := store.TopPlayers(ctx, 5)
	if err != nil {
		t.Fatalf("top players: %v", err)
	}
	if len(top) != 2 || top[0].Name != "Alice" || top[0].TotalWins != 1 {
		t.Fatalf("unexpected leaderboard %+v", top)
	}
}

// playRound asks the next question, has alice answer correctly and bob
// wrong, and closes the round once both got feedback.
func playRound(t *testing.T, ctx context.Context, orch *host.Orchestrator, alice, bob *player.Session, correctByID map[string]int) {
	t.Helper()

	if err := orch.AskNext(ctx); err != nil {
		t.Fatalf("ask: %v", err)
	}

	var questionID string
	waitUntil(t, func() bool {
		snap, err := alice.Snapshot(ctx)
		if err != nil || snap.State != player.StateQuestionActive {
			return false
		}
		questionID = snap.Question.ID
		return true
	})
	waitUntil(t, func() bool {
		snap, err := bob.Snapshot(ctx)
		return err == nil && snap.State == player.StateQuestionActive && snap.Question.ID == questionID
	})

	correct := correctByID[questionID]
	if err := alice.SelectAnswer(ctx, correct); err != nil {
		t.Fatalf("alice answer: %v", err)
	}
	if err := bob.SelectAnswer(ctx, (correct+1)%3); err != nil {
		t.Fatalf("bob answer: %v", err)
	}

	for _, session := range []*player.Session{alice, bob} {
		waitUntil(t, func() bool {
			snap, err := session.Snapshot(ctx)
			return err == nil && snap.LastResult != nil && snap.LastResult.QuestionID == questionID
		})
	}

	if err := orch.CloseQuestion(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string, pack domain.QuestionPack) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(pack)
	if err != nil {
		t.Fatalf("marshal pack: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO question_packs (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
		pack.ID, string(data)); err != nil {
		t.Fatalf("insert pack: %v", err)
	}
	return db
}

func samplePack() domain.QuestionPack {
	return domain.QuestionPack{
		ID:    "pack-1",
		Title: "Integration",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				Explanation:  "Basic arithmetic.",
			},
			{
				ID:           "q2",
				Text:         "Largest ocean?",
				Options:      []string{"Pacific", "Atlantic", "Indian"},
				CorrectIndex: 0,
				Explanation:  "The Pacific is the largest.",
			},
		},
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}
