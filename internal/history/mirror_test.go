package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMirrorRecordsFullSession(t *testing.T) {
	gateway := newFakeGateway()
	mirror := NewMirror(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	mirror.PlayerJoined("u1", "Alice")
	mirror.PlayerJoined("u2", "Bob")
	mirror.SessionConfigured("quiz-1", 2, []RosterEntry{
		{ExtID: "u1", Name: "Alice"},
		{ExtID: "u2", Name: "Bob"},
	})
	mirror.AnswerRecorded(AnswerEntry{
		ExtID:          "u1",
		QuestionNumber: 1,
		QuestionID:     "q1",
		AnswerIndex:    1,
		IsCorrect:      true,
		ResponseTime:   1.2,
		Points:         3,
	})
	mirror.SessionCompleted("u1", 2, 2, []StandingEntry{
		{ExtID: "u1", TotalPoints: 3, QuestionsAnswered: 1, Rank: 1},
		{ExtID: "u2", TotalPoints: 0, QuestionsAnswered: 0, Rank: 2},
	})

	gateway.waitForCompletions(t, 1)

	if got := gateway.playerCount(); got != 2 {
		t.Fatalf("expected 2 players upserted, got %d", got)
	}
	if got := gateway.gameCount(); got != 1 {
		t.Fatalf("expected 1 game created, got %d", got)
	}
	if got := gateway.resultCount(); got != 1 {
		t.Fatalf("expected 1 question result, got %d", got)
	}
	rec := gateway.lastResult()
	if rec.QuestionID != "q1" || rec.Points != 3 || !rec.IsCorrect {
		t.Fatalf("unexpected recorded result %+v", rec)
	}
	completion := gateway.lastCompletion()
	if completion.totalPlayers != 2 || completion.questionsAsked != 2 || len(completion.results) != 2 {
		t.Fatalf("unexpected completion %+v", completion)
	}
}

func TestMirrorSurvivesGatewayFailures(t *testing.T) {
	gateway := newFakeGateway()
	gateway.fail = true
	mirror := NewMirror(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	// None of these may block or panic when every write fails.
	mirror.PlayerJoined("u1", "Alice")
	mirror.SessionConfigured("quiz-1", 2, []RosterEntry{{ExtID: "u1", Name: "Alice"}})
	mirror.AnswerRecorded(AnswerEntry{ExtID: "u1", QuestionID: "q1"})
	mirror.SessionCompleted("u1", 1, 1, nil)

	gateway.waitForCalls(t, 2)
	if gateway.gameCount() != 0 {
		t.Fatalf("expected no game recorded when creation fails")
	}
}

func TestMirrorSkipsResultsWithoutGame(t *testing.T) {
	gateway := newFakeGateway()
	mirror := NewMirror(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	// No SessionConfigured first: nothing to attach the answer to.
	mirror.PlayerJoined("u1", "Alice")
	mirror.AnswerRecorded(AnswerEntry{ExtID: "u1", QuestionID: "q1", Points: 3})
	mirror.SessionStopped()

	gateway.waitForCalls(t, 1)
	time.Sleep(50 * time.Millisecond)
	if gateway.resultCount() != 0 {
		t.Fatalf("expected the orphan result dropped")
	}
}

type completionRecord struct {
	winnerID       int64
	totalPlayers   int
	questionsAsked int
	results        []ParticipantResult
}

type fakeGateway struct {
	mu          sync.Mutex
	fail        bool
	calls       int
	nextID      int64
	players     map[string]int64
	games       int
	records     []QuestionResultRecord
	completions []completionRecord
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{players: make(map[string]int64)}
}

func (g *fakeGateway) UpsertPlayer(_ context.Context, extID, name string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return 0, errors.New("storage down")
	}
	if id, ok := g.players[extID]; ok {
		return id, nil
	}
	g.nextID++
	g.players[extID] = g.nextID
	return g.nextID, nil
}

func (g *fakeGateway) CreateGame(_ context.Context, sessionExtID string, questionCount int) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return 0, errors.New("storage down")
	}
	g.games++
	g.nextID++
	return g.nextID, nil
}

func (g *fakeGateway) AddParticipant(_ context.Context, gameID, playerID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return errors.New("storage down")
	}
	return nil
}

func (g *fakeGateway) RecordQuestionResult(_ context.Context, rec QuestionResultRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return errors.New("storage down")
	}
	g.records = append(g.records, rec)
	return nil
}

func (g *fakeGateway) CompleteGame(_ context.Context, gameID, winnerID int64, totalPlayers, questionsAsked int, results []ParticipantResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return errors.New("storage down")
	}
	g.completions = append(g.completions, completionRecord{
		winnerID:       winnerID,
		totalPlayers:   totalPlayers,
		questionsAsked: questionsAsked,
		results:        results,
	})
	return nil
}

func (g *fakeGateway) playerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

func (g *fakeGateway) gameCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.games
}

func (g *fakeGateway) resultCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

func (g *fakeGateway) lastResult() QuestionResultRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.records[len(g.records)-1]
}

func (g *fakeGateway) lastCompletion() completionRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completions[len(g.completions)-1]
}

func (g *fakeGateway) waitForCompletions(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		done := len(g.completions) >= n
		g.mu.Unlock()
		if done {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d completions", n)
}

func (g *fakeGateway) waitForCalls(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		done := g.calls >= n
		g.mu.Unlock()
		if done {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d gateway calls", n)
}
