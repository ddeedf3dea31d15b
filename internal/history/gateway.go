// Package history records players, games, and results for reporting.
// Everything here is best-effort with respect to the live session: the
// orchestrator mirrors events through an async worker and never waits on
// or rolls back for a failed write.
package history

import (
	"context"
	"time"
)

// QuestionResultRecord is one player's stored result for one question.
type QuestionResultRecord struct {
	GameID         int64
	PlayerID       int64
	QuestionNumber int
	QuestionID     string
	AnswerIndex    int
	IsCorrect      bool
	ResponseTime   float64
	Points         int
}

// ParticipantResult is a player's final line recorded at game completion.
type ParticipantResult struct {
	PlayerID          int64
	TotalPoints       int
	QuestionsAnswered int
	Rank              int
}

// Gateway is the write side of the historical store.
type Gateway interface {
	UpsertPlayer(ctx context.Context, extID, name string) (int64, error)
	CreateGame(ctx context.Context, sessionExtID string, questionCount int) (int64, error)
	AddParticipant(ctx context.Context, gameID, playerID int64) error
	RecordQuestionResult(ctx context.Context, rec QuestionResultRecord) error
	CompleteGame(ctx context.Context, gameID, winnerID int64, totalPlayers, questionsAsked int, results []ParticipantResult) error
}

// GameSummary is a reporting row for one game.
type GameSummary struct {
	ID             int64      `json:"id"`
	SessionExtID   string     `json:"sessionId"`
	Status         string     `json:"status"`
	QuestionCount  int        `json:"questionCount"`
	QuestionsAsked int        `json:"questionsAsked"`
	TotalPlayers   int        `json:"totalPlayers"`
	WinnerName     string     `json:"winnerName,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// ParticipantSummary is one player's final line within a game report.
type ParticipantSummary struct {
	PlayerName        string `json:"playerName"`
	TotalPoints       int    `json:"totalPoints"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	FinalRank         int    `json:"finalRank"`
}

// GameReport is the detailed view of one game.
type GameReport struct {
	Game         GameSummary          `json:"game"`
	Participants []ParticipantSummary `json:"participants"`
}

// PlayerStats is a leaderboard row aggregated across games.
type PlayerStats struct {
	Name        string `json:"name"`
	TotalWins   int    `json:"totalWins"`
	TotalGames  int    `json:"totalGames"`
	TotalPoints int    `json:"totalPoints"`
}

// Reader is the read side used by the reporting view.
type Reader interface {
	RecentGames(ctx context.Context, limit int) ([]GameSummary, error)
	GameDetails(ctx context.Context, gameID int64) (GameReport, error)
	TopPlayers(ctx context.Context, limit int) ([]PlayerStats, error)
}
