package history

import (
	"time"

	"github.com/uptrace/bun"
)

// Game status values.
const (
	gameInProgress = "in_progress"
	gameCompleted  = "completed"
)

type playerRow struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	ExtID       string    `bun:"ext_id,notnull,unique"`
	Name        string    `bun:"name,notnull"`
	LastSeen    time.Time `bun:"last_seen,notnull"`
	TotalGames  int       `bun:"total_games,notnull,default:0"`
	TotalWins   int       `bun:"total_wins,notnull,default:0"`
	TotalPoints int       `bun:"total_points,notnull,default:0"`
}

type gameRow struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID             int64      `bun:"id,pk,autoincrement"`
	SessionExtID   string     `bun:"session_ext_id,notnull"`
	Status         string     `bun:"status,notnull"`
	QuestionCount  int        `bun:"question_count,notnull"`
	QuestionsAsked int        `bun:"questions_asked,notnull,default:0"`
	TotalPlayers   int        `bun:"total_players,notnull,default:0"`
	WinnerID       *int64     `bun:"winner_id"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	CompletedAt    *time.Time `bun:"completed_at"`

	Winner *playerRow `bun:"rel:belongs-to,join:winner_id=id"`
}

type participantRow struct {
	bun.BaseModel `bun:"table:game_participants,alias:gp"`

	GameID            int64 `bun:"game_id,pk"`
	PlayerID          int64 `bun:"player_id,pk"`
	TotalPoints       int   `bun:"total_points,notnull,default:0"`
	QuestionsAnswered int   `bun:"questions_answered,notnull,default:0"`
	FinalRank         int   `bun:"final_rank,notnull,default:0"`

	Player *playerRow `bun:"rel:belongs-to,join:player_id=id"`
}

type questionResultRow struct {
	bun.BaseModel `bun:"table:question_results,alias:qr"`

	ID             int64     `bun:"id,pk,autoincrement"`
	GameID         int64     `bun:"game_id,notnull"`
	PlayerID       int64     `bun:"player_id,notnull"`
	QuestionNumber int       `bun:"question_number,notnull"`
	QuestionID     string    `bun:"question_id,notnull"`
	AnswerIndex    int       `bun:"answer_index,notnull"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	ResponseTime   float64   `bun:"response_time,notnull"`
	Points         int       `bun:"points,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}
