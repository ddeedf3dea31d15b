package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Store implements Gateway and Reader on Postgres through bun.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) UpsertPlayer(ctx context.Context, extID, name string) (int64, error) {
	row := &playerRow{ExtID: extID, Name: name, LastSeen: s.now()}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (ext_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("last_seen = EXCLUDED.last_seen").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert player: %w", err)
	}
	return row.ID, nil
}

func (s *Store) CreateGame(ctx context.Context, sessionExtID string, questionCount int) (int64, error) {
	row := &gameRow{
		SessionExtID:  sessionExtID,
		Status:        gameInProgress,
		QuestionCount: questionCount,
		CreatedAt:     s.now(),
	}
	_, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("create game: %w", err)
	}
	return row.ID, nil
}

func (s *Store) AddParticipant(ctx context.Context, gameID, playerID int64) error {
	row := &participantRow{GameID: gameID, PlayerID: playerID}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (game_id, player_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (s *Store) RecordQuestionResult(ctx context.Context, rec QuestionResultRecord) error {
	row := &questionResultRow{
		GameID:         rec.GameID,
		PlayerID:       rec.PlayerID,
		QuestionNumber: rec.QuestionNumber,
		QuestionID:     rec.QuestionID,
		AnswerIndex:    rec.AnswerIndex,
		IsCorrect:      rec.IsCorrect,
		ResponseTime:   rec.ResponseTime,
		Points:         rec.Points,
		CreatedAt:      s.now(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("record question result: %w", err)
	}
	return nil
}

func (s *Store) CompleteGame(ctx context.Context, gameID, winnerID int64, totalPlayers, questionsAsked int, results []ParticipantResult) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		completedAt := s.now()
		update := tx.NewUpdate().
			Model((*gameRow)(nil)).
			Set("status = ?", gameCompleted).
			Set("completed_at = ?", completedAt).
			Set("total_players = ?", totalPlayers).
			Set("questions_asked = ?", questionsAsked).
			Where("id = ?", gameID)
		if winnerID != 0 {
			update = update.Set("winner_id = ?", winnerID)
		}
		if _, err := update.Exec(ctx); err != nil {
			return fmt.Errorf("complete game: %w", err)
		}

		for _, r := range results {
			if _, err := tx.NewUpdate().
				Model((*participantRow)(nil)).
				Set("total_points = ?", r.TotalPoints).
				Set("questions_answered = ?", r.QuestionsAnswered).
				Set("final_rank = ?", r.Rank).
				Where("game_id = ? AND player_id = ?", gameID, r.PlayerID).
				Exec(ctx); err != nil {
				return fmt.Errorf("update participant: %w", err)
			}

			wins := 0
			if r.Rank == 1 {
				wins = 1
			}
			if _, err := tx.NewUpdate().
				Model((*playerRow)(nil)).
				Set("total_games = total_games + 1").
				Set("total_wins = total_wins + ?", wins).
				Set("total_points = total_points + ?", r.TotalPoints).
				Where("id = ?", r.PlayerID).
				Exec(ctx); err != nil {
				return fmt.Errorf("update player stats: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	var rows []gameRow
	err := s.db.NewSelect().
		Model(&rows).
		Relation("Winner").
		Order("g.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}

	games := make([]GameSummary, 0, len(rows))
	for i := range rows {
		games = append(games, summaryFromRow(&rows[i]))
	}
	return games, nil
}

func (s *Store) GameDetails(ctx context.Context, gameID int64) (GameReport, error) {
	game := new(gameRow)
	err := s.db.NewSelect().
		Model(game).
		Relation("Winner").
		Where("g.id = ?", gameID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return GameReport{}, err
	}
	if err != nil {
		return GameReport{}, fmt.Errorf("game details: %w", err)
	}

	var participants []participantRow
	err = s.db.NewSelect().
		Model(&participants).
		Relation("Player").
		Where("gp.game_id = ?", gameID).
		Order("gp.final_rank ASC").
		Scan(ctx)
	if err != nil {
		return GameReport{}, fmt.Errorf("game participants: %w", err)
	}

	report := GameReport{Game: summaryFromRow(game)}
	for _, p := range participants {
		summary := ParticipantSummary{
			TotalPoints:       p.TotalPoints,
			QuestionsAnswered: p.QuestionsAnswered,
			FinalRank:         p.FinalRank,
		}
		if p.Player != nil {
			summary.PlayerName = p.Player.Name
		}
		report.Participants = append(report.Participants, summary)
	}
	return report, nil
}

func (s *Store) TopPlayers(ctx context.Context, limit int) ([]PlayerStats, error) {
	var rows []playerRow
	err := s.db.NewSelect().
		Model(&rows).
		Order("total_wins DESC").
		Order("total_points DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}

	stats := make([]PlayerStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, PlayerStats{
			Name:        r.Name,
			TotalWins:   r.TotalWins,
			TotalGames:  r.TotalGames,
			TotalPoints: r.TotalPoints,
		})
	}
	return stats, nil
}

func summaryFromRow(row *gameRow) GameSummary {
	summary := GameSummary{
		ID:             row.ID,
		SessionExtID:   row.SessionExtID,
		Status:         row.Status,
		QuestionCount:  row.QuestionCount,
		QuestionsAsked: row.QuestionsAsked,
		TotalPlayers:   row.TotalPlayers,
		CreatedAt:      row.CreatedAt,
		CompletedAt:    row.CompletedAt,
	}
	if row.Winner != nil {
		summary.WinnerName = row.Winner.Name
	}
	return summary
}
