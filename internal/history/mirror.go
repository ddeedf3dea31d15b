package history

import (
	"context"
	"log"
	"time"
)

// RosterEntry identifies a joined player by external id.
type RosterEntry struct {
	ExtID string
	Name  string
}

// StandingEntry is a final standing keyed by external id.
type StandingEntry struct {
	ExtID             string
	TotalPoints       int
	QuestionsAnswered int
	Rank              int
}

// AnswerEntry is one scored answer keyed by external id.
type AnswerEntry struct {
	ExtID          string
	QuestionNumber int
	QuestionID     string
	AnswerIndex    int
	IsCorrect      bool
	ResponseTime   float64
	Points         int
}

// Mirror feeds session events to a Gateway from a single worker goroutine,
// so gateway latency or failure never touches the live game loop. The
// worker owns the external-id to database-id map and the current game id;
// events are dropped with a log line when the queue is full.
type Mirror struct {
	gateway Gateway
	tasks   chan func(ctx context.Context)
	timeout time.Duration

	// worker-owned state
	players map[string]int64
	gameID  int64
}

func NewMirror(gateway Gateway) *Mirror {
	return &Mirror{
		gateway: gateway,
		tasks:   make(chan func(ctx context.Context), 256),
		timeout: 5 * time.Second,
		players: make(map[string]int64),
	}
}

// Run consumes mirrored events until ctx is canceled.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-m.tasks:
			taskCtx, cancel := context.WithTimeout(ctx, m.timeout)
			task(taskCtx)
			cancel()
		}
	}
}

func (m *Mirror) enqueue(task func(ctx context.Context)) {
	select {
	case m.tasks <- task:
	default:
		log.Printf("history: mirror queue full, dropping event")
	}
}

// PlayerJoined upserts the player and, when a game is running, registers
// them as a participant.
func (m *Mirror) PlayerJoined(extID, name string) {
	m.enqueue(func(ctx context.Context) {
		id, err := m.gateway.UpsertPlayer(ctx, extID, name)
		if err != nil {
			log.Printf("history: upsert player: %v", err)
			return
		}
		m.players[extID] = id
		if m.gameID != 0 {
			if err := m.gateway.AddParticipant(ctx, m.gameID, id); err != nil {
				log.Printf("history: add participant: %v", err)
			}
		}
	})
}

// SessionConfigured opens a game record and enrolls the current roster.
func (m *Mirror) SessionConfigured(sessionID string, questionCount int, roster []RosterEntry) {
	m.enqueue(func(ctx context.Context) {
		gameID, err := m.gateway.CreateGame(ctx, sessionID, questionCount)
		if err != nil {
			log.Printf("history: create game: %v", err)
			m.gameID = 0
			return
		}
		m.gameID = gameID
		for _, entry := range roster {
			id, ok := m.players[entry.ExtID]
			if !ok {
				id, err = m.gateway.UpsertPlayer(ctx, entry.ExtID, entry.Name)
				if err != nil {
					log.Printf("history: upsert player: %v", err)
					continue
				}
				m.players[entry.ExtID] = id
			}
			if err := m.gateway.AddParticipant(ctx, gameID, id); err != nil {
				log.Printf("history: add participant: %v", err)
			}
		}
	})
}

// AnswerRecorded mirrors one scored answer.
func (m *Mirror) AnswerRecorded(entry AnswerEntry) {
	m.enqueue(func(ctx context.Context) {
		playerID, ok := m.players[entry.ExtID]
		if !ok || m.gameID == 0 {
			return
		}
		err := m.gateway.RecordQuestionResult(ctx, QuestionResultRecord{
			GameID:         m.gameID,
			PlayerID:       playerID,
			QuestionNumber: entry.QuestionNumber,
			QuestionID:     entry.QuestionID,
			AnswerIndex:    entry.AnswerIndex,
			IsCorrect:      entry.IsCorrect,
			ResponseTime:   entry.ResponseTime,
			Points:         entry.Points,
		})
		if err != nil {
			log.Printf("history: record result: %v", err)
		}
	})
}

// SessionCompleted closes the game record with final standings.
func (m *Mirror) SessionCompleted(winnerExtID string, totalPlayers, questionsAsked int, standings []StandingEntry) {
	m.enqueue(func(ctx context.Context) {
		if m.gameID == 0 {
			return
		}
		results := make([]ParticipantResult, 0, len(standings))
		for _, s := range standings {
			id, ok := m.players[s.ExtID]
			if !ok {
				continue
			}
			results = append(results, ParticipantResult{
				PlayerID:          id,
				TotalPoints:       s.TotalPoints,
				QuestionsAnswered: s.QuestionsAnswered,
				Rank:              s.Rank,
			})
		}
		winnerID := m.players[winnerExtID]
		err := m.gateway.CompleteGame(ctx, m.gameID, winnerID, totalPlayers, questionsAsked, results)
		if err != nil {
			log.Printf("history: complete game: %v", err)
		}
		m.gameID = 0
	})
}

// SessionStopped abandons the current game record, if any.
func (m *Mirror) SessionStopped() {
	m.enqueue(func(ctx context.Context) {
		m.gameID = 0
	})
}
