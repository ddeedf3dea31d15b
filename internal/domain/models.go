package domain

import "time"

// Question is an immutable multiple-choice question drawn from a pack.
// CorrectIndex is never sent to players while the question is open.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// QuestionPack is a named collection of questions loaded from a backing store.
type QuestionPack struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Participant is a joined player, keyed by a stable external id.
type Participant struct {
	UUID     string
	Name     string
	JoinedAt time.Time
}

// Answer is the last-write-wins record of one player's submission for the
// open question. Seq is the arrival sequence within the round and is bumped
// on every overwrite, so tie-breaks always follow actual arrival order.
type Answer struct {
	PlayerUUID   string
	PlayerName   string
	QuestionID   string
	AnswerIndex  int
	ResponseTime float64
	ReceivedAt   time.Time
	Seq          int
}

// Answer status labels used in feedback and final breakdowns.
const (
	StatusFirstCorrect = "First Correct"
	StatusCorrect      = "Correct"
	StatusWrong        = "Wrong"
	StatusNoAnswer     = "No Answer"
)

// Points awarded per question by status.
const (
	PointsFirstCorrect = 3
	PointsCorrect      = 1
	PointsWrong        = 0
)

// PlayerOutcome is one player's scored result for a single closed question.
type PlayerOutcome struct {
	IsCorrect    bool
	ResponseTime float64
	Points       int
	Status       string
}

// QuestionOutcome is the immutable per-question scoring record kept in the
// session accumulator once a round has ended. Players with no entry in
// Results did not answer that round.
type QuestionOutcome struct {
	QuestionNumber int
	Results        map[string]PlayerOutcome
}

// RoundScore is a per-question line in a player's final breakdown.
type RoundScore struct {
	QuestionNumber int     `json:"questionNumber"`
	Points         int     `json:"points"`
	Status         string  `json:"status"`
	ResponseTime   float64 `json:"responseTime,omitempty"`
}

// FinalStanding is a participant's aggregated result at session completion.
type FinalStanding struct {
	PlayerUUID        string       `json:"playerUuid"`
	PlayerName        string       `json:"playerName"`
	TotalPoints       int          `json:"totalPoints"`
	QuestionsAnswered int          `json:"questionsAnswered"`
	Rank              int          `json:"rank"`
	Breakdown         []RoundScore `json:"questionBreakdown,omitempty"`
}
