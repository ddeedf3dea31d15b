package message

// Logical channels the game is coordinated over. All messages are broadcast;
// a non-empty TargetPlayer field means only that player's client should act.
const (
	ChannelLobby       = "trivia-lobby"
	ChannelQuestions   = "trivia-questions"
	ChannelAnswers     = "trivia-answers"
	ChannelGameControl = "trivia-game-control"
)

// Wire tags. The set per channel is closed; decoders ignore unknown tags.
const (
	TagPlayerJoin       = "player_join"
	TagPlayerLeave      = "player_leave"
	TagQuestionAsked    = "question_asked"
	TagAnswerSubmitted  = "answer_submitted"
	TagAnswerResult     = "answer_result"
	TagQuizConfigured   = "quiz_configured"
	TagQuizStarted      = "quiz_started"
	TagQuizResults      = "quiz_results"
	TagGameEnd          = "game_end"
	TagRequestQuizState = "request_quiz_state"
)

// Message is the closed union of everything exchanged over the channels.
type Message interface {
	tag() string
}

// PlayerJoin announces a player entering the lobby.
type PlayerJoin struct {
	PlayerUUID string `json:"playerUuid"`
	PlayerName string `json:"playerName"`
	JoinedAt   int64  `json:"joinedAt"`
}

// PlayerLeave announces a player leaving the lobby.
type PlayerLeave struct {
	PlayerUUID string `json:"playerUuid"`
	PlayerName string `json:"playerName"`
}

// QuestionPayload is the player-visible part of a question. The correct
// index and explanation are withheld until feedback.
type QuestionPayload struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuestionAsked opens a round. A targeted copy is re-sent for late joiners.
type QuestionAsked struct {
	Question       QuestionPayload `json:"question"`
	SessionID      string          `json:"sessionId"`
	QuestionNumber int             `json:"questionNumber"`
	TotalQuestions int             `json:"totalQuestions"`
	TargetPlayer   string          `json:"targetPlayer,omitempty"`
}

// AnswerSubmitted carries one player's answer for the open question.
type AnswerSubmitted struct {
	PlayerUUID      string  `json:"playerUuid"`
	PlayerName      string  `json:"playerName"`
	QuestionID      string  `json:"questionId"`
	AnswerIndex     int     `json:"answerIndex"`
	AnsweredAt      int64   `json:"answeredAt"`
	QuestionAskedAt int64   `json:"questionAskedAt"`
	ResponseTime    float64 `json:"responseTime"`
}

// AnswerResult is the host's per-answer verdict, sent as soon as the answer
// arrives, or synthesized at close time for players who never answered.
type AnswerResult struct {
	PlayerUUID         string `json:"playerUuid"`
	IsCorrect          bool   `json:"isCorrect"`
	WasFastest         bool   `json:"wasFastest"`
	Feedback           string `json:"feedback"`
	Explanation        string `json:"explanation,omitempty"`
	ResponseTime       string `json:"responseTime"`
	QuestionID         string `json:"questionId"`
	CorrectAnswerIndex int    `json:"correctAnswerIndex"`
	CorrectAnswerText  string `json:"correctAnswerText,omitempty"`
}

// SessionConfig is the player-visible session configuration.
type SessionConfig struct {
	SessionID     string `json:"sessionId"`
	QuestionCount int    `json:"questionCount"`
	IsConfigured  bool   `json:"isConfigured"`
	IsStarted     bool   `json:"isStarted"`
}

// QuizConfigured broadcasts the session configuration. Targeted copies
// answer late-join state requests.
type QuizConfigured struct {
	Config       SessionConfig `json:"config"`
	TargetPlayer string        `json:"targetPlayer,omitempty"`
}

// QuizStarted signals that rounds may begin.
type QuizStarted struct {
	SessionID     string `json:"sessionId"`
	QuestionCount int    `json:"questionCount"`
	StartTime     int64  `json:"startTime"`
}

// StandingPayload is one row of the final results broadcast.
type StandingPayload struct {
	PlayerUUID        string              `json:"playerUuid"`
	PlayerName        string              `json:"playerName"`
	TotalPoints       int                 `json:"totalPoints"`
	QuestionsAnswered int                 `json:"questionsAnswered"`
	Rank              int                 `json:"rank"`
	Breakdown         []StandingBreakdown `json:"questionBreakdown,omitempty"`
}

// StandingBreakdown is a per-question line in a standing.
type StandingBreakdown struct {
	QuestionNumber int     `json:"questionNumber"`
	Points         int     `json:"points"`
	Status         string  `json:"status"`
	ResponseTime   float64 `json:"responseTime,omitempty"`
}

// QuizSummary describes the completed session.
type QuizSummary struct {
	TotalQuestions int   `json:"totalQuestions"`
	CompletedAt    int64 `json:"completedAt"`
}

// Winner announces the top-ranked player.
type Winner struct {
	PlayerUUID  string `json:"playerUuid"`
	PlayerName  string `json:"playerName"`
	TotalPoints int    `json:"totalPoints"`
	Message     string `json:"message"`
}

// QuizResults carries the full final standings.
type QuizResults struct {
	SessionID string            `json:"sessionId"`
	Results   []StandingPayload `json:"results"`
	Summary   QuizSummary       `json:"summary"`
	Winner    *Winner           `json:"winner,omitempty"`
}

// GameEnd signals early termination without standings.
type GameEnd struct{}

// RequestQuizState asks the host to re-send session state to one player.
type RequestQuizState struct {
	PlayerUUID string `json:"playerUuid"`
	PlayerName string `json:"playerName"`
}

func (PlayerJoin) tag() string       { return TagPlayerJoin }
func (PlayerLeave) tag() string      { return TagPlayerLeave }
func (QuestionAsked) tag() string    { return TagQuestionAsked }
func (AnswerSubmitted) tag() string  { return TagAnswerSubmitted }
func (AnswerResult) tag() string     { return TagAnswerResult }
func (QuizConfigured) tag() string   { return TagQuizConfigured }
func (QuizStarted) tag() string      { return TagQuizStarted }
func (QuizResults) tag() string      { return TagQuizResults }
func (GameEnd) tag() string          { return TagGameEnd }
func (RequestQuizState) tag() string { return TagRequestQuizState }
