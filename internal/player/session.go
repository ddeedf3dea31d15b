// Package player implements the client-side session: a state machine that
// reconciles inbound session, question, and feedback messages into local
// state for a UI to render.
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/message"
	"trivia-live-service/internal/transport"
)

// ErrLoopClosed is returned for operations after Run has exited.
var ErrLoopClosed = errors.New("player loop closed")

// State is the player session's lifecycle position.
type State string

const (
	StateNotJoined        State = "not_joined"
	StateAwaitingConfig   State = "awaiting_config"
	StateQuizReady        State = "quiz_ready"
	StateQuestionActive   State = "question_active"
	StateAwaitingFeedback State = "awaiting_feedback"
	StateFeedbackReceived State = "feedback_received"
	StateCompleted        State = "completed"
)

// Stats is the player's locally tracked running score.
type Stats struct {
	QuestionsAnswered int
	TotalPoints       int
}

type activeQuestion struct {
	payload message.QuestionPayload
	number  int
	total   int
	askedAt time.Time
}

type task struct {
	fn    func() error
	reply chan error
}

// Session is one participant's state machine. Like the orchestrator it is
// driven by a single serialized loop; duplicate or out-of-order feedback
// is absorbed by the per-question processed set rather than by relying on
// transport guarantees.
type Session struct {
	bus  transport.Transport
	uuid string
	name string
	now  func() time.Time

	inbox chan task
	done  chan struct{}
	ctx   context.Context

	// loop-owned state
	state            State
	config           *message.SessionConfig
	joinedMidSession bool
	current          *activeQuestion
	selectedIndex    int
	hasAnswered      bool
	lastResult       *message.AnswerResult
	results          *message.QuizResults
	stats            Stats
	processed        map[string]struct{}
}

func NewSession(bus transport.Transport, uuid, name string) *Session {
	return &Session{
		bus:       bus,
		uuid:      uuid,
		name:      name,
		now:       time.Now,
		inbox:     make(chan task),
		done:      make(chan struct{}),
		state:     StateNotJoined,
		processed: make(map[string]struct{}),
	}
}

// NewSessionWithClock is test-only for deterministic response times.
func NewSessionWithClock(bus transport.Transport, uuid, name string, now func() time.Time) *Session {
	s := NewSession(bus, uuid, name)
	s.now = now
	return s
}

// Run subscribes to the player-facing channels and processes messages
// until ctx is canceled.
func (s *Session) Run(ctx context.Context) error {
	inbound, cancel, err := s.bus.Subscribe(ctx,
		message.ChannelQuestions, message.ChannelAnswers, message.ChannelGameControl)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cancel()
	defer close(s.done)

	s.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-s.inbox:
			t.reply <- t.fn()
		case in, ok := <-inbound:
			if !ok {
				return nil
			}
			s.dispatch(in)
		}
	}
}

func (s *Session) do(ctx context.Context, fn func() error) error {
	t := task{fn: fn, reply: make(chan error, 1)}
	select {
	case s.inbox <- t:
	case <-s.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.reply:
		return err
	case <-s.done:
		select {
		case err := <-t.reply:
			return err
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join announces the player and immediately requests late-join recovery,
// so the flow is the same whether or not a session is already running.
func (s *Session) Join(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state != StateNotJoined {
			return nil
		}
		s.publish(message.ChannelLobby, message.PlayerJoin{
			PlayerUUID: s.uuid,
			PlayerName: s.name,
			JoinedAt:   s.now().UnixMilli(),
		})
		s.publish(message.ChannelGameControl, message.RequestQuizState{
			PlayerUUID: s.uuid,
			PlayerName: s.name,
		})
		s.state = StateAwaitingConfig
		return nil
	})
}

// Leave announces departure and resets all local state.
func (s *Session) Leave(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state == StateNotJoined {
			return nil
		}
		s.publish(message.ChannelLobby, message.PlayerLeave{
			PlayerUUID: s.uuid,
			PlayerName: s.name,
		})
		s.reset()
		s.state = StateNotJoined
		return nil
	})
}

// SelectAnswer submits the chosen option for the active question. Once a
// question has been answered further selections are silent no-ops; the
// host accepts overwrites, but this client never sends them.
func (s *Session) SelectAnswer(ctx context.Context, index int) error {
	return s.do(ctx, func() error {
		if s.state == StateNotJoined {
			return domain.ErrNotJoined
		}
		if s.hasAnswered {
			return nil
		}
		if s.current == nil || s.state != StateQuestionActive {
			return domain.ErrNoActiveQuestion
		}

		now := s.now()
		responseTime := now.Sub(s.current.askedAt).Seconds()
		s.publish(message.ChannelAnswers, message.AnswerSubmitted{
			PlayerUUID:      s.uuid,
			PlayerName:      s.name,
			QuestionID:      s.current.payload.ID,
			AnswerIndex:     index,
			AnsweredAt:      now.UnixMilli(),
			QuestionAskedAt: s.current.askedAt.UnixMilli(),
			ResponseTime:    responseTime,
		})

		s.selectedIndex = index
		s.hasAnswered = true
		s.stats.QuestionsAnswered++
		s.state = StateAwaitingFeedback
		return nil
	})
}

// Snapshot is a read-only view of the session for a UI to render.
type Snapshot struct {
	State            State
	Config           *message.SessionConfig
	JoinedMidSession bool
	Question         *message.QuestionPayload
	QuestionNumber   int
	TotalQuestions   int
	SelectedIndex    int
	HasAnswered      bool
	LastResult       *message.AnswerResult
	Results          *message.QuizResults
	Stats            Stats
	ConnectionStatus string
}

// Snapshot reports the current session view.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() error {
		snap = Snapshot{
			State:            s.state,
			Config:           s.config,
			JoinedMidSession: s.joinedMidSession,
			SelectedIndex:    s.selectedIndex,
			HasAnswered:      s.hasAnswered,
			LastResult:       s.lastResult,
			Results:          s.results,
			Stats:            s.stats,
			ConnectionStatus: s.bus.Status(),
		}
		if s.current != nil {
			payload := s.current.payload
			snap.Question = &payload
			snap.QuestionNumber = s.current.number
			snap.TotalQuestions = s.current.total
		}
		return nil
	})
	return snap, err
}

func (s *Session) dispatch(in transport.Inbound) {
	if s.state == StateNotJoined {
		return
	}
	msg, ok := message.Decode(in.Data)
	if !ok {
		return
	}

	switch m := msg.(type) {
	case message.QuestionAsked:
		s.handleQuestion(m)
	case message.AnswerResult:
		s.handleFeedback(m)
	case message.QuizConfigured:
		s.handleConfigured(m)
	case message.QuizStarted:
		s.handleStarted()
	case message.QuizResults:
		s.handleResults(m)
	case message.GameEnd:
		s.handleGameEnd()
	}
}

func (s *Session) handleQuestion(m message.QuestionAsked) {
	if m.TargetPlayer != "" && m.TargetPlayer != s.uuid {
		return
	}
	// A redelivered copy of the question already on screen must not reset
	// the answered flag or the response-time baseline.
	if s.current != nil && s.current.payload.ID == m.Question.ID {
		return
	}
	s.current = &activeQuestion{
		payload: m.Question,
		number:  m.QuestionNumber,
		total:   m.TotalQuestions,
		askedAt: s.now(),
	}
	s.selectedIndex = -1
	s.hasAnswered = false
	s.lastResult = nil
	s.state = StateQuestionActive
}

// handleFeedback applies the idempotency guard: a question id may affect
// the running point total exactly once, no matter how many times or in
// what order its feedback is delivered.
func (s *Session) handleFeedback(m message.AnswerResult) {
	if m.PlayerUUID != s.uuid {
		return
	}
	s.lastResult = &m
	if s.state == StateAwaitingFeedback || s.state == StateQuestionActive {
		s.state = StateFeedbackReceived
	}

	if _, seen := s.processed[m.QuestionID]; seen {
		return
	}
	s.processed[m.QuestionID] = struct{}{}

	points := domain.PointsWrong
	if m.IsCorrect {
		if m.WasFastest {
			points = domain.PointsFirstCorrect
		} else {
			points = domain.PointsCorrect
		}
	}
	s.stats.TotalPoints += points
}

func (s *Session) handleConfigured(m message.QuizConfigured) {
	if m.TargetPlayer != "" && m.TargetPlayer != s.uuid {
		return
	}
	config := m.Config
	s.config = &config
	s.results = nil
	s.stats = Stats{}
	s.processed = make(map[string]struct{})
	s.joinedMidSession = m.TargetPlayer == s.uuid
	s.state = StateQuizReady
}

func (s *Session) handleStarted() {
	s.current = nil
	s.lastResult = nil
	s.results = nil
	s.hasAnswered = false
	if s.config != nil {
		s.state = StateQuizReady
	}
}

func (s *Session) handleResults(m message.QuizResults) {
	s.results = &m
	s.current = nil
	s.lastResult = nil
	s.hasAnswered = false
	s.processed = make(map[string]struct{})
	s.state = StateCompleted
}

func (s *Session) handleGameEnd() {
	s.current = nil
	s.lastResult = nil
	s.hasAnswered = false
	s.config = nil
	s.state = StateAwaitingConfig
}

func (s *Session) reset() {
	s.config = nil
	s.joinedMidSession = false
	s.current = nil
	s.selectedIndex = -1
	s.hasAnswered = false
	s.lastResult = nil
	s.results = nil
	s.stats = Stats{}
	s.processed = make(map[string]struct{})
}

func (s *Session) publish(channel string, msg message.Message) {
	data, err := message.Encode(msg)
	if err != nil {
		log.Printf("player: encode message: %v", err)
		return
	}
	if err := s.bus.Publish(s.ctx, channel, data); err != nil {
		log.Printf("player: publish to %s: %v", channel, err)
	}
}
