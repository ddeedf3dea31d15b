// Package host implements the session orchestrator: the single authority
// that owns a quiz session's lifecycle, question sequencing, answer
// collection, feedback, and final scoring.
package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"trivia-live-service/internal/bank"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/history"
	"trivia-live-service/internal/message"
	"trivia-live-service/internal/scoring"
	"trivia-live-service/internal/transport"
)

// ErrLoopClosed is returned for operations after Run has exited.
var ErrLoopClosed = errors.New("orchestrator loop closed")

// State is the orchestrator's lifecycle position.
type State string

const (
	StateIdle           State = "idle"
	StateConfigured     State = "configured"
	StateQuestionOpen   State = "question_open"
	StateQuestionClosed State = "question_closed"
	StateCompleted      State = "completed"
)

// Feedback strings sent with answer results.
const (
	feedbackFastest  = "Right, and fastest!"
	feedbackCorrect  = "Right, but not fastest"
	feedbackWrong    = "Wrong"
	feedbackNoAnswer = "No answer submitted"
)

type task struct {
	fn    func() error
	reply chan error
}

// Orchestrator drives one quiz session over the channel transport. All
// mutable state is owned by the Run loop: inbound messages and public
// operations are funneled through one queue and handled to completion,
// one at a time, which is what makes overwrite-on-resubmit and the
// fastest-scan correct without locks.
type Orchestrator struct {
	bus    transport.Transport
	bank   *bank.Bank
	mirror *history.Mirror

	now   func() time.Time
	newID func() string

	inbox chan task
	done  chan struct{}
	ctx   context.Context

	// loop-owned session state
	state          State
	sessionID      string
	questionCount  int
	questionNumber int
	used           map[string]struct{}
	participants   []domain.Participant
	current        *domain.Question
	answers        map[string]domain.Answer
	answerSeq      int
	rounds         []domain.QuestionOutcome
}

// New builds an orchestrator. mirror may be nil when no historical store
// is configured.
func New(bus transport.Transport, questionBank *bank.Bank, mirror *history.Mirror) *Orchestrator {
	return &Orchestrator{
		bus:    bus,
		bank:   questionBank,
		mirror: mirror,
		now:    time.Now,
		newID:  func() string { return "quiz-" + uuid.NewString() },
		inbox:  make(chan task),
		done:   make(chan struct{}),
		state:  StateIdle,
		used:   make(map[string]struct{}),
	}
}

// NewWithClock is test-only for deterministic timestamps and session ids.
func NewWithClock(bus transport.Transport, questionBank *bank.Bank, mirror *history.Mirror, now func() time.Time, newID func() string) *Orchestrator {
	o := New(bus, questionBank, mirror)
	o.now = now
	o.newID = newID
	return o
}

// Run subscribes to the host-facing channels and processes messages and
// operations until ctx is canceled. It must be running for any public
// operation to make progress.
func (o *Orchestrator) Run(ctx context.Context) error {
	inbound, cancel, err := o.bus.Subscribe(ctx, message.ChannelLobby, message.ChannelAnswers, message.ChannelGameControl)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cancel()
	defer close(o.done)

	o.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-o.inbox:
			t.reply <- t.fn()
		case in, ok := <-inbound:
			if !ok {
				return nil
			}
			o.dispatch(in)
		}
	}
}

// do runs fn inside the loop and waits for its result.
func (o *Orchestrator) do(ctx context.Context, fn func() error) error {
	t := task{fn: fn, reply: make(chan error, 1)}
	select {
	case o.inbox <- t:
	case <-o.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.reply:
		return err
	case <-o.done:
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

// Configure starts a new session: fresh id, empty used-question set and
// accumulator, and an immediate configuration + started broadcast.
func (o *Orchestrator) Configure(ctx context.Context, questionCount int) error {
	return o.do(ctx, func() error { return o.configure(questionCount) })
}

// AskNext opens the next round, or completes the session when the
// configured count is reached or the bank is exhausted.
func (o *Orchestrator) AskNext(ctx context.Context) error {
	return o.do(ctx, func() error { return o.askNext() })
}

// CloseQuestion closes the open round and sends "no answer" feedback to
// every participant who never answered.
func (o *Orchestrator) CloseQuestion(ctx context.Context) error {
	return o.do(ctx, func() error { return o.closeQuestion() })
}

// Advance clears the closed round and returns to accepting AskNext.
func (o *Orchestrator) Advance(ctx context.Context) error {
	return o.do(ctx, func() error { return o.advance() })
}

// Complete computes and broadcasts final standings, then resets.
func (o *Orchestrator) Complete(ctx context.Context) error {
	return o.do(ctx, func() error { return o.complete() })
}

// Stop terminates the session without standings.
func (o *Orchestrator) Stop(ctx context.Context) error {
	return o.do(ctx, func() error { return o.stop() })
}

// Snapshot is a read-only view of the orchestrator for UIs and tests.
type Snapshot struct {
	State            State
	SessionID        string
	QuestionCount    int
	QuestionNumber   int
	Players          []domain.Participant
	CurrentQuestion  *domain.Question
	AnswerCount      int
	ConnectionStatus string
}

// Snapshot reports the current session state.
func (o *Orchestrator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := o.do(ctx, func() error {
		snap = Snapshot{
			State:            o.state,
			SessionID:        o.sessionID,
			QuestionCount:    o.questionCount,
			QuestionNumber:   o.questionNumber,
			Players:          append([]domain.Participant(nil), o.participants...),
			AnswerCount:      len(o.answers),
			ConnectionStatus: o.bus.Status(),
		}
		if o.current != nil {
			q := *o.current
			snap.CurrentQuestion = &q
		}
		return nil
	})
	return snap, err
}

func (o *Orchestrator) dispatch(in transport.Inbound) {
	msg, ok := message.Decode(in.Data)
	if !ok {
		return
	}

	switch in.Channel {
	case message.ChannelLobby:
		switch m := msg.(type) {
		case message.PlayerJoin:
			o.handleJoin(m)
		case message.PlayerLeave:
			o.handleLeave(m)
		}
	case message.ChannelAnswers:
		if m, ok := msg.(message.AnswerSubmitted); ok {
			o.handleAnswer(m)
		}
	case message.ChannelGameControl:
		if m, ok := msg.(message.RequestQuizState); ok {
			o.handleStateRequest(m)
		}
	}
}

func (o *Orchestrator) handleJoin(m message.PlayerJoin) {
	for _, p := range o.participants {
		if p.UUID == m.PlayerUUID {
			return
		}
	}
	joinedAt := o.now()
	if m.JoinedAt > 0 {
		joinedAt = time.UnixMilli(m.JoinedAt)
	}
	o.participants = append(o.participants, domain.Participant{
		UUID:     m.PlayerUUID,
		Name:     m.PlayerName,
		JoinedAt: joinedAt,
	})
	if o.mirror != nil {
		o.mirror.PlayerJoined(m.PlayerUUID, m.PlayerName)
	}
}

func (o *Orchestrator) handleLeave(m message.PlayerLeave) {
	for i, p := range o.participants {
		if p.UUID == m.PlayerUUID {
			o.participants = append(o.participants[:i], o.participants[i+1:]...)
			return
		}
	}
}

// handleAnswer records a submission and answers it immediately. The
// fastest-correct check runs against answers seen so far, so a later,
// faster arrival does not retract feedback already delivered; that race
// is accepted behavior, not a bug.
func (o *Orchestrator) handleAnswer(m message.AnswerSubmitted) {
	if o.state != StateQuestionOpen || o.current == nil || m.QuestionID != o.current.ID {
		return
	}
	if !o.isParticipant(m.PlayerUUID) {
		return
	}

	// Resubmission overwrites the prior answer, timing included.
	o.answerSeq++
	o.answers[m.PlayerUUID] = domain.Answer{
		PlayerUUID:   m.PlayerUUID,
		PlayerName:   m.PlayerName,
		QuestionID:   m.QuestionID,
		AnswerIndex:  m.AnswerIndex,
		ResponseTime: m.ResponseTime,
		ReceivedAt:   o.now(),
		Seq:          o.answerSeq,
	}

	isCorrect := m.AnswerIndex == o.current.CorrectIndex
	wasFastest := false
	correctSoFar := 0
	if isCorrect {
		fastest := m.ResponseTime
		for _, a := range o.answers {
			if a.AnswerIndex != o.current.CorrectIndex {
				continue
			}
			correctSoFar++
			if a.ResponseTime < fastest {
				fastest = a.ResponseTime
			}
		}
		wasFastest = m.ResponseTime == fastest
	}

	feedback := feedbackWrong
	if isCorrect {
		if wasFastest {
			feedback = feedbackFastest
		} else {
			feedback = feedbackCorrect
		}
	}

	o.publish(message.ChannelAnswers, message.AnswerResult{
		PlayerUUID:         m.PlayerUUID,
		IsCorrect:          isCorrect,
		WasFastest:         wasFastest,
		Feedback:           feedback,
		Explanation:        o.current.Explanation,
		ResponseTime:       fmt.Sprintf("%.2f", m.ResponseTime),
		QuestionID:         m.QuestionID,
		CorrectAnswerIndex: o.current.CorrectIndex,
		CorrectAnswerText:  o.optionText(o.current.CorrectIndex),
	})

	if o.mirror != nil {
		points := domain.PointsWrong
		if isCorrect {
			if correctSoFar == 1 {
				points = domain.PointsFirstCorrect
			} else {
				points = domain.PointsCorrect
			}
		}
		o.mirror.AnswerRecorded(history.AnswerEntry{
			ExtID:          m.PlayerUUID,
			QuestionNumber: o.questionNumber,
			QuestionID:     m.QuestionID,
			AnswerIndex:    m.AnswerIndex,
			IsCorrect:      isCorrect,
			ResponseTime:   m.ResponseTime,
			Points:         points,
		})
	}
}

// handleStateRequest re-sends the session configuration, and the open
// question if there is one, addressed to the requesting player only.
func (o *Orchestrator) handleStateRequest(m message.RequestQuizState) {
	switch o.state {
	case StateConfigured, StateQuestionOpen, StateQuestionClosed:
	default:
		return
	}

	o.publish(message.ChannelGameControl, message.QuizConfigured{
		Config:       o.sessionConfig(),
		TargetPlayer: m.PlayerUUID,
	})
	if o.state == StateQuestionOpen && o.current != nil {
		o.publish(message.ChannelQuestions, o.questionMessage(m.PlayerUUID))
	}
}

func (o *Orchestrator) configure(questionCount int) error {
	if o.state != StateIdle && o.state != StateCompleted {
		return domain.ErrSessionActive
	}

	o.resetSession()
	o.sessionID = o.newID()
	o.questionCount = questionCount
	o.state = StateConfigured

	o.publish(message.ChannelGameControl, message.QuizConfigured{Config: o.sessionConfig()})
	o.publish(message.ChannelGameControl, message.QuizStarted{
		SessionID:     o.sessionID,
		QuestionCount: questionCount,
		StartTime:     o.now().UnixMilli(),
	})

	if o.mirror != nil {
		roster := make([]history.RosterEntry, 0, len(o.participants))
		for _, p := range o.participants {
			roster = append(roster, history.RosterEntry{ExtID: p.UUID, Name: p.Name})
		}
		o.mirror.SessionConfigured(o.sessionID, questionCount, roster)
	}
	return nil
}

func (o *Orchestrator) askNext() error {
	switch o.state {
	case StateConfigured:
	case StateQuestionOpen, StateQuestionClosed:
		return domain.ErrRoundInProgress
	default:
		return domain.ErrSessionNotConfigured
	}

	if o.questionNumber >= o.questionCount {
		return o.complete()
	}
	question, ok := o.bank.DrawUnused(o.used)
	if !ok {
		// Exhaustion is a normal completion trigger, not an error.
		log.Printf("host: question bank exhausted after %d questions", o.questionNumber)
		return o.complete()
	}

	o.used[question.ID] = struct{}{}
	o.questionNumber++
	o.current = &question
	o.answers = make(map[string]domain.Answer)
	o.answerSeq = 0
	o.state = StateQuestionOpen

	o.publish(message.ChannelQuestions, o.questionMessage(""))
	return nil
}

func (o *Orchestrator) closeQuestion() error {
	if o.state != StateQuestionOpen {
		return domain.ErrQuestionNotOpen
	}

	for _, p := range o.participants {
		if _, answered := o.answers[p.UUID]; answered {
			continue
		}
		o.publish(message.ChannelAnswers, message.AnswerResult{
			PlayerUUID:         p.UUID,
			Feedback:           feedbackNoAnswer,
			Explanation:        o.current.Explanation,
			ResponseTime:       "0.00",
			QuestionID:         o.current.ID,
			CorrectAnswerIndex: o.current.CorrectIndex,
			CorrectAnswerText:  o.optionText(o.current.CorrectIndex),
		})
	}

	o.foldRound()
	o.state = StateQuestionClosed
	return nil
}

func (o *Orchestrator) advance() error {
	switch o.state {
	case StateQuestionClosed:
	case StateQuestionOpen:
		return domain.ErrRoundInProgress
	default:
		return domain.ErrQuestionNotOpen
	}
	o.current = nil
	o.answers = nil
	o.state = StateConfigured
	return nil
}

func (o *Orchestrator) complete() error {
	switch o.state {
	case StateConfigured, StateQuestionClosed:
	case StateQuestionOpen:
		o.foldRound()
	default:
		return domain.ErrSessionNotConfigured
	}

	standings := scoring.Standings(o.participants, o.rounds)
	results := make([]message.StandingPayload, 0, len(standings))
	mirrored := make([]history.StandingEntry, 0, len(standings))
	for _, s := range standings {
		payload := message.StandingPayload{
			PlayerUUID:        s.PlayerUUID,
			PlayerName:        s.PlayerName,
			TotalPoints:       s.TotalPoints,
			QuestionsAnswered: s.QuestionsAnswered,
			Rank:              s.Rank,
		}
		for _, line := range s.Breakdown {
			payload.Breakdown = append(payload.Breakdown, message.StandingBreakdown{
				QuestionNumber: line.QuestionNumber,
				Points:         line.Points,
				Status:         line.Status,
				ResponseTime:   line.ResponseTime,
			})
		}
		results = append(results, payload)
		mirrored = append(mirrored, history.StandingEntry{
			ExtID:             s.PlayerUUID,
			TotalPoints:       s.TotalPoints,
			QuestionsAnswered: s.QuestionsAnswered,
			Rank:              s.Rank,
		})
	}

	var winner *message.Winner
	if len(standings) > 0 {
		winner = &message.Winner{
			PlayerUUID:  standings[0].PlayerUUID,
			PlayerName:  standings[0].PlayerName,
			TotalPoints: standings[0].TotalPoints,
			Message: fmt.Sprintf("Congratulations %s! You won with %d points!",
				standings[0].PlayerName, standings[0].TotalPoints),
		}
	}

	o.publish(message.ChannelGameControl, message.QuizResults{
		SessionID: o.sessionID,
		Results:   results,
		Summary: message.QuizSummary{
			TotalQuestions: o.questionCount,
			CompletedAt:    o.now().UnixMilli(),
		},
		Winner: winner,
	})

	if o.mirror != nil {
		winnerExt := ""
		if winner != nil {
			winnerExt = winner.PlayerUUID
		}
		o.mirror.SessionCompleted(winnerExt, len(o.participants), len(o.rounds), mirrored)
	}

	o.resetSession()
	o.state = StateCompleted
	return nil
}

func (o *Orchestrator) stop() error {
	switch o.state {
	case StateConfigured, StateQuestionOpen, StateQuestionClosed:
	default:
		return domain.ErrSessionNotConfigured
	}

	o.publish(message.ChannelGameControl, message.GameEnd{})
	if o.mirror != nil {
		o.mirror.SessionStopped()
	}
	o.resetSession()
	o.state = StateIdle
	return nil
}

// resetSession clears all ephemeral session state. The participant roster
// survives across sessions.
func (o *Orchestrator) resetSession() {
	o.sessionID = ""
	o.questionCount = 0
	o.questionNumber = 0
	o.used = make(map[string]struct{})
	o.current = nil
	o.answers = nil
	o.answerSeq = 0
	o.rounds = nil
}

// foldRound scores the open round's final answers into the accumulator,
// so only the active round and the per-question outcomes are ever kept in
// memory.
func (o *Orchestrator) foldRound() {
	answers := make([]domain.Answer, 0, len(o.answers))
	for _, a := range o.answers {
		answers = append(answers, a)
	}
	o.rounds = append(o.rounds, domain.QuestionOutcome{
		QuestionNumber: o.questionNumber,
		Results:        scoring.ScoreRound(answers, o.current.CorrectIndex),
	})
	o.current = nil
	o.answers = nil
}

func (o *Orchestrator) sessionConfig() message.SessionConfig {
	return message.SessionConfig{
		SessionID:     o.sessionID,
		QuestionCount: o.questionCount,
		IsConfigured:  true,
		IsStarted:     true,
	}
}

func (o *Orchestrator) questionMessage(targetPlayer string) message.QuestionAsked {
	return message.QuestionAsked{
		Question: message.QuestionPayload{
			ID:      o.current.ID,
			Text:    o.current.Text,
			Options: o.current.Options,
		},
		SessionID:      o.sessionID,
		QuestionNumber: o.questionNumber,
		TotalQuestions: o.questionCount,
		TargetPlayer:   targetPlayer,
	}
}

func (o *Orchestrator) isParticipant(uuid string) bool {
	for _, p := range o.participants {
		if p.UUID == uuid {
			return true
		}
	}
	return false
}

func (o *Orchestrator) optionText(index int) string {
	if o.current == nil || index < 0 || index >= len(o.current.Options) {
		return ""
	}
	return o.current.Options[index]
}

// publish encodes and sends a message; failures are logged and the
// message is considered lost, never queued.
func (o *Orchestrator) publish(channel string, msg message.Message) {
	data, err := message.Encode(msg)
	if err != nil {
		log.Printf("host: encode message: %v", err)
		return
	}
	if err := o.bus.Publish(o.ctx, channel, data); err != nil {
		log.Printf("host: publish to %s: %v", channel, err)
	}
}
