package message

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form: a tag plus the message body.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a message in its tagged envelope.
func Encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.tag(), err)
	}
	return json.Marshal(envelope{Type: m.tag(), Payload: payload})
}

// Decode parses a wire envelope into its typed message. Unknown tags and
// malformed payloads return ok=false so both state machines can treat them
// as forward-compatible no-ops.
func Decode(data []byte) (Message, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}

	var msg Message
	switch env.Type {
	case TagPlayerJoin:
		msg = decodeInto[PlayerJoin](env.Payload)
	case TagPlayerLeave:
		msg = decodeInto[PlayerLeave](env.Payload)
	case TagQuestionAsked:
		msg = decodeInto[QuestionAsked](env.Payload)
	case TagAnswerSubmitted:
		msg = decodeInto[AnswerSubmitted](env.Payload)
	case TagAnswerResult:
		msg = decodeInto[AnswerResult](env.Payload)
	case TagQuizConfigured:
		msg = decodeInto[QuizConfigured](env.Payload)
	case TagQuizStarted:
		msg = decodeInto[QuizStarted](env.Payload)
	case TagQuizResults:
		msg = decodeInto[QuizResults](env.Payload)
	case TagGameEnd:
		msg = decodeInto[GameEnd](env.Payload)
	case TagRequestQuizState:
		msg = decodeInto[RequestQuizState](env.Payload)
	default:
		return nil, false
	}
	if msg == nil {
		return nil, false
	}
	return msg, true
}

func decodeInto[T Message](payload json.RawMessage) Message {
	var v T
	if len(payload) == 0 {
		return v
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil
	}
	return v
}
