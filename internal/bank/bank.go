// Package bank holds the finite question pool a session draws from.
package bank

import (
	"math/rand"
	"time"

	"trivia-live-service/internal/domain"
)

// Bank is an immutable ordered question pool supporting uniform random
// draws without replacement. Exhaustion is not an error; it is the normal
// early-completion trigger for the session.
type Bank struct {
	questions []domain.Question
	rnd       *rand.Rand
}

// New builds a bank with a time-seeded random source.
func New(questions []domain.Question) *Bank {
	return NewWithRand(questions, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand allows deterministic draws in tests.
func NewWithRand(questions []domain.Question, rnd *rand.Rand) *Bank {
	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	return &Bank{questions: qs, rnd: rnd}
}

// Size reports the total pool size.
func (b *Bank) Size() int {
	return len(b.questions)
}

// DrawUnused picks one question uniformly at random from those whose ids
// are not in used. The second return is false when the pool is exhausted.
func (b *Bank) DrawUnused(used map[string]struct{}) (domain.Question, bool) {
	available := make([]int, 0, len(b.questions))
	for i := range b.questions {
		if _, taken := used[b.questions[i].ID]; !taken {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		return domain.Question{}, false
	}
	return b.questions[available[b.rnd.Intn(len(available))]], true
}
