// Package scoring turns collected answers into points and final standings.
// Everything here is pure: the orchestrator owns all mutable state.
package scoring

import (
	"sort"

	"trivia-live-service/internal/domain"
)

// ScoreRound scores the final (last-write-wins) answers of one question.
// The first correct answer earns 3 points; "first" means the minimum
// response time among correct answers, with ties broken by arrival order.
// Players absent from answers did not answer and are handled at standings
// time.
func ScoreRound(answers []domain.Answer, correctIndex int) map[string]domain.PlayerOutcome {
	fastest, hasFastest := fastestCorrect(answers, correctIndex)

	results := make(map[string]domain.PlayerOutcome, len(answers))
	for _, a := range answers {
		outcome := domain.PlayerOutcome{ResponseTime: a.ResponseTime}
		switch {
		case a.AnswerIndex != correctIndex:
			outcome.Status = domain.StatusWrong
			outcome.Points = domain.PointsWrong
		case hasFastest && a.PlayerUUID == fastest:
			outcome.IsCorrect = true
			outcome.Status = domain.StatusFirstCorrect
			outcome.Points = domain.PointsFirstCorrect
		default:
			outcome.IsCorrect = true
			outcome.Status = domain.StatusCorrect
			outcome.Points = domain.PointsCorrect
		}
		results[a.PlayerUUID] = outcome
	}
	return results
}

// fastestCorrect returns the uuid of the correct answer with the lowest
// response time, ties going to the earlier arrival.
func fastestCorrect(answers []domain.Answer, correctIndex int) (string, bool) {
	var best *domain.Answer
	for i := range answers {
		a := &answers[i]
		if a.AnswerIndex != correctIndex {
			continue
		}
		if best == nil ||
			a.ResponseTime < best.ResponseTime ||
			(a.ResponseTime == best.ResponseTime && a.Seq < best.Seq) {
			best = a
		}
	}
	if best == nil {
		return "", false
	}
	return best.PlayerUUID, true
}

// Standings aggregates round outcomes into final per-player standings.
// Only questions actually asked count, which keeps early-stopped sessions
// consistent. Participants must be given in join order; that order is the
// last tie-break after total points and questions answered.
func Standings(participants []domain.Participant, rounds []domain.QuestionOutcome) []domain.FinalStanding {
	standings := make([]domain.FinalStanding, 0, len(participants))
	joinOrder := make(map[string]int, len(participants))

	for i, p := range participants {
		joinOrder[p.UUID] = i

		s := domain.FinalStanding{
			PlayerUUID: p.UUID,
			PlayerName: p.Name,
			Breakdown:  make([]domain.RoundScore, 0, len(rounds)),
		}
		for _, round := range rounds {
			line := domain.RoundScore{
				QuestionNumber: round.QuestionNumber,
				Status:         domain.StatusNoAnswer,
			}
			if outcome, ok := round.Results[p.UUID]; ok {
				line.Points = outcome.Points
				line.Status = outcome.Status
				line.ResponseTime = outcome.ResponseTime
				s.QuestionsAnswered++
			}
			s.TotalPoints += line.Points
			s.Breakdown = append(s.Breakdown, line)
		}
		standings = append(standings, s)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].TotalPoints != standings[j].TotalPoints {
			return standings[i].TotalPoints > standings[j].TotalPoints
		}
		if standings[i].QuestionsAnswered != standings[j].QuestionsAnswered {
			return standings[i].QuestionsAnswered > standings[j].QuestionsAnswered
		}
		return joinOrder[standings[i].PlayerUUID] < joinOrder[standings[j].PlayerUUID]
	})

	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}
