package cli

import "trivia-live-service/internal/domain"

// samplePacks provides a small built-in pack for running without
// Postgres; swap the static loader for the database-backed one in
// production.
func samplePacks() map[string]domain.QuestionPack {
	return map[string]domain.QuestionPack{
		"general-knowledge": {
			ID:    "general-knowledge",
			Title: "General Knowledge",
			Questions: []domain.Question{
				{
					ID:           "gk-1",
					Text:         "What is the capital of France?",
					Options:      []string{"London", "Berlin", "Paris", "Madrid"},
					CorrectIndex: 2,
					Explanation:  "Paris has been the capital of France since 987.",
				},
				{
					ID:           "gk-2",
					Text:         "Which planet is known as the Red Planet?",
					Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
					CorrectIndex: 1,
					Explanation:  "Iron oxide on its surface gives Mars its reddish color.",
				},
				{
					ID:           "gk-3",
					Text:         "What is 7 multiplied by 8?",
					Options:      []string{"54", "56", "64", "48"},
					CorrectIndex: 1,
					Explanation:  "7 times 8 equals 56.",
				},
				{
					ID:           "gk-4",
					Text:         "Which ocean is the largest?",
					Options:      []string{"Atlantic", "Indian", "Arctic", "Pacific"},
					CorrectIndex: 3,
					Explanation:  "The Pacific covers about a third of the Earth's surface.",
				},
				{
					ID:           "gk-5",
					Text:         "Who wrote 'Romeo and Juliet'?",
					Options:      []string{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"},
					CorrectIndex: 1,
					Explanation:  "Shakespeare wrote the play in the early 1590s.",
				},
			},
		},
	}
}
