package app

import "github.com/SamuelNikhil/QuizWall-game/internal/domain"

// DefaultQuestions is the built-in fallback set used when the question
// source is unavailable or returns nothing, so a game can always start.
func DefaultQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   "fallback-1",
			Text: "Which planet is known as the Red Planet?",
			Options: []domain.Option{
				{ID: "A", Text: "Venus"},
				{ID: "B", Text: "Mars"},
				{ID: "C", Text: "Jupiter"},
				{ID: "D", Text: "Mercury"},
			},
			Correct: "B",
		},
		{
			ID:   "fallback-2",
			Text: "What does this code print?",
			Code: "for i := 0; i < 3; i++ {\n    fmt.Print(i)\n}",
			Options: []domain.Option{
				{ID: "A", Text: "123"},
				{ID: "B", Text: "0123"},
				{ID: "C", Text: "012"},
				{ID: "D", Text: "three"},
			},
			Correct: "C",
		},
		{
			ID:   "fallback-3",
			Text: "How many bits are in one byte?",
			Options: []domain.Option{
				{ID: "A", Text: "4"},
				{ID: "B", Text: "16"},
				{ID: "C", Text: "32"},
				{ID: "D", Text: "8"},
			},
			Correct: "D",
		},
		{
			ID:   "fallback-4",
			Text: "Which ocean is the largest?",
			Options: []domain.Option{
				{ID: "A", Text: "Pacific"},
				{ID: "B", Text: "Atlantic"},
				{ID: "C", Text: "Indian"},
				{ID: "D", Text: "Arctic"},
			},
			Correct: "A",
		},
		{
			ID:   "fallback-5",
			Text: "What does HTTP stand for?",
			Options: []domain.Option{
				{ID: "A", Text: "HyperText Transfer Protocol"},
				{ID: "B", Text: "High Throughput Transport Protocol"},
				{ID: "C", Text: "HyperText Transmission Process"},
				{ID: "D", Text: "Host Transfer Text Protocol"},
			},
			Correct: "A",
		},
		{
			ID:   "fallback-6",
			Text: "Which element has the chemical symbol O?",
			Options: []domain.Option{
				{ID: "A", Text: "Gold"},
				{ID: "B", Text: "Osmium"},
				{ID: "C", Text: "Oxygen"},
				{ID: "D", Text: "Oganesson"},
			},
			Correct: "C",
		},
		{
			ID:   "fallback-7",
			Text: "In which year did the first person walk on the Moon?",
			Options: []domain.Option{
				{ID: "A", Text: "1959"},
				{ID: "B", Text: "1969"},
				{ID: "C", Text: "1972"},
				{ID: "D", Text: "1965"},
			},
			Correct: "B",
		},
		{
			ID:   "fallback-8",
			Text: "What is the result of this expression?",
			Code: "len(\"quiz\") * 2",
			Options: []domain.Option{
				{ID: "A", Text: "6"},
				{ID: "B", Text: "10"},
				{ID: "C", Text: "4"},
				{ID: "D", Text: "8"},
			},
			Correct: "D",
		},
		{
			ID:   "fallback-9",
			Text: "Which country has the largest population?",
			Options: []domain.Option{
				{ID: "A", Text: "India"},
				{ID: "B", Text: "United States"},
				{ID: "C", Text: "China"},
				{ID: "D", Text: "Indonesia"},
			},
			Correct: "A",
		},
		{
			ID:   "fallback-10",
			Text: "What is the fastest land animal?",
			Options: []domain.Option{
				{ID: "A", Text: "Lion"},
				{ID: "B", Text: "Pronghorn"},
				{ID: "C", Text: "Cheetah"},
				{ID: "D", Text: "Greyhound"},
			},
			Correct: "C",
		},
	}
}
