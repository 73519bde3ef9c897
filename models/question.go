package models

// Difficulty of a trivia question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is static trivia content; it is never mutated at runtime.
type Question struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	AcceptedAnswers []string   `json:"acceptedAnswers"`
	Difficulty      Difficulty `json:"difficulty"`
	Category        string     `json:"category"`
	CategorySlug    string     `json:"categorySlug"`
	Hint            string     `json:"hint,omitempty"`
	TimeLimit       int        `json:"timeLimit"` // seconds; 0 means the configured default
}

// PublicQuestion is what a player sees while answering: no accepted answers.
type PublicQuestion struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
	Hint       string     `json:"hint,omitempty"`
	TimeLimit  int        `json:"timeLimit"`
}

// Public hides the answers of q.
func (q *Question) Public(timeLimit int) *PublicQuestion {
	if q == nil {
		return nil
	}
	return &PublicQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Difficulty: q.Difficulty,
		Category:   q.Category,
		Hint:       q.Hint,
		TimeLimit:  timeLimit,
	}
}

// Category summarizes the questions filed under one category.
type Category struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}
