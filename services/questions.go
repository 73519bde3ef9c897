package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"strik-trivia/models"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

// QuestionBank is the immutable pool rounds draw from.
type QuestionBank struct {
	questions []models.Question
}

// LoadQuestionBank reads questions from a JSON file, or returns the built-in
// bank when path is empty.
func LoadQuestionBank(path string) (*QuestionBank, error) {
	if path == "" {
		return NewQuestionBank(DefaultQuestions())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file %s: %w", path, err)
	}
	var questions []models.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("parse question file %s: %w", path, err)
	}
	bank, err := NewQuestionBank(questions)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"file": path, "questions": bank.Len()}).Info("[QUESTIONS] loaded question bank")
	return bank, nil
}

// NewQuestionBank validates questions and fills in category slugs.
func NewQuestionBank(questions []models.Question) (*QuestionBank, error) {
	seen := make(map[string]bool, len(questions))
	out := make([]models.Question, 0, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("question %d: id and text are required", i)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("question %s: duplicate id", q.ID)
		}
		seen[q.ID] = true

		hasAnswer := false
		for _, a := range q.AcceptedAnswers {
			if NormalizeAnswer(a) != "" {
				hasAnswer = true
				break
			}
		}
		if !hasAnswer {
			return nil, fmt.Errorf("question %s: no usable accepted answers", q.ID)
		}
		if q.TimeLimit < 0 {
			return nil, fmt.Errorf("question %s: negative time limit", q.ID)
		}

		q.AcceptedAnswers = append([]string(nil), q.AcceptedAnswers...)
		q.CategorySlug = slug.Make(q.Category)
		out = append(out, q)
	}
	return &QuestionBank{questions: out}, nil
}

func (b *QuestionBank) Len() int {
	return len(b.questions)
}

// At returns the question at index i. The bank is never mutated so the
// pointer is safe to share.
func (b *QuestionBank) At(i int) *models.Question {
	return &b.questions[i]
}

// Categories lists every category with its question count, ordered by name.
func (b *QuestionBank) Categories() []models.Category {
	bySlug := map[string]*models.Category{}
	for _, q := range b.questions {
		c, ok := bySlug[q.CategorySlug]
		if !ok {
			c = &models.Category{Name: q.Category, Slug: q.CategorySlug}
			bySlug[q.CategorySlug] = c
		}
		c.Count++
	}

	out := make([]models.Category, 0, len(bySlug))
	for _, c := range bySlug {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
