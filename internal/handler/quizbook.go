package handler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/studybuddy/internal/model"
)

const quizTTL = 24 * time.Hour

// activeQuiz is a generated quiz waiting for its answers.
type activeQuiz struct {
	Topic      string
	Difficulty model.Difficulty
	Items      []model.QuizItem
	CreatedAt  time.Time
}

// quizBook holds active quizzes between generation and submission.
type quizBook struct {
	mu      sync.Mutex
	quizzes map[uuid.UUID]activeQuiz
	now     func() time.Time
}

func newQuizBook() *quizBook {
	return &quizBook{
		quizzes: make(map[uuid.UUID]activeQuiz),
		now:     time.Now,
	}
}

// Put stores a quiz and returns its id. Expired quizzes are dropped on the way.
func (b *quizBook) Put(q activeQuiz) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, old := range b.quizzes {
		if now.Sub(old.CreatedAt) > quizTTL {
			delete(b.quizzes, id)
		}
	}

	id := uuid.New()
	q.CreatedAt = now
	b.quizzes[id] = q
	return id
}

// Take removes and returns the quiz, so each quiz is submitted at most once.
func (b *quizBook) Take(id uuid.UUID) (activeQuiz, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.quizzes[id]
	if !ok {
		return activeQuiz{}, false
	}
	delete(b.quizzes, id)
	if b.now().Sub(q.CreatedAt) > quizTTL {
		return activeQuiz{}, false
	}
	return q, true
}

// Len returns the number of quizzes held.
func (b *quizBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.quizzes)
}
