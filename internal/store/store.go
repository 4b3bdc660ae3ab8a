package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/studybuddy/internal/model"

	_ "modernc.org/sqlite"
)

const (
	// DefaultHistoryLimit is the number of attempts History returns when no limit is given.
	DefaultHistoryLimit = 20
	// DefaultTrendLimit is the number of samples RecentTrend returns when no limit is given.
	DefaultTrendLimit = 5
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases intact.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS quiz_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		score INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		percentage REAL NOT NULL,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quiz_results_timestamp ON quiz_results(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveResult appends a quiz attempt. The topic is truncated, the percentage
// computed and the timestamp assigned here.
func (s *Store) SaveResult(topic string, difficulty model.Difficulty, score, total int) (model.QuizAttempt, error) {
	a := model.NewQuizAttempt(topic, difficulty, score, total)
	a.Timestamp = time.Now().UTC()

	res, err := s.db.Exec(
		`INSERT INTO quiz_results (topic, difficulty, score, total_questions, percentage, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Topic, a.Difficulty, a.Score, a.TotalQuestions, a.Percentage, a.Timestamp,
	)
	if err != nil {
		return model.QuizAttempt{}, fmt.Errorf("insert quiz result: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return model.QuizAttempt{}, err
	}
	return a, nil
}

// History returns the most recent attempts, newest first.
func (s *Store) History(limit int) ([]model.QuizAttempt, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.Query(
		`SELECT id, topic, difficulty, score, total_questions, percentage, timestamp
		 FROM quiz_results
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.QuizAttempt
	for rows.Next() {
		var a model.QuizAttempt
		if err := rows.Scan(&a.ID, &a.Topic, &a.Difficulty, &a.Score, &a.TotalQuestions, &a.Percentage, &a.Timestamp); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Stats returns count, average, best and lowest percentage over all attempts.
// An empty table yields zero values.
func (s *Store) Stats() (model.PerformanceStats, error) {
	var st model.PerformanceStats
	var avg, best, lowest sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT COUNT(*), AVG(percentage), MAX(percentage), MIN(percentage) FROM quiz_results`,
	).Scan(&st.TotalQuizzes, &avg, &best, &lowest)
	if err != nil {
		return st, err
	}
	st.AverageScore = avg.Float64
	st.BestScore = best.Float64
	st.LowestScore = lowest.Float64
	return st, nil
}

// StatsByDifficulty returns the average percentage and count per difficulty,
// ordered Easy, Intermediate, Advanced. Levels without attempts are omitted.
func (s *Store) StatsByDifficulty() ([]model.DifficultyStats, error) {
	rows, err := s.db.Query(
		`SELECT difficulty, AVG(percentage), COUNT(*)
		 FROM quiz_results
		 GROUP BY difficulty
		 ORDER BY
			CASE difficulty
				WHEN 'Easy' THEN 1
				WHEN 'Intermediate' THEN 2
				WHEN 'Advanced' THEN 3
				ELSE 4
			END`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DifficultyStats
	for rows.Next() {
		var d model.DifficultyStats
		if err := rows.Scan(&d.Difficulty, &d.AverageScore, &d.QuizCount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ScoreDistribution counts attempts per score category, best category first.
// Empty categories are omitted.
func (s *Store) ScoreDistribution() ([]model.ScoreBucket, error) {
	rows, err := s.db.Query(
		`SELECT
			CASE
				WHEN percentage >= 90 THEN 'Excellent'
				WHEN percentage >= 70 THEN 'Good'
				ELSE 'Needs Review'
			END AS category,
			COUNT(*)
		 FROM quiz_results
		 GROUP BY category
		 ORDER BY
			CASE category
				WHEN 'Excellent' THEN 1
				WHEN 'Good' THEN 2
				ELSE 3
			END`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScoreBucket
	for rows.Next() {
		var b model.ScoreBucket
		if err := rows.Scan(&b.Category, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RecentTrend returns the latest percentages with their timestamps, newest first.
func (s *Store) RecentTrend(limit int) ([]model.TrendPoint, error) {
	if limit <= 0 {
		limit = DefaultTrendLimit
	}
	rows, err := s.db.Query(
		`SELECT percentage, timestamp FROM quiz_results ORDER BY timestamp DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TrendPoint
	for rows.Next() {
		var p model.TrendPoint
		if err := rows.Scan(&p.Percentage, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of stored attempts.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM quiz_results`).Scan(&count)
	return count, err
}
