package repository

import (
	"database/sql"
	"fmt"
	"time"

	"scorelib/logger"
	"scorelib/model"
)

// ScoreRepository defines the interface for score metadata operations.
type ScoreRepository interface {
	CreateScore(score *model.Score) (int64, error)
	GetScoreByID(id int64) (*model.Score, error)
	SearchScores(q SearchQuery) ([]*model.Score, error)
	DeleteScore(id int64) error
}

// mysqlScoreRepository implements ScoreRepository for MySQL.
type mysqlScoreRepository struct {
	db *sql.DB
}

// NewMySQLScoreRepository creates a new instance of mysqlScoreRepository.
func NewMySQLScoreRepository(db *sql.DB) ScoreRepository {
	return &mysqlScoreRepository{db: db}
}

// CreateScore adds a new score row and returns the assigned id.
func (r *mysqlScoreRepository) CreateScore(score *model.Score) (int64, error) {
	query := `INSERT INTO scores (title, arranger, style, tempo, filename, a_cappella, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateScore: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.Exec(score.Title, score.Arranger, score.Style, score.Tempo, score.Filename, score.ACappella, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateScore: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateScore: %w", err)
	}
	logger.Info("score created", logger.Int64("id", id), logger.String("title", score.Title))
	return id, nil
}

// GetScoreByID retrieves a score by its id, or ErrNotFound.
func (r *mysqlScoreRepository) GetScoreByID(id int64) (*model.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE id = ?`
	row := r.db.QueryRow(query, id)

	score := &model.Score{}
	err := row.Scan(&score.ID, &score.Title, &score.Arranger, &score.Style, &score.Tempo, &score.Filename, &score.ACappella, &score.CreatedAt, &score.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan score by ID %d: %w", id, err)
	}
	return score, nil
}

// SearchScores retrieves all scores matching the query, newest first.
func (r *mysqlScoreRepository) SearchScores(q SearchQuery) ([]*model.Score, error) {
	query, args := BuildScoresQuery(q)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	scores := make([]*model.Score, 0)
	for rows.Next() {
		score := &model.Score{}
		err := rows.Scan(&score.ID, &score.Title, &score.Arranger, &score.Style, &score.Tempo, &score.Filename, &score.ACappella, &score.CreatedAt, &score.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score in SearchScores: %w", err)
		}
		scores = append(scores, score)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in SearchScores: %w", err)
	}

	return scores, nil
}

// DeleteScore removes a score row. ErrNotFound if the id does not exist.
func (r *mysqlScoreRepository) DeleteScore(id int64) error {
	res, err := r.db.Exec(`DELETE FROM scores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteScore for ID %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for DeleteScore: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	logger.Info("score deleted", logger.Int64("id", id))
	return nil
}
