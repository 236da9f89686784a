package repository

import (
	"sort"
	"sync"
	"time"

	"scorelib/model"
)

// memoryScoreRepository is an in-memory ScoreRepository used by tests and
// cache-less tooling. Ids are assigned monotonically, matching the
// AUTO_INCREMENT behavior of the MySQL implementation.
type memoryScoreRepository struct {
	mu     sync.Mutex
	nextID int64
	scores map[int64]*model.Score
}

// NewMemoryScoreRepository creates an empty in-memory repository.
func NewMemoryScoreRepository() ScoreRepository {
	return &memoryScoreRepository{
		nextID: 1,
		scores: make(map[int64]*model.Score),
	}
}

func (r *memoryScoreRepository) CreateScore(score *model.Score) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *score
	stored.ID = r.nextID
	r.nextID++
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.scores[stored.ID] = &stored
	return stored.ID, nil
}

func (r *memoryScoreRepository) GetScoreByID(id int64) (*model.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	score, ok := r.scores[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *score
	return &copied, nil
}

func (r *memoryScoreRepository) SearchScores(q SearchQuery) ([]*model.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*model.Score, 0)
	for _, score := range r.scores {
		if q.Matches(score) {
			copied := *score
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return matched, nil
}

func (r *memoryScoreRepository) DeleteScore(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scores[id]; !ok {
		return ErrNotFound
	}
	delete(r.scores, id)
	return nil
}
