package repository

import (
	"testing"

	"scorelib/model"

	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildScoresQuery(t *testing.T) {
	for _, row := range []struct {
		description string
		query       SearchQuery
		wantSQL     string
		wantArgs    []interface{}
	}{
		{
			description: "no term, no filter",
			query:       SearchQuery{},
			wantSQL:     `SELECT ` + scoreColumns + ` FROM scores ORDER BY id DESC`,
			wantArgs:    nil,
		},
		{
			description: "term only",
			query:       SearchQuery{Term: "jazz"},
			wantSQL:     `SELECT ` + scoreColumns + ` FROM scores WHERE (title LIKE ? OR arranger LIKE ? OR style LIKE ? OR tempo LIKE ?) ORDER BY id DESC`,
			wantArgs:    []interface{}{"%jazz%", "%jazz%", "%jazz%", "%jazz%"},
		},
		{
			description: "filter only",
			query:       SearchQuery{ACappella: boolPtr(true)},
			wantSQL:     `SELECT ` + scoreColumns + ` FROM scores WHERE a_cappella = ? ORDER BY id DESC`,
			wantArgs:    []interface{}{true},
		},
		{
			description: "term and filter",
			query:       SearchQuery{Term: "maria", ACappella: boolPtr(false)},
			wantSQL:     `SELECT ` + scoreColumns + ` FROM scores WHERE (title LIKE ? OR arranger LIKE ? OR style LIKE ? OR tempo LIKE ?) AND a_cappella = ? ORDER BY id DESC`,
			wantArgs:    []interface{}{"%maria%", "%maria%", "%maria%", "%maria%", false},
		},
	} {
		t.Run(row.description, func(t *testing.T) {
			sql, args := BuildScoresQuery(row.query)
			require.Equal(t, row.wantSQL, sql)
			require.Equal(t, row.wantArgs, args)
		})
	}
}

func TestSearchQueryMatches(t *testing.T) {
	score := &model.Score{
		Title:     "Ave Maria",
		Arranger:  "Biebl",
		Style:     "Sacred",
		Tempo:     "Slow",
		ACappella: true,
	}

	for _, row := range []struct {
		description string
		query       SearchQuery
		want        bool
	}{
		{"empty query matches", SearchQuery{}, true},
		{"term in title", SearchQuery{Term: "maria"}, true},
		{"term case-insensitive", SearchQuery{Term: "AVE"}, true},
		{"term in arranger", SearchQuery{Term: "biebl"}, true},
		{"term in style", SearchQuery{Term: "sacred"}, true},
		{"term in tempo", SearchQuery{Term: "slow"}, true},
		{"term in no field", SearchQuery{Term: "uptempo"}, false},
		{"filter matches", SearchQuery{ACappella: boolPtr(true)}, true},
		{"filter mismatch", SearchQuery{ACappella: boolPtr(false)}, false},
		{"term matches but filter narrows out", SearchQuery{Term: "maria", ACappella: boolPtr(false)}, false},
		{"term and filter both match", SearchQuery{Term: "maria", ACappella: boolPtr(true)}, true},
		{"filter matches but term does not", SearchQuery{Term: "uptempo", ACappella: boolPtr(true)}, false},
	} {
		t.Run(row.description, func(t *testing.T) {
			require.Equal(t, row.want, row.query.Matches(score))
		})
	}
}

func TestMemoryRepositorySearchOrdering(t *testing.T) {
	repo := NewMemoryScoreRepository()

	titles := []string{"First", "Second", "Third"}
	for _, title := range titles {
		_, err := repo.CreateScore(&model.Score{Title: title, Arranger: "X", Style: "Jazz", Tempo: "Fast"})
		require.NoError(t, err)
	}

	scores, err := repo.SearchScores(SearchQuery{})
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// Newest first, descending by id.
	require.Equal(t, "Third", scores[0].Title)
	require.Equal(t, "Second", scores[1].Title)
	require.Equal(t, "First", scores[2].Title)
	require.Greater(t, scores[0].ID, scores[1].ID)
	require.Greater(t, scores[1].ID, scores[2].ID)
}

func TestMemoryRepositoryIDsStrictlyIncrease(t *testing.T) {
	repo := NewMemoryScoreRepository()

	id1, err := repo.CreateScore(&model.Score{Title: "A", Arranger: "X", Style: "S", Tempo: "T"})
	require.NoError(t, err)
	id2, err := repo.CreateScore(&model.Score{Title: "B", Arranger: "X", Style: "S", Tempo: "T"})
	require.NoError(t, err)
	require.Greater(t, id2, id1)

	// Deleting does not recycle ids.
	require.NoError(t, repo.DeleteScore(id2))
	id3, err := repo.CreateScore(&model.Score{Title: "C", Arranger: "X", Style: "S", Tempo: "T"})
	require.NoError(t, err)
	require.Greater(t, id3, id2)
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryScoreRepository()

	_, err := repo.GetScoreByID(42)
	require.ErrorIs(t, err, ErrNotFound)

	err = repo.DeleteScore(42)
	require.ErrorIs(t, err, ErrNotFound)
}
