package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"scorelib/client"
	"scorelib/config"
	"scorelib/model"
	"scorelib/repository"
	"scorelib/server"
	"scorelib/storage"

	"github.com/stretchr/testify/require"
)

func newCatalogServer(t *testing.T) (*httptest.Server, repository.ScoreRepository) {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxUploadBytes: 1 << 20,
	}
	repo := repository.NewMemoryScoreRepository()
	blobs := storage.NewMemoryBlobStore(cfg.MaxUploadBytes)
	handler := server.NewAPIHandler(repo, blobs, nil, cfg)
	ts := httptest.NewServer(server.NewRouter(handler, cfg))
	t.Cleanup(ts.Close)
	return ts, repo
}

func confirmedScores(n int) []*model.Score {
	scores := make([]*model.Score, 0, n)
	for i := n; i >= 1; i-- {
		scores = append(scores, &model.Score{ID: int64(i), Title: "Existing"})
	}
	return scores
}

func TestBeginPrependsPlaceholder(t *testing.T) {
	e := client.NewEngine()
	e.SetConfirmed(confirmedScores(2))

	s := e.Begin(client.Metadata{Title: "New Chart", Arranger: "X", Style: "Swing", Tempo: "Fast", ACappella: true})

	rows := e.Rows()
	require.Len(t, rows, 3)

	top := rows[0]
	require.Equal(t, s.PlaceholderID(), top.PlaceholderID)
	require.True(t, top.Uploading)
	require.Equal(t, 0, top.Percent)
	require.Equal(t, "New Chart", top.Score.Title)
	require.True(t, top.Score.ACappella)
	require.Zero(t, top.Score.ID)

	// Confirmed rows keep their fetched order below the placeholder.
	require.Equal(t, int64(2), rows[1].Score.ID)
	require.Equal(t, int64(1), rows[2].Score.ID)
}

func TestConfirmSwapsIdentityInPlace(t *testing.T) {
	e := client.NewEngine()
	e.SetConfirmed(confirmedScores(2))

	s := e.Begin(client.Metadata{Title: "New Chart", Arranger: "X", Style: "Swing", Tempo: "Fast"})
	s.Progress(50, 100)
	s.Confirm(3, "1700000000000-chart.pdf")

	rows := e.Rows()
	require.Len(t, rows, 3)

	// Still at the top until the next refetch, but no longer a placeholder.
	top := rows[0]
	require.False(t, top.Uploading)
	require.Equal(t, 0, top.Percent)
	require.Equal(t, int64(3), top.Score.ID)
	require.Equal(t, "1700000000000-chart.pdf", top.Score.Filename)
}

func TestFailRemovesOnlyItsPlaceholder(t *testing.T) {
	e := client.NewEngine()
	e.SetConfirmed(confirmedScores(1))

	a := e.Begin(client.Metadata{Title: "A"})
	b := e.Begin(client.Metadata{Title: "B"})
	b.Progress(30, 100)

	a.Fail(errors.New("upload failed"))

	rows := e.Rows()
	require.Len(t, rows, 2)
	require.Equal(t, b.PlaceholderID(), rows[0].PlaceholderID)
	require.True(t, rows[0].Uploading)
	require.Equal(t, 30, rows[0].Percent)
	require.Equal(t, int64(1), rows[1].Score.ID)
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	e := client.NewEngine()

	// A starts first and is assigned the lower id; B finishes first.
	a := e.Begin(client.Metadata{Title: "A"})
	b := e.Begin(client.Metadata{Title: "B"})

	a.Progress(40, 100)
	b.Confirm(2, "1700000000001-b.pdf")

	rows := e.Rows()
	require.Len(t, rows, 2)

	// B resolved to a confirmed row; A still uploading, untouched.
	require.Equal(t, b.PlaceholderID(), rows[0].PlaceholderID)
	require.False(t, rows[0].Uploading)
	require.Equal(t, int64(2), rows[0].Score.ID)

	require.Equal(t, a.PlaceholderID(), rows[1].PlaceholderID)
	require.True(t, rows[1].Uploading)
	require.Equal(t, 40, rows[1].Percent)
	require.Equal(t, client.StatusUploading, a.Status())

	a.Confirm(1, "1700000000000-a.pdf")
	require.Equal(t, client.StatusConfirmed, a.Status())
}

func TestSetConfirmedKeepsInFlightPlaceholders(t *testing.T) {
	e := client.NewEngine()

	inflight := e.Begin(client.Metadata{Title: "Still Uploading"})
	resolved := e.Begin(client.Metadata{Title: "Done"})
	resolved.Confirm(5, "1700000000000-done.pdf")

	// A fresh fetch owns the resolved record's ordering from now on.
	e.SetConfirmed([]*model.Score{
		{ID: 5, Title: "Done"},
		{ID: 4, Title: "Older"},
	})

	rows := e.Rows()
	require.Len(t, rows, 3)
	require.Equal(t, inflight.PlaceholderID(), rows[0].PlaceholderID)
	require.True(t, rows[0].Uploading)
	require.Equal(t, int64(5), rows[1].Score.ID)
	require.Empty(t, rows[1].PlaceholderID)
	require.Equal(t, int64(4), rows[2].Score.ID)
}

func TestOnChangeFires(t *testing.T) {
	e := client.NewEngine()
	var changes int
	e.OnChange = func() { changes++ }

	s := e.Begin(client.Metadata{Title: "T"})
	s.Progress(10, 100)
	s.Progress(20, 100)
	s.Confirm(1, "k.pdf")
	e.SetConfirmed(nil)

	require.Equal(t, 5, changes)
}

func TestSubmitEndToEnd(t *testing.T) {
	ts, _ := newCatalogServer(t)
	api := client.NewAPI(ts.URL)
	e := client.NewEngine()

	type snapshot struct {
		uploading bool
		percent   int
	}
	// Progress fires on the transport's body-writer goroutine.
	var snapMu sync.Mutex
	var snapshots []snapshot
	e.OnChange = func() {
		rows := e.Rows()
		if len(rows) > 0 {
			snapMu.Lock()
			snapshots = append(snapshots, snapshot{rows[0].Uploading, rows[0].Percent})
			snapMu.Unlock()
		}
	}

	meta := client.Metadata{Title: "Ave Maria", Arranger: "X", Style: "Sacred", Tempo: "Slow", ACappella: true}
	pdf := strings.Repeat("x", 64<<10)

	s, err := e.Submit(context.Background(), api, meta, "ave-maria.pdf", strings.NewReader(pdf), int64(len(pdf)))
	require.NoError(t, err)
	require.Equal(t, client.StatusConfirmed, s.Status())

	// Progress climbed monotonically to 100 before confirmation.
	snapMu.Lock()
	recorded := make([]snapshot, len(snapshots))
	copy(recorded, snapshots)
	snapMu.Unlock()

	last := -1
	sawComplete := false
	for _, snap := range recorded[:len(recorded)-1] {
		if !snap.uploading {
			continue
		}
		require.GreaterOrEqual(t, snap.percent, last)
		last = snap.percent
		if snap.percent == 100 {
			sawComplete = true
		}
	}
	require.True(t, sawComplete)

	// The confirmed row carries the server id and true blob key.
	rows := e.Rows()
	require.Len(t, rows, 1)
	require.False(t, rows[0].Uploading)
	require.Equal(t, int64(1), rows[0].Score.ID)
	require.Contains(t, rows[0].Score.Filename, "ave-maria.pdf")
	require.True(t, rows[0].Score.ACappella)

	// A plain refetch places the new record at the top.
	require.NoError(t, e.Refresh(context.Background(), api, "", false))
	rows = e.Rows()
	require.Len(t, rows, 1)
	require.Empty(t, rows[0].PlaceholderID)
	require.Equal(t, int64(1), rows[0].Score.ID)
}

func TestSubmitFailureRollsBackPlaceholder(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insert failed", http.StatusInternalServerError)
	}))
	defer failing.Close()

	api := client.NewAPI(failing.URL)
	e := client.NewEngine()
	before := confirmedScores(2)
	e.SetConfirmed(before)

	meta := client.Metadata{Title: "Doomed", Arranger: "X", Style: "S", Tempo: "T"}
	s, err := e.Submit(context.Background(), api, meta, "doomed.pdf", strings.NewReader("pdf"), 3)
	require.Error(t, err)
	require.Equal(t, client.StatusFailed, s.Status())
	require.Error(t, s.Err())

	// The confirmed list is exactly what it was before the submission.
	rows := e.Rows()
	require.Len(t, rows, 2)
	require.Equal(t, int64(2), rows[0].Score.ID)
	require.Equal(t, int64(1), rows[1].Score.ID)
	for _, row := range rows {
		require.False(t, row.Uploading)
		require.Empty(t, row.PlaceholderID)
	}
}

func TestDeleteThenRefreshRemovesRow(t *testing.T) {
	ts, repo := newCatalogServer(t)
	api := client.NewAPI(ts.URL)
	e := client.NewEngine()

	id, err := repo.CreateScore(&model.Score{Title: "T", Arranger: "A", Style: "S", Tempo: "M", Filename: "k.pdf"})
	require.NoError(t, err)

	require.NoError(t, e.Refresh(context.Background(), api, "", false))
	require.Len(t, e.Rows(), 1)

	require.NoError(t, api.DeleteScore(context.Background(), id))
	require.NoError(t, e.Refresh(context.Background(), api, "", false))
	require.Empty(t, e.Rows())

	require.ErrorIs(t, api.DeleteScore(context.Background(), id), client.ErrNotFound)
}
