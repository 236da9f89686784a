package client

import (
	"context"
	"io"
	"sync"

	"scorelib/model"
)

// Row is one line of the rendered catalog. Either a confirmed score
// (PlaceholderID empty) or an in-flight placeholder with progress.
type Row struct {
	Score         model.Score
	PlaceholderID string
	Uploading     bool
	Percent       int
}

// Engine composes the rendered list from two sources that are never mixed
// in place: live upload sessions (always first, newest first) and the most
// recent confirmed fetch. The confirmed portion is replaced wholesale on
// every refresh and is the only authoritative part; placeholders are local
// display state.
type Engine struct {
	mu        sync.Mutex
	sessions  []*Session
	confirmed []*model.Score

	// OnChange, when set, is called after every state change, outside the
	// engine lock. Rendering hook.
	OnChange func()
}

// NewEngine returns an empty engine.
func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) notify() {
	if e.OnChange != nil {
		e.OnChange()
	}
}

// Begin starts a new upload session and prepends its placeholder to the
// rendered list before any network traffic happens. Sessions are
// independent: resolving one never affects another.
func (e *Engine) Begin(meta Metadata) *Session {
	s := newSession(e, meta)

	e.mu.Lock()
	e.sessions = append([]*Session{s}, e.sessions...)
	e.mu.Unlock()

	e.notify()
	return s
}

// removeSessionLocked drops a session from the rendered list. Caller holds
// e.mu.
func (e *Engine) removeSessionLocked(placeholderID string) {
	for i, s := range e.sessions {
		if s.placeholderID == placeholderID {
			e.sessions = append(e.sessions[:i], e.sessions[i+1:]...)
			return
		}
	}
}

// SetConfirmed replaces the confirmed portion of the rendered list with a
// fresh fetch result. In-flight placeholders survive; sessions already
// resolved are dropped, since the fetch now owns their records' ordering.
func (e *Engine) SetConfirmed(scores []*model.Score) {
	e.mu.Lock()
	live := e.sessions[:0]
	for _, s := range e.sessions {
		if s.status == StatusUploading {
			live = append(live, s)
		}
	}
	e.sessions = live
	e.confirmed = scores
	e.mu.Unlock()

	e.notify()
}

// Rows renders the current list: in-flight placeholders first, then the
// last confirmed fetch.
func (e *Engine) Rows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows := make([]Row, 0, len(e.sessions)+len(e.confirmed))
	for _, s := range e.sessions {
		row := Row{
			Score: model.Score{
				ID:        s.scoreID,
				Title:     s.meta.Title,
				Arranger:  s.meta.Arranger,
				Style:     s.meta.Style,
				Tempo:     s.meta.Tempo,
				ACappella: s.meta.ACappella,
				Filename:  s.filename,
			},
			PlaceholderID: s.placeholderID,
			Uploading:     s.status == StatusUploading,
			Percent:       s.percent,
		}
		rows = append(rows, row)
	}
	for _, score := range e.confirmed {
		rows = append(rows, Row{Score: *score})
	}
	return rows
}

// Submit runs one submission end to end: optimistic placeholder, transfer
// with progress, then reconciliation. On success the placeholder becomes
// the confirmed row; on failure it disappears and the error is returned.
func (e *Engine) Submit(ctx context.Context, api *API, meta Metadata, filename string, file io.Reader, size int64) (*Session, error) {
	s := e.Begin(meta)

	resp, err := api.Upload(ctx, meta, filename, file, size, s.Progress)
	if err != nil {
		s.Fail(err)
		return s, err
	}

	s.Confirm(resp.ID, resp.Filename)
	return s, nil
}

// Refresh fetches the confirmed list for a query and swaps it in.
func (e *Engine) Refresh(ctx context.Context, api *API, term string, aCappellaOnly bool) error {
	scores, err := api.ListScores(ctx, term, aCappellaOnly)
	if err != nil {
		return err
	}
	e.SetConfirmed(scores)
	return nil
}
