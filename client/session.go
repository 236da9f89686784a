// Package client implements the catalog's client-side view: an optimistic
// rendered list of scores, per-submission upload sessions with byte-level
// progress, and reconciliation of placeholders against server outcomes.
package client

import (
	"math"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one upload session.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Metadata is the user-entered description of a score being submitted.
type Metadata struct {
	Title     string
	Arranger  string
	Style     string
	Tempo     string
	ACappella bool
}

// Session tracks a single in-flight submission. It is created by
// Engine.Begin, fed progress during the transfer, and resolved exactly
// once to confirmed or failed. A resolved session never changes again.
type Session struct {
	engine *Engine

	placeholderID string
	meta          Metadata

	// Guarded by engine.mu.
	status   Status
	percent  int
	scoreID  int64
	filename string
	err      error
}

func newSession(e *Engine, meta Metadata) *Session {
	return &Session{
		engine:        e,
		placeholderID: uuid.NewString(),
		meta:          meta,
		status:        StatusUploading,
	}
}

// PlaceholderID returns the locally generated token identifying this
// session. It is distinct from every server-assigned id.
func (s *Session) PlaceholderID() string {
	return s.placeholderID
}

// Status returns the session's current lifecycle state.
func (s *Session) Status() Status {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.status
}

// Percent returns the last reported transfer progress, 0-100.
func (s *Session) Percent() int {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.percent
}

// Err returns the failure cause for a failed session, nil otherwise.
func (s *Session) Err() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.err
}

// Progress records a transfer-progress signal. The tracked percentage
// never regresses within a session, and progress on a resolved session is
// ignored. Display-only: the confirmed list is never touched here.
func (s *Session) Progress(sent, total int64) {
	s.engine.mu.Lock()
	if s.status != StatusUploading || total <= 0 {
		s.engine.mu.Unlock()
		return
	}
	percent := int(math.Round(float64(sent) * 100 / float64(total)))
	if percent > 100 {
		percent = 100
	}
	if percent > s.percent {
		s.percent = percent
	}
	s.engine.mu.Unlock()

	s.engine.notify()
}

// Confirm resolves the session with the server-assigned id and blob key.
// The placeholder row keeps its list position but renders as a regular
// confirmed row until the next full refetch re-establishes ordering.
func (s *Session) Confirm(id int64, filename string) {
	s.engine.mu.Lock()
	if s.status != StatusUploading {
		s.engine.mu.Unlock()
		return
	}
	s.status = StatusConfirmed
	s.scoreID = id
	s.filename = filename
	s.percent = 0
	s.engine.mu.Unlock()

	s.engine.notify()
}

// Fail resolves the session as failed and removes its placeholder from the
// rendered list. Other sessions and the confirmed list are untouched.
func (s *Session) Fail(err error) {
	s.engine.mu.Lock()
	if s.status != StatusUploading {
		s.engine.mu.Unlock()
		return
	}
	s.status = StatusFailed
	s.err = err
	s.engine.removeSessionLocked(s.placeholderID)
	s.engine.mu.Unlock()

	s.engine.notify()
}
