package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/trajector/portal/internal/crypto"
	"github.com/trajector/portal/internal/model"
)

// SessionKey is the fixed slot holding the serialized session.
const SessionKey = "trajector_user"

// SessionStore owns the single current session and its persisted copy.
// There is no expiry and no coordination with other processes sharing the
// same medium: each process reads the slot once at startup.
type SessionStore struct {
	mu      sync.RWMutex
	slot    Slot
	sealer  *crypto.Sealer
	current *model.Session
}

type SessionOption func(*SessionStore)

// WithSealer encrypts the record before it reaches the medium.
func WithSealer(s *crypto.Sealer) SessionOption {
	return func(st *SessionStore) { st.sealer = s }
}

func NewSessionStore(slot Slot, opts ...SessionOption) *SessionStore {
	s := &SessionStore{slot: slot}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted record into memory and returns it. Missing,
// malformed or unreadable records are treated as no session.
func (s *SessionStore) Load(ctx context.Context) *model.Session {
	sess, err := s.read(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("session: ignoring persisted record", "err", err)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return clone(sess)
}

func (s *SessionStore) read(ctx context.Context) (*model.Session, error) {
	raw, err := s.slot.Get(ctx, SessionKey)
	if err != nil {
		return nil, err
	}
	if s.sealer != nil {
		if raw, err = s.sealer.Open(raw); err != nil {
			return nil, fmt.Errorf("open sealed record: %w", err)
		}
	}

	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if sess.Identity == "" || !sess.Role.Valid() {
		return nil, fmt.Errorf("invalid record for %q with role %q", sess.Identity, sess.Role)
	}
	return &sess, nil
}

// Save replaces the current session and overwrites the persisted slot.
// When the medium fails the session is still current for this process and
// the returned error wraps ErrNotPersisted.
func (s *SessionStore) Save(ctx context.Context, sess model.Session) error {
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", ErrNotPersisted, err)
	}
	if s.sealer != nil {
		if raw, err = s.sealer.Seal(raw); err != nil {
			return fmt.Errorf("%w: seal session: %v", ErrNotPersisted, err)
		}
	}
	if err := s.slot.Put(ctx, SessionKey, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}

// Clear forgets the current session and removes the persisted record.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.slot.Delete(ctx, SessionKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}

// Current returns a copy of the in-memory session, or nil.
func (s *SessionStore) Current() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// Ping checks the underlying medium.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.slot.Ping(ctx)
}

func clone(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
