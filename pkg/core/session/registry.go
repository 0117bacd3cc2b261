package session

import (
	"log/slog"
	"sync"
	"time"
)

// Registry tracks the active call sessions for one process. It is safe
// for concurrent use; every operation takes the registry lock, so
// read-modify-write sequences on a single session are atomic.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*callSession

	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry returns an empty registry. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*callSession),
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a new session for callID and returns its snapshot.
// A duplicate callID overwrites the existing session, the old record is
// dropped after a warning.
func (r *Registry) Create(callID, tenantID, callerPhone string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[callID]; exists {
		r.logger.Warn("replacing existing session", "call_id", callID)
	}

	now := r.now()
	cs := &callSession{
		callID:       callID,
		tenantID:     tenantID,
		callerPhone:  callerPhone,
		startTime:    now,
		lastActivity: now,
	}
	r.sessions[callID] = cs
	return cs.snapshot()
}

// Get returns a snapshot of the session, or ok=false if none exists.
func (r *Registry) Get(callID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs, ok := r.sessions[callID]
	if !ok {
		return Session{}, false
	}
	return cs.snapshot(), true
}

// Update merges the non-nil fields of u into the session and refreshes
// its activity timestamp. Updating a missing session is a logged no-op.
func (r *Registry) Update(callID string, u Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sessions[callID]
	if !ok {
		r.logger.Warn("update for unknown session", "call_id", callID)
		return false
	}
	if u.TenantID != nil {
		cs.tenantID = *u.TenantID
	}
	if u.CallerPhone != nil {
		cs.callerPhone = *u.CallerPhone
	}
	cs.lastActivity = r.now()
	return true
}

// AddMessage appends a message to the session's history, stamping it
// with the current time. opts may be nil. When the history would exceed
// MaxHistory, the oldest entries are dropped, keeping the most recent
// MaxHistory-1 and re-inserting a leading system message at index 0 if
// one existed.
func (r *Registry) AddMessage(callID string, role Role, content string, opts *MessageOptions) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sessions[callID]
	if !ok {
		r.logger.Warn("message for unknown session", "call_id", callID, "role", role)
		return false
	}

	msg := Message{Role: role, Content: content, Timestamp: r.now()}
	if opts != nil {
		msg.ToolCallID = opts.ToolCallID
		msg.ToolName = opts.ToolName
	}
	cs.history = append(cs.history, msg)

	if len(cs.history) > MaxHistory {
		var system *Message
		if cs.history[0].Role == RoleSystem {
			first := cs.history[0]
			system = &first
		}
		cs.history = cs.history[len(cs.history)-(MaxHistory-1):]
		if system != nil && cs.history[0].Role != RoleSystem {
			cs.history = append([]Message{*system}, cs.history...)
		}
	}

	cs.lastActivity = msg.Timestamp
	return true
}

// History returns a copy of the session's conversation history. A
// missing session yields an empty, non-nil slice.
func (r *Registry) History(callID string) []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs, ok := r.sessions[callID]
	if !ok {
		return []Message{}
	}
	history := make([]Message, len(cs.history))
	copy(history, cs.history)
	return history
}

// SetPlaying records whether assistant audio is currently playing on
// the call.
func (r *Registry) SetPlaying(callID string, playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sessions[callID]
	if !ok {
		return
	}
	cs.isPlaying = playing
	cs.lastActivity = r.now()
}

// SetSpeaking records whether the caller is currently speaking.
func (r *Registry) SetSpeaking(callID string, speaking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sessions[callID]
	if !ok {
		return
	}
	cs.isSpeaking = speaking
	cs.lastActivity = r.now()
}

// RequestInterrupt flags the session for interruption, but only while
// assistant audio is playing. It reports whether the flag was set.
func (r *Registry) RequestInterrupt(callID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sessions[callID]
	if !ok || !cs.isPlaying {
		return false
	}
	cs.interruptRequested = true
	cs.lastActivity = r.now()
	return true
}

// ClearInterrupt unconditionally clears the interrupt flag.
func (r *Registry) ClearInterrupt(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sessions[callID]
	if !ok {
		return
	}
	cs.interruptRequested = false
}

// End removes the session from the registry and returns its final
// snapshot for call-record emission.
func (r *Registry) End(callID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sessions[callID]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, callID)
	return cs.snapshot(), true
}

// All returns snapshots of every active session, in no particular
// order.
func (r *Registry) All() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.sessions))
	for _, cs := range r.sessions {
		out = append(out, cs.snapshot())
	}
	return out
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CleanupStale evicts every session whose last activity is older than
// maxAge and returns how many were removed. maxAge <= 0 uses
// DefaultMaxAge. Stale sessions usually mean the telephony leg died
// without a clean call.end.
func (r *Registry) CleanupStale(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	evicted := 0
	for id, cs := range r.sessions {
		if cs.lastActivity.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
			r.logger.Warn("evicted stale session",
				"call_id", id,
				"last_activity", cs.lastActivity,
				"max_age", maxAge,
			)
		}
	}
	return evicted
}
