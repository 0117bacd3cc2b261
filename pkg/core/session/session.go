// Package session maintains the process-wide registry of active calls:
// per-call conversation history with a bounded cap, playback and
// interrupt coordination flags, and staleness eviction.
//
// The registry is an injected, explicitly owned store. Create one with
// NewRegistry and pass it to whatever needs it; there is no package
// singleton.
package session

import "time"

// MaxHistory caps a session's conversation history. When an append
// exceeds the cap, the oldest non-system entries are dropped and a
// leading system message, if one existed, is preserved at index 0.
const MaxHistory = 20

// DefaultMaxAge is the inactivity age after which a session is eligible
// for staleness eviction.
const DefaultMaxAge = 30 * time.Minute

// Role tags a conversation message with its speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a call's conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// ToolCallID and ToolName carry tool-call metadata for RoleTool
	// entries and assistant entries that requested a tool.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}

// MessageOptions carries optional metadata for AddMessage.
type MessageOptions struct {
	ToolCallID string
	ToolName   string
}

// Session is a point-in-time snapshot of one active call. Snapshots are
// copies: mutating one has no effect on the registry.
type Session struct {
	CallID      string `json:"call_id"`
	TenantID    string `json:"tenant_id"`
	CallerPhone string `json:"caller_phone,omitempty"`

	History []Message `json:"history"`

	IsPlaying          bool `json:"is_playing"`
	IsSpeaking         bool `json:"is_speaking"`
	InterruptRequested bool `json:"interrupt_requested"`

	StartTime        time.Time `json:"start_time"`
	LastActivityTime time.Time `json:"last_activity_time"`
}

// Duration returns how long the call has been active, relative to the
// session's last recorded activity.
func (s Session) Duration() time.Duration {
	return s.LastActivityTime.Sub(s.StartTime)
}

// Turns counts the user messages in the session history. Callers ending
// a session typically emit this alongside Duration.
func (s Session) Turns() int {
	n := 0
	for _, m := range s.History {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// Update carries partial field updates for Registry.Update. Nil fields
// are left unchanged.
type Update struct {
	TenantID    *string
	CallerPhone *string
}

// callSession is the registry-internal mutable record. All access goes
// through the registry lock.
type callSession struct {
	callID      string
	tenantID    string
	callerPhone string

	history []Message

	isPlaying          bool
	isSpeaking         bool
	interruptRequested bool

	startTime    time.Time
	lastActivity time.Time
}

// snapshot copies the record into an exported Session.
func (c *callSession) snapshot() Session {
	history := make([]Message, len(c.history))
	copy(history, c.history)
	return Session{
		CallID:             c.callID,
		TenantID:           c.tenantID,
		CallerPhone:        c.callerPhone,
		History:            history,
		IsPlaying:          c.isPlaying,
		IsSpeaking:         c.isSpeaking,
		InterruptRequested: c.interruptRequested,
		StartTime:          c.startTime,
		LastActivityTime:   c.lastActivity,
	}
}
