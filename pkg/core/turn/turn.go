// Package turn tracks the in-memory state of a single conversational
// turn within a live call: transcript accumulation (interim vs. final),
// silence detection, and the FIFO queue of synthesized audio awaiting
// playback.
//
// A State is owned exclusively by the call-handling pipeline for one
// call. Methods mutate the receiver in place under an internal lock;
// callers must treat the same State as authoritative for the whole turn
// and must not share it across calls.
package turn

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSilenceThreshold is the silence duration after which an
// utterance is considered complete.
const DefaultSilenceThreshold = 1000 * time.Millisecond

// State holds the mutable state of one conversational turn.
// The zero value is not usable; create instances with New.
type State struct {
	mu sync.Mutex

	// transcriptBuffer accumulates finalized transcript segments,
	// space-joined in arrival order.
	transcriptBuffer string

	// interim is the latest not-yet-finalized partial transcript. It is
	// replaced wholesale on every interim update and cleared when a
	// final segment arrives.
	interim string

	responsePending    bool
	responseInProgress bool

	// audioQueue is the FIFO of synthesized speech chunks awaiting
	// playback, consumed head-first.
	audioQueue [][]byte

	// currentPlaybackID correlates interrupt and cancel signals with the
	// in-flight playback unit.
	currentPlaybackID string

	// silenceStart is set when silence is first observed after speech
	// and zeroed whenever new transcript text arrives.
	silenceStart time.Time

	// lastTranscript is refreshed on every transcript event; staleness
	// and timeout logic outside this package reads it.
	lastTranscript time.Time

	now func() time.Time
}

// New returns a fresh turn state with empty buffers and the transcript
// timestamp set to now.
func New() *State {
	s := &State{now: time.Now}
	s.lastTranscript = s.now()
	return s
}

// UpdateTranscript absorbs one transcript event. Final text is appended
// to the transcript buffer (space-joined when the buffer is non-empty)
// and clears the interim transcript; interim text replaces the previous
// interim wholesale. Either way the transcript timestamp is refreshed
// and any pending silence window is cancelled, since new speech means
// the caller is not done.
func (s *State) UpdateTranscript(text string, isFinal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isFinal {
		if s.transcriptBuffer != "" {
			s.transcriptBuffer += " " + text
		} else {
			s.transcriptBuffer = text
		}
		s.interim = ""
	} else {
		s.interim = text
	}

	s.lastTranscript = s.now()
	s.silenceStart = time.Time{}
}

// CompleteTranscript returns the finalized transcript joined with the
// current interim transcript, if any. Pure read.
func (s *State) CompleteTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interim == "" {
		return s.transcriptBuffer
	}
	if s.transcriptBuffer == "" {
		return s.interim
	}
	return s.transcriptBuffer + " " + s.interim
}

// ClearTranscript empties both transcript buffers. Called after a
// finalized utterance has been handed off for processing.
func (s *State) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcriptBuffer = ""
	s.interim = ""
}

// StartSilence marks the beginning of a silence window. Idempotent: the
// first call wins, so repeated silence-detection polling does not reset
// the timer.
func (s *State) StartSilence() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.silenceStart.IsZero() {
		s.silenceStart = s.now()
	}
}

// SilenceLongEnough reports whether at least threshold of silence has
// elapsed. Returns false when no silence window is in progress. A
// threshold <= 0 means DefaultSilenceThreshold.
func (s *State) SilenceLongEnough(threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultSilenceThreshold
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.silenceStart.IsZero() {
		return false
	}
	return s.now().Sub(s.silenceStart) >= threshold
}

// SilenceInProgress reports whether a silence window has been started
// and not yet cancelled by new transcript text.
func (s *State) SilenceInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.silenceStart.IsZero()
}

// LastTranscriptTime returns the time of the most recent transcript
// event.
func (s *State) LastTranscriptTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTranscript
}

// QueueAudio appends a synthesized audio chunk to the playback queue.
func (s *State) QueueAudio(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioQueue = append(s.audioQueue, chunk)
}

// NextAudio pops the head of the playback queue. The second return is
// false when the queue is empty; an empty queue is not an error.
func (s *State) NextAudio() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.audioQueue) == 0 {
		return nil, false
	}
	head := s.audioQueue[0]
	s.audioQueue = s.audioQueue[1:]
	return head, true
}

// HasQueuedAudio reports whether any audio chunks await playback. The
// playback driver polls this to decide whether to keep pulling chunks.
func (s *State) HasQueuedAudio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audioQueue) > 0
}

// ClearAudioQueue drops all queued audio and forgets the current
// playback ID. This is the barge-in primitive and is valid in any
// state.
func (s *State) ClearAudioQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioQueue = nil
	s.currentPlaybackID = ""
}

// BeginPlayback assigns the playback ID used to correlate interrupt and
// cancel signals with the in-flight playback unit. An empty id asks for
// a generated one. Returns the ID in effect.
func (s *State) BeginPlayback(id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPlaybackID = id
	return id
}

// PlaybackID returns the current playback correlation ID, or "" when no
// playback is in flight.
func (s *State) PlaybackID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPlaybackID
}

// SetResponsePending records that a reply has been requested but
// generation has not started.
func (s *State) SetResponsePending(pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responsePending = pending
}

// ResponsePending reports whether a reply has been requested.
func (s *State) ResponsePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responsePending
}

// SetResponseInProgress records whether a reply is currently being
// generated or played.
func (s *State) SetResponseInProgress(inProgress bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseInProgress = inProgress
}

// ResponseInProgress reports whether a reply is being generated or
// played.
func (s *State) ResponseInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responseInProgress
}
