// Package protocol defines the JSON wire envelope for the
// /v1/calls/stream WebSocket. Control messages are text frames; caller
// audio travels as binary frames outside this package.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const ProtocolVersion1 = "1"

// Inbound message types (telephony adapter to gateway).
const (
	TypeCallStart        = "call.start"
	TypeTranscriptDelta  = "transcript.delta"
	TypeSilence          = "silence"
	TypePlaybackAudio    = "playback.audio"
	TypeInterruptRequest = "interrupt.request"
	TypeCallEnd          = "call.end"
)

// Outbound message types (gateway to telephony adapter).
const (
	TypeCallStarted   = "call.started"
	TypeTurnCommitted = "turn.committed"
	TypeAudioDelta    = "audio.delta"
	TypeAudioCleared  = "audio.cleared"
	TypeCallEnded     = "call.ended"
	TypeError         = "error"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// CallStart opens a call. It must be the first text frame on the
// socket.
type CallStart struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CallID          string `json:"call_id"`
	TenantID        string `json:"tenant_id"`
	CallerPhone     string `json:"caller_phone,omitempty"`
	SystemPrompt    string `json:"system_prompt,omitempty"`
}

// TranscriptDelta carries an STT result for the current turn.
type TranscriptDelta struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// Silence signals that the caller has stopped speaking. The adapter
// repeats it while silence continues; the gateway commits the turn once
// the silence window is long enough.
type Silence struct {
	Type string `json:"type"`
}

// PlaybackAudio enqueues a chunk of assistant audio for the call.
type PlaybackAudio struct {
	Type       string `json:"type"`
	Audio      []byte `json:"audio"`
	PlaybackID string `json:"playback_id,omitempty"`
}

// InterruptRequest asks the gateway to stop assistant playback.
type InterruptRequest struct {
	Type string `json:"type"`
}

// CallEnd closes the call cleanly.
type CallEnd struct {
	Type string `json:"type"`
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses one inbound text frame into its typed
// message.
func DecodeClientMessage(raw []byte) (any, *DecodeError) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, badRequest("invalid json", "")
	}

	switch env.Type {
	case TypeCallStart:
		var m CallStart
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, badRequest("invalid call.start", "")
		}
		if strings.TrimSpace(m.ProtocolVersion) != ProtocolVersion1 {
			return nil, badRequest("unsupported protocol_version", "protocol_version")
		}
		if strings.TrimSpace(m.CallID) == "" {
			return nil, badRequest("call_id is required", "call_id")
		}
		if strings.TrimSpace(m.TenantID) == "" {
			return nil, badRequest("tenant_id is required", "tenant_id")
		}
		return m, nil
	case TypeTranscriptDelta:
		var m TranscriptDelta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, badRequest("invalid transcript.delta", "")
		}
		return m, nil
	case TypeSilence:
		var m Silence
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, badRequest("invalid silence", "")
		}
		return m, nil
	case TypePlaybackAudio:
		var m PlaybackAudio
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, badRequest("invalid playback.audio", "audio")
		}
		if len(m.Audio) == 0 {
			return nil, badRequest("audio is required", "audio")
		}
		return m, nil
	case TypeInterruptRequest:
		var m InterruptRequest
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, badRequest("invalid interrupt.request", "")
		}
		return m, nil
	case TypeCallEnd:
		var m CallEnd
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, badRequest("invalid call.end", "")
		}
		return m, nil
	case "":
		return nil, badRequest("type is required", "type")
	default:
		return nil, badRequest(fmt.Sprintf("unknown type %q", env.Type), "type")
	}
}

// CallStarted acknowledges call.start.
type CallStarted struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
}

// TurnCommitted reports a committed caller turn and its routing
// decision.
type TurnCommitted struct {
	Type       string   `json:"type"`
	Transcript string   `json:"transcript"`
	Score      int      `json:"score"`
	Triggers   []string `json:"triggers,omitempty"`
	NeedsTool  bool     `json:"needs_tool"`
	Intent     string   `json:"intent"`
}

// AudioDelta carries the next queued assistant audio chunk.
type AudioDelta struct {
	Type       string `json:"type"`
	PlaybackID string `json:"playback_id"`
	Audio      []byte `json:"audio"`
}

// AudioCleared reports that an interrupt flushed the audio queue.
type AudioCleared struct {
	Type       string `json:"type"`
	PlaybackID string `json:"playback_id,omitempty"`
}

// CallEnded carries the final call record summary.
type CallEnded struct {
	Type       string `json:"type"`
	CallID     string `json:"call_id"`
	DurationMS int64  `json:"duration_ms"`
	Turns      int    `json:"turns"`
}

// ErrorMessage reports a protocol or session error to the adapter.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func NewCallStarted(callID string) CallStarted {
	return CallStarted{Type: TypeCallStarted, CallID: callID}
}

func NewTurnCommitted(transcript string, score int, triggers []string, needsTool bool, intent string) TurnCommitted {
	return TurnCommitted{
		Type:       TypeTurnCommitted,
		Transcript: transcript,
		Score:      score,
		Triggers:   triggers,
		NeedsTool:  needsTool,
		Intent:     intent,
	}
}

func NewAudioDelta(playbackID string, audio []byte) AudioDelta {
	return AudioDelta{Type: TypeAudioDelta, PlaybackID: playbackID, Audio: audio}
}

func NewAudioCleared(playbackID string) AudioCleared {
	return AudioCleared{Type: TypeAudioCleared, PlaybackID: playbackID}
}

func NewCallEnded(callID string, durationMS int64, turns int) CallEnded {
	return CallEnded{Type: TypeCallEnded, CallID: callID, DurationMS: durationMS, Turns: turns}
}

func NewError(code, message, param string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message, Param: param}
}
