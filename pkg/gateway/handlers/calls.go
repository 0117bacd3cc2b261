package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontdesk-ai/voicecore/pkg/core/intent"
	"github.com/frontdesk-ai/voicecore/pkg/core/session"
	"github.com/frontdesk-ai/voicecore/pkg/core/turn"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/config"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/metrics"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/mw"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/protocol"
)

// CallsHandler serves /v1/calls/stream. One WebSocket connection is one
// call: the telephony adapter streams control events and caller audio
// in, and receives routing decisions and queued assistant audio back.
type CallsHandler struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *session.Registry
	Router   *intent.Router
	Metrics  *metrics.Metrics
}

func (h CallsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.MaxJSONMessageBytes > 0 {
		conn.SetReadLimit(h.Config.MaxJSONMessageBytes)
	}

	reqID, _ := mw.RequestIDFrom(r.Context())
	logger = logger.With("request_id", reqID)

	handshakeTimeout := h.Config.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 5 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	messageType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		h.writeError(conn, "bad_request", "failed to read call.start", "")
		return
	}
	if messageType != websocket.TextMessage {
		h.writeError(conn, "bad_request", "first frame must be call.start", "")
		return
	}
	decoded, derr := protocol.DecodeClientMessage(firstFrame)
	if derr != nil {
		h.writeError(conn, derr.Code, derr.Message, derr.Param)
		return
	}
	start, ok := decoded.(protocol.CallStart)
	if !ok {
		h.writeError(conn, "bad_request", "first frame must be call.start", "")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	h.serveCall(conn, logger, start)
}

// serveCall owns the call loop. The turn state is exclusive to this
// goroutine; cross-call coordination goes through the registry.
func (h CallsHandler) serveCall(conn *websocket.Conn, logger *slog.Logger, start protocol.CallStart) {
	callID := start.CallID
	logger = logger.With("call_id", callID, "tenant_id", start.TenantID)

	h.Registry.Create(callID, start.TenantID, start.CallerPhone)
	if strings.TrimSpace(start.SystemPrompt) != "" {
		h.Registry.AddMessage(callID, session.RoleSystem, start.SystemPrompt, nil)
	}
	state := turn.New()

	h.Metrics.RecordCallStart()
	logger.Info("call started", "caller_phone", start.CallerPhone)
	if err := h.writeJSON(conn, protocol.NewCallStarted(callID)); err != nil {
		h.abortCall(logger, callID)
		return
	}

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			h.abortCall(logger, callID)
			return
		}

		if messageType == websocket.BinaryMessage {
			if h.Config.MaxAudioFrameBytes > 0 && len(frame) > h.Config.MaxAudioFrameBytes {
				h.writeError(conn, "bad_request", "audio frame too large", "")
				h.abortCall(logger, callID)
				return
			}
			h.Metrics.RecordAudio("in", len(frame))
			continue
		}
		if messageType != websocket.TextMessage {
			continue
		}

		decoded, derr := protocol.DecodeClientMessage(frame)
		if derr != nil {
			if werr := h.writeError(conn, derr.Code, derr.Message, derr.Param); werr != nil {
				h.abortCall(logger, callID)
				return
			}
			continue
		}

		switch msg := decoded.(type) {
		case protocol.CallStart:
			if werr := h.writeError(conn, "bad_request", "call already started", "type"); werr != nil {
				h.abortCall(logger, callID)
				return
			}
		case protocol.TranscriptDelta:
			h.handleTranscript(logger, callID, state, msg)
		case protocol.Silence:
			if err := h.handleSilence(conn, logger, callID, state); err != nil {
				h.abortCall(logger, callID)
				return
			}
		case protocol.PlaybackAudio:
			if err := h.handlePlaybackAudio(conn, callID, state, msg); err != nil {
				h.abortCall(logger, callID)
				return
			}
		case protocol.InterruptRequest:
			if err := h.handleInterrupt(conn, logger, callID, state); err != nil {
				h.abortCall(logger, callID)
				return
			}
		case protocol.CallEnd:
			h.endCall(conn, logger, callID)
			return
		}
	}
}

func (h CallsHandler) handleTranscript(logger *slog.Logger, callID string, state *turn.State, msg protocol.TranscriptDelta) {
	// Bare acknowledgements during assistant playback are not barge-ins;
	// they must not reset the silence window or land in the transcript.
	if msg.IsFinal && intent.IsBackchannel(msg.Text) {
		if sess, ok := h.Registry.Get(callID); ok && sess.IsPlaying {
			logger.Debug("backchannel ignored", "text", msg.Text)
			return
		}
	}
	state.UpdateTranscript(msg.Text, msg.IsFinal)
	h.Registry.SetSpeaking(callID, true)
}

func (h CallsHandler) handleSilence(conn *websocket.Conn, logger *slog.Logger, callID string, state *turn.State) error {
	h.Registry.SetSpeaking(callID, false)
	state.StartSilence()
	if !state.SilenceLongEnough(h.Config.SilenceThreshold) {
		return nil
	}

	transcript := state.CompleteTranscript()
	if strings.TrimSpace(transcript) == "" {
		return nil
	}

	score := h.Router.ScoreIntent(transcript)
	needsTool := score.Score >= intent.ToolCallThreshold
	label := h.Router.DetectIntent(transcript)

	h.Registry.AddMessage(callID, session.RoleUser, transcript, nil)
	h.Metrics.RecordTurn(needsTool, string(label))
	logger.Info("turn committed",
		"transcript_len", len(transcript),
		"score", score.Score,
		"needs_tool", needsTool,
		"intent", label,
	)

	state.ClearTranscript()
	state.SetResponsePending(true)
	return h.writeJSON(conn, protocol.NewTurnCommitted(transcript, score.Score, score.Triggers, needsTool, string(label)))
}

func (h CallsHandler) handlePlaybackAudio(conn *websocket.Conn, callID string, state *turn.State, msg protocol.PlaybackAudio) error {
	state.QueueAudio(msg.Audio)
	if state.PlaybackID() == "" {
		state.BeginPlayback(msg.PlaybackID)
	}
	state.SetResponsePending(false)
	state.SetResponseInProgress(true)
	h.Registry.SetPlaying(callID, true)

	// Drain the queue back out in FIFO order. With a live socket the
	// queue stays shallow; it absorbs bursts when writes stall.
	for {
		chunk, ok := state.NextAudio()
		if !ok {
			return nil
		}
		h.Metrics.RecordAudio("out", len(chunk))
		if err := h.writeJSON(conn, protocol.NewAudioDelta(state.PlaybackID(), chunk)); err != nil {
			return err
		}
	}
}

func (h CallsHandler) handleInterrupt(conn *websocket.Conn, logger *slog.Logger, callID string, state *turn.State) error {
	if !h.Registry.RequestInterrupt(callID) {
		h.Metrics.RecordInterrupt("ignored")
		logger.Debug("interrupt ignored, nothing playing")
		return nil
	}

	playbackID := state.PlaybackID()
	state.ClearAudioQueue()
	state.SetResponseInProgress(false)
	h.Registry.SetPlaying(callID, false)
	h.Registry.ClearInterrupt(callID)
	h.Metrics.RecordInterrupt("accepted")
	logger.Info("playback interrupted", "playback_id", playbackID)
	return h.writeJSON(conn, protocol.NewAudioCleared(playbackID))
}

func (h CallsHandler) endCall(conn *websocket.Conn, logger *slog.Logger, callID string) {
	record, ok := h.Registry.End(callID)
	if !ok {
		h.writeError(conn, "not_found", "session already ended", "call_id")
		return
	}
	h.Metrics.RecordCallEnd("completed", record.Duration())
	logger.Info("call ended",
		"duration_ms", record.Duration().Milliseconds(),
		"turns", record.Turns(),
	)
	_ = h.writeJSON(conn, protocol.NewCallEnded(callID, record.Duration().Milliseconds(), record.Turns()))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
		time.Now().Add(h.Config.WSWriteTimeout))
}

// abortCall tears down a session whose socket died without call.end.
func (h CallsHandler) abortCall(logger *slog.Logger, callID string) {
	record, ok := h.Registry.End(callID)
	if !ok {
		return
	}
	h.Metrics.RecordCallEnd("aborted", record.Duration())
	logger.Warn("call aborted", "duration_ms", record.Duration().Milliseconds())
}

func (h CallsHandler) writeJSON(conn *websocket.Conn, v any) error {
	if h.Config.WSWriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(h.Config.WSWriteTimeout))
	}
	return conn.WriteJSON(v)
}

func (h CallsHandler) writeError(conn *websocket.Conn, code, message, param string) error {
	return h.writeJSON(conn, protocol.NewError(code, message, param))
}
