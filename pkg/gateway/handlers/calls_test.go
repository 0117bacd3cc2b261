package handlers

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontdesk-ai/voicecore/pkg/core/intent"
	"github.com/frontdesk-ai/voicecore/pkg/core/session"
	"github.com/frontdesk-ai/voicecore/pkg/core/turn"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/config"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/metrics"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/protocol"
)

func testHandler() CallsHandler {
	return CallsHandler{
		Config: config.Config{
			SilenceThreshold:    20 * time.Millisecond,
			MaxAudioFrameBytes:  8192,
			MaxJSONMessageBytes: 64 * 1024,
			WSWriteTimeout:      time.Second,
			HandshakeTimeout:    time.Second,
		},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry: session.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil))),
		Router:   intent.NewRouter(),
		Metrics:  metrics.New("test"),
	}
}

func dialTest(t *testing.T, h CallsHandler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func startCall(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	sendJSON(t, conn, `{"type":"call.start","protocol_version":"1","call_id":"c1","tenant_id":"t1","caller_phone":"+15550100"}`)
	ack := readMessage(t, conn)
	if ack["type"] != "call.started" || ack["call_id"] != "c1" {
		t.Fatalf("handshake ack: %v", ack)
	}
}

func TestCallStreamCommitsTurn(t *testing.T) {
	h := testHandler()
	conn := dialTest(t, h)
	startCall(t, conn)

	sendJSON(t, conn, `{"type":"transcript.delta","text":"I want to book a table","is_final":true}`)
	sendJSON(t, conn, `{"type":"transcript.delta","text":"for tomorrow night","is_final":true}`)

	sendJSON(t, conn, `{"type":"silence"}`)
	time.Sleep(40 * time.Millisecond)
	sendJSON(t, conn, `{"type":"silence"}`)

	committed := readMessage(t, conn)
	if committed["type"] != "turn.committed" {
		t.Fatalf("expected turn.committed, got %v", committed)
	}
	if committed["transcript"] != "I want to book a table for tomorrow night" {
		t.Fatalf("transcript = %v", committed["transcript"])
	}
	if committed["needs_tool"] != true {
		t.Fatalf("needs_tool = %v", committed["needs_tool"])
	}
	if committed["intent"] != "booking" {
		t.Fatalf("intent = %v", committed["intent"])
	}

	history := h.Registry.History("c1")
	if len(history) != 1 || history[0].Role != session.RoleUser {
		t.Fatalf("history = %+v", history)
	}

	sendJSON(t, conn, `{"type":"call.end"}`)
	ended := readMessage(t, conn)
	if ended["type"] != "call.ended" {
		t.Fatalf("expected call.ended, got %v", ended)
	}
	if ended["turns"] != float64(1) {
		t.Fatalf("turns = %v", ended["turns"])
	}
	if h.Registry.Count() != 0 {
		t.Fatal("session should be gone after call.end")
	}
}

func TestCallStreamShortSilenceDoesNotCommit(t *testing.T) {
	h := testHandler()
	conn := dialTest(t, h)
	startCall(t, conn)

	sendJSON(t, conn, `{"type":"transcript.delta","text":"hello there","is_final":true}`)
	sendJSON(t, conn, `{"type":"silence"}`)

	// The first silence event opens the window; nothing may commit yet.
	sendJSON(t, conn, `{"type":"call.end"}`)
	ended := readMessage(t, conn)
	if ended["type"] != "call.ended" {
		t.Fatalf("expected call.ended with no turn.committed first, got %v", ended)
	}
}

func TestCallStreamPlaybackAndInterrupt(t *testing.T) {
	h := testHandler()
	conn := dialTest(t, h)
	startCall(t, conn)

	sendJSON(t, conn, `{"type":"playback.audio","audio":"AQID"}`)
	delta := readMessage(t, conn)
	if delta["type"] != "audio.delta" {
		t.Fatalf("expected audio.delta, got %v", delta)
	}
	playbackID, _ := delta["playback_id"].(string)
	if playbackID == "" {
		t.Fatal("audio.delta must carry a playback id")
	}

	sess, _ := h.Registry.Get("c1")
	if !sess.IsPlaying {
		t.Fatal("session should be marked playing after playback.audio")
	}

	sendJSON(t, conn, `{"type":"interrupt.request"}`)
	cleared := readMessage(t, conn)
	if cleared["type"] != "audio.cleared" {
		t.Fatalf("expected audio.cleared, got %v", cleared)
	}
	if cleared["playback_id"] != playbackID {
		t.Fatalf("cleared playback_id = %v, want %v", cleared["playback_id"], playbackID)
	}

	sess, _ = h.Registry.Get("c1")
	if sess.IsPlaying || sess.InterruptRequested {
		t.Fatalf("flags after interrupt: %+v", sess)
	}
}

func TestCallStreamInterruptIgnoredWhenIdle(t *testing.T) {
	h := testHandler()
	conn := dialTest(t, h)
	startCall(t, conn)

	sendJSON(t, conn, `{"type":"interrupt.request"}`)
	sendJSON(t, conn, `{"type":"call.end"}`)

	// No audio.cleared: the next frame must already be call.ended.
	msg := readMessage(t, conn)
	if msg["type"] != "call.ended" {
		t.Fatalf("expected call.ended, got %v", msg)
	}
}

func TestCallStreamRejectsBadFirstFrame(t *testing.T) {
	h := testHandler()
	conn := dialTest(t, h)

	sendJSON(t, conn, `{"type":"silence"}`)
	msg := readMessage(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error, got %v", msg)
	}
	if h.Registry.Count() != 0 {
		t.Fatal("no session may be created for a rejected handshake")
	}
}

func TestCallStreamAbortCleansUp(t *testing.T) {
	h := testHandler()
	conn := dialTest(t, h)
	startCall(t, conn)

	conn.Close()

	deadline := time.After(2 * time.Second)
	for h.Registry.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("session not cleaned up after socket drop")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBackchannelIgnoredWhilePlaying(t *testing.T) {
	h := testHandler()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h.Registry.Create("c1", "t1", "")
	h.Registry.SetPlaying("c1", true)
	state := turn.New()

	h.handleTranscript(logger, "c1", state, protocol.TranscriptDelta{Text: "uh huh", IsFinal: true})
	if got := state.CompleteTranscript(); got != "" {
		t.Fatalf("backchannel reached the transcript: %q", got)
	}

	// The same text commits normally once playback stops.
	h.Registry.SetPlaying("c1", false)
	h.handleTranscript(logger, "c1", state, protocol.TranscriptDelta{Text: "uh huh", IsFinal: true})
	if got := state.CompleteTranscript(); got != "uh huh" {
		t.Fatalf("transcript = %q", got)
	}

	// A real barge-in is never swallowed, playing or not.
	h.Registry.SetPlaying("c1", true)
	h.handleTranscript(logger, "c1", state, protocol.TranscriptDelta{Text: "stop, transfer me to a person", IsFinal: true})
	if got := state.CompleteTranscript(); !strings.Contains(got, "transfer me") {
		t.Fatalf("barge-in lost: %q", got)
	}
}
