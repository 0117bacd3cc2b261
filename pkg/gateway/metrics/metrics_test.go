package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("metrics endpoint status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCallLifecycleMetrics(t *testing.T) {
	m := New("test")

	m.RecordCallStart()
	m.RecordCallStart()
	m.RecordCallEnd("completed", 42*time.Second)

	body := scrape(t, m)
	if !strings.Contains(body, "test_calls_active 1") {
		t.Errorf("calls_active not at 1:\n%s", body)
	}
	if !strings.Contains(body, `test_calls_total{status="completed"} 1`) {
		t.Errorf("calls_total missing:\n%s", body)
	}
}

func TestRoutingDecisionMetrics(t *testing.T) {
	m := New("test")

	m.RecordTurn(true, "booking")
	m.RecordTurn(false, "general")
	m.RecordTurn(true, "booking")

	body := scrape(t, m)
	if !strings.Contains(body, `test_routing_decisions_total{decision="tool_call",intent="booking"} 2`) {
		t.Errorf("tool_call decisions missing:\n%s", body)
	}
	if !strings.Contains(body, `test_routing_decisions_total{decision="chat",intent="general"} 1`) {
		t.Errorf("chat decisions missing:\n%s", body)
	}
	if !strings.Contains(body, "test_turns_total 3") {
		t.Errorf("turns_total missing:\n%s", body)
	}
}

func TestAuxiliaryMetrics(t *testing.T) {
	m := New("")

	m.RecordInterrupt("accepted")
	m.RecordEvictions(3)
	m.RecordEvictions(0)
	m.RecordAudio("in", 512)
	m.RecordAudio("out", 0)

	body := scrape(t, m)
	if !strings.Contains(body, `voicecore_interrupts_total{outcome="accepted"} 1`) {
		t.Errorf("interrupts missing:\n%s", body)
	}
	if !strings.Contains(body, "voicecore_sessions_evicted_total 3") {
		t.Errorf("evictions missing:\n%s", body)
	}
	if !strings.Contains(body, `voicecore_audio_bytes_total{direction="in"} 512`) {
		t.Errorf("audio bytes missing:\n%s", body)
	}
	if strings.Contains(body, `direction="out"`) {
		t.Errorf("zero-byte audio should not create a series:\n%s", body)
	}
}
