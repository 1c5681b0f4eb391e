package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type chanSender chan string

func (c chanSender) SendAlert(_ context.Context, text string) error {
	c <- text
	return nil
}

func TestNewWriterFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "scheduler"))
	log.Trace("hidden")
	log.Warn("reminder not sent", String("recipient", "acme"), Uint64("reminder", 3), Err(errors.New("dial tcp: refused")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want one line, got %q", buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if m["comp"] != "scheduler" || m["recipient"] != "acme" || m["reminder"] != float64(3) || m["level"] != "warn" {
		t.Fatalf("unexpected fields: %v", m)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" Debug ": zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"loud":    zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in, zerolog.InfoLevel); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatAlert(t *testing.T) {
	t.Parallel()
	got := formatAlert([]byte(`{"level":"error","time":"x","message":"timetable save failed","path":"time.json","err":"disk full"}`))
	want := "[ERROR] timetable save failed\n- err=disk full\n- path=time.json"
	if got != want {
		t.Fatalf("formatAlert = %q, want %q", got, want)
	}
	if got := formatAlert([]byte("plain text\n")); got != "plain text" {
		t.Fatalf("formatAlert(non-JSON) = %q", got)
	}
}

func TestAlertSinkHonorsMinLevel(t *testing.T) {
	t.Parallel()
	sent := make(chanSender, 4)
	sink := newAlertSink(sent)
	if !sink.configure(AlertConfig{Enabled: true, MinLevel: "error", RatePerSec: 10}) {
		t.Fatal("configure returned false with a sender")
	}
	defer sink.stop()

	_, _ = sink.WriteLevel(zerolog.WarnLevel, []byte(`{"level":"warn","message":"ignored"}`))
	_, _ = sink.WriteLevel(zerolog.ErrorLevel, []byte(`{"level":"error","message":"forwarded"}`))

	select {
	case msg := <-sent:
		if msg != "[ERROR] forwarded" {
			t.Fatalf("alert = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no alert delivered")
	}
	select {
	case msg := <-sent:
		t.Fatalf("unexpected second alert %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAlertSinkWithoutSender(t *testing.T) {
	t.Parallel()
	sink := newAlertSink(nil)
	if sink.configure(AlertConfig{Enabled: true}) {
		t.Fatal("configure must fail without a sender")
	}
	if n, err := sink.WriteLevel(zerolog.ErrorLevel, []byte("x")); n != 1 || err != nil {
		t.Fatalf("WriteLevel = %d, %v", n, err)
	}
}

func TestConsoleKeepsOffStdout(t *testing.T) {
	t.Parallel()
	if (Config{}).consoleOut() != os.Stderr {
		t.Fatal("console output must default to stderr")
	}

	var buf bytes.Buffer
	svc, log := New(Config{Level: "info", Console: true, ConsoleOut: &buf}, nil)
	defer func() { _ = svc.Close() }()
	log.With(String("comp", "app")).Info("app started")
	log.Debug("hidden")
	if !strings.Contains(buf.String(), "app started") || strings.Contains(buf.String(), "hidden") {
		t.Fatalf("console output = %q", buf.String())
	}

	buf.Reset()
	svc.Apply(Config{Level: "debug", ConsoleOut: &buf})
	log.Debug("after apply")
	if !strings.Contains(buf.String(), "after apply") {
		t.Fatalf("fallback console must follow ConsoleOut, got %q", buf.String())
	}
}
