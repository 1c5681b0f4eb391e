package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewValidates(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{ChatID: 1}); err == nil {
		t.Fatal("expected error without token")
	}
	if _, err := New(Config{Token: "123:abc"}); err == nil {
		t.Fatal("expected error without chat id")
	}
}

func TestSendAlertPostsToChat(t *testing.T) {
	t.Parallel()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"group"},"text":"x"}}`)
	}))
	defer srv.Close()

	a, err := New(Config{Token: "123:abc", ChatID: 42, APIURL: srv.URL})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := a.SendAlert(context.Background(), "[ERROR] timetable save failed"); err != nil {
		t.Fatalf("SendAlert error: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "[ERROR] timetable save failed" {
		t.Fatalf("unexpected request: %v", got)
	}
}
