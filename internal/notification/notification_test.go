package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerNotifierRedactsOTP(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := n.Send(context.Background(), Message{Kind: KindOTP, Destination: "9876543210", Body: "123456"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(buf.String(), "123456") {
		t.Fatalf("otp leaked into log: %s", buf.String())
	}

	buf.Reset()
	n.ShowSecrets = true
	_ = n.Send(context.Background(), Message{Kind: KindOTP, Destination: "9876543210", Body: "123456"})
	if !strings.Contains(buf.String(), "123456") {
		t.Fatalf("expected otp in dev log: %s", buf.String())
	}
}

func TestLoggerNotifierRedactsSecretBodies(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	_ = n.Send(context.Background(), Message{Kind: KindServiceRequest, Destination: "9876543210", Body: "happy code 424242", Secret: true})
	if strings.Contains(buf.String(), "424242") {
		t.Fatalf("happy code leaked into log: %s", buf.String())
	}

	buf.Reset()
	_ = n.Send(context.Background(), Message{Kind: KindServiceRequest, Destination: "9876543210", Body: "SR-0001 assigned"})
	if !strings.Contains(buf.String(), "SR-0001 assigned") {
		t.Fatalf("expected plain body in log: %s", buf.String())
	}
}

func TestSMSNotifierPostsOTPRoute(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("missing api key")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSMSNotifier("key", srv.URL, "FLDOPS")
	if err := n.Send(context.Background(), Message{Kind: KindOTP, Destination: "9876543210", Body: "654321"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["route"] != "otp" || got["variables"] != "654321" || got["numbers"] != "9876543210" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSMSNotifierReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewSMSNotifier("key", srv.URL, "")
	if err := n.Send(context.Background(), Message{Kind: KindOTP, Destination: "1", Body: "000000"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := NewSMSNotifier("", srv.URL, "").Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
