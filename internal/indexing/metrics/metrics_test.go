package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPush(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	CyclesTotal.WithLabelValues("success").Inc()

	if err := Push(context.Background(), server.URL, "bot"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if !strings.HasSuffix(gotPath, "/job/bot") {
		t.Errorf("unexpected push path %s", gotPath)
	}
}

func TestPush_Disabled(t *testing.T) {
	if err := Push(context.Background(), "", ""); err != nil {
		t.Fatalf("empty url must be a no-op, got %v", err)
	}
}
