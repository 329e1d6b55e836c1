package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTargetURL(t *testing.T) {
	tests := []struct {
		override, addr string
		ready          bool
		want           string
	}{
		{"", "", false, "http://localhost:4343/healthz"},
		{"", ":8080", true, "http://localhost:8080/readyz"},
		{"", "127.0.0.1:9000", false, "http://127.0.0.1:9000/healthz"},
		{"http://bot:1/healthz", ":8080", true, "http://bot:1/healthz"},
	}
	for _, tt := range tests {
		if got := targetURL(tt.override, tt.addr, tt.ready); got != tt.want {
			t.Errorf("targetURL(%q,%q,%v) = %q, want %q", tt.override, tt.addr, tt.ready, got, tt.want)
		}
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if err := probe(context.Background(), srv.URL+"/healthz", srv.Client()); err != nil {
		t.Errorf("probe(healthz) = %v", err)
	}
	if err := probe(context.Background(), srv.URL+"/readyz", srv.Client()); err == nil {
		t.Error("probe(readyz) should fail on 503")
	}
}
