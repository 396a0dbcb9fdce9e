package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFederalRegisterSourceRequestsDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/documents.json" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("conditions[publication_date]") != "2025-06-03" {
			t.Fatalf("publication_date condition = %q", q.Get("conditions[publication_date]"))
		}
		if q.Get("per_page") != "100" || q.Get("order") != "newest" {
			t.Fatalf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":2,"results":[
			{"document_number":"2025-10001","title":"Air Quality Plans","type":"Rule","publication_date":"2025-06-03"},
			{"document_number":"2025-10002","title":"Sunshine Act Meetings","type":"Notice","publication_date":"2025-06-03"}
		]}`))
	}))
	defer server.Close()

	source, err := NewFederalRegisterSource(server.URL+"/api/v1/", 100, server.Client(), nil)
	if err != nil {
		t.Fatalf("NewFederalRegisterSource() error = %v", err)
	}
	docs, err := source.Fetch(context.Background(), time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(docs) != 2 || docs[1].Type != "Notice" {
		t.Fatalf("docs = %+v", docs)
	}
	if len(docs[0].Raw) == 0 {
		t.Fatal("expected raw upstream JSON to be kept")
	}
}

func TestFederalRegisterSourceSkipsFailedDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source, err := NewFederalRegisterSource(server.URL, 100, server.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFederalRegisterSource() error = %v", err)
	}
	docs, err := source.Fetch(context.Background(), time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestFederalRegisterSourceRejectsBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":`))
	}))
	defer server.Close()

	source, err := NewFederalRegisterSource(server.URL, 100, server.Client(), nil)
	if err != nil {
		t.Fatalf("NewFederalRegisterSource() error = %v", err)
	}
	if _, err := source.Fetch(context.Background(), time.Now()); err == nil {
		t.Fatal("expected decode error")
	}
}
