package asset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestAdapter(handler http.HandlerFunc) (*StoreAdapter, *httptest.Server) {
	server := httptest.NewServer(handler)
	adapter := NewStoreAdapter(Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	return adapter, server
}

func TestUpload(t *testing.T) {
	var gotAuth, gotFolder string
	adapter, server := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("bad multipart form: %v", err)
		}
		gotFolder = r.FormValue("folder")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://cdn.example.com/dishes/abc.jpg","public_id":"dishes/abc"}`))
	})
	defer server.Close()

	ref, err := adapter.Upload(context.Background(), []byte("image-bytes"), "dishes")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if ref.URL != "https://cdn.example.com/dishes/abc.jpg" {
		t.Errorf("unexpected url: %s", ref.URL)
	}
	if ref.ID != "dishes/abc" {
		t.Errorf("unexpected id: %s", ref.ID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotFolder != "dishes" {
		t.Errorf("unexpected folder field: %s", gotFolder)
	}
}

func TestUploadServerError(t *testing.T) {
	adapter, server := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInternalServerError)
	})
	defer server.Close()

	if _, err := adapter.Upload(context.Background(), []byte("x"), ""); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestDelete(t *testing.T) {
	var gotPath string
	adapter, server := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method: %s", r.Method)
		}
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	if err := adapter.Delete(context.Background(), "dishes/abc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gotPath != "/assets/dishes%2Fabc" {
		t.Errorf("unexpected path: %s", gotPath)
	}
}

func TestDeleteMissingAssetIsSuccess(t *testing.T) {
	adapter, server := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	defer server.Close()

	if err := adapter.Delete(context.Background(), "gone"); err != nil {
		t.Errorf("404 must count as success, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var requests int
	adapter, server := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	defer server.Close()

	for i := 0; i < 10; i++ {
		_ = adapter.Delete(context.Background(), "x")
	}
	if requests >= 10 {
		t.Errorf("breaker never opened, server saw %d requests", requests)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var requests int
	adapter, server := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "bad request", http.StatusBadRequest)
	})
	defer server.Close()

	for i := 0; i < 10; i++ {
		if _, err := adapter.Upload(context.Background(), []byte("x"), ""); err == nil {
			t.Fatal("expected error on 400")
		}
	}
	if requests != 10 {
		t.Errorf("4xx responses must not open the breaker, server saw %d requests", requests)
	}
}
