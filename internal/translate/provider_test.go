package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPProviderTranslateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := singleBody{}
		resp.Choices = []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{
			{Message: struct {
				Content string `json:"content"`
			}{Content: `{"results":[{"original":"a.wav","translated":"a-zh.wav"}]}`}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewHTTPProvider(ProviderConfig{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	items, _, err := p.Translate(context.Background(), []string{"a.wav"}, "en", "zh", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Translated != "a-zh.wav" {
		t.Fatalf("items = %+v", items)
	}
}

func TestHTTPProviderRetriesOn429ThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		resp := singleBody{}
		resp.Choices = []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{
			{Message: struct {
				Content string `json:"content"`
			}{Content: `{"results":[{"original":"a.wav","translated":"a-zh.wav"}]}`}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewHTTPProvider(ProviderConfig{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	start := time.Now()
	items, _, err := p.Translate(context.Background(), []string{"a.wav"}, "en", "zh", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*time.Second {
		t.Fatalf("expected backoff of at least 2s before retry, elapsed=%v", elapsed)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if items[0].Translated != "a-zh.wav" {
		t.Fatalf("items = %+v", items)
	}
}

func TestHTTPProviderFallsBackToIdentityAfterExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(ProviderConfig{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	items, usage, err := p.Translate(context.Background(), []string{"a.wav", "b.wav"}, "en", "zh", nil)
	if err != nil {
		t.Fatalf("Translate should swallow exhausted-retry errors via identity fallback, got %v", err)
	}
	if usage != (Usage{}) {
		t.Fatalf("expected zero usage on fallback, got %+v", usage)
	}
	if len(items) != 2 || items[0].Translated != "a.wav" || items[1].Translated != "b.wav" {
		t.Fatalf("expected identity fallback, got %+v", items)
	}
}

func TestHTTPProviderTerminalErrorDoesNotRetry(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewHTTPProvider(ProviderConfig{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	items, _, err := p.Translate(context.Background(), []string{"a.wav"}, "en", "zh", nil)
	if err != nil {
		t.Fatalf("Translate should swallow to identity fallback, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt for a terminal 400, got %d", attempts)
	}
	if items[0].Translated != "a.wav" {
		t.Fatalf("expected identity fallback, got %+v", items)
	}
}

func TestConsumeStreamAccumulatesDeltasAndStopsAtDone(t *testing.T) {
	body := "" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"results\\\":[\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"original\\\":\\\"a\\\",\\\"translated\\\":\\\"b\\\"}\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"]}\"}}]}\n\n" +
		"data: [DONE]\n\n"

	content, _ := consumeStream(stringReaderForTest(body), 1, nil)
	want := `{"results":[{"original":"a","translated":"b"}]}`
	if content != want {
		t.Fatalf("consumeStream = %q, want %q", content, want)
	}
}

func stringReaderForTest(s string) *fakeReader {
	return &fakeReader{data: []byte(s)}
}

type fakeReader struct {
	data []byte
	pos  int
}

func (f *fakeReader) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}
