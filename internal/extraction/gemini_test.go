package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"expensy/internal/core"
)

type fakeGemini struct {
	calls  atomic.Int32
	status int
	text   string
	// last request body, path and API key header
	body atomic.Value
	path atomic.Value
	key  atomic.Value
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	b, _ := io.ReadAll(r.Body)
	f.body.Store(string(b))
	f.path.Store(r.URL.Path)
	f.key.Store(r.Header.Get("x-goog-api-key"))
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
		return
	}
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": f.text}},
			}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestGemini(t *testing.T, fake *fakeGemini) *Gemini {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	g, err := NewGemini(context.Background(), Config{
		APIKey:   "test-key",
		Model:    "gemini-test",
		Endpoint: srv.URL + "/",
		Timeout:  5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

var receipt = core.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}}

func TestGeminiSuggest(t *testing.T) {
	fake := &fakeGemini{text: `{"amount": 45.90, "category": "Alimentação"}`}
	g := newTestGemini(t, fake)

	x, ok := g.Suggest(context.Background(), receipt)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if x.Amount == nil || x.Amount.Cents != 4590 || x.Category == nil || *x.Category != core.CategoryFood || x.Date != nil {
		t.Fatalf("got %+v", x)
	}

	body, _ := fake.body.Load().(string)
	if !strings.Contains(body, receipt.Base64()) || strings.Contains(body, "data:image") {
		t.Fatalf("request should carry bare base64 image: %s", body)
	}
	if !strings.Contains(body, `"responseMimeType":"application/json"`) {
		t.Fatalf("request missing JSON response type: %s", body)
	}
	if !strings.Contains(body, `"responseSchema"`) {
		t.Fatalf("request missing response schema: %s", body)
	}
	if path, _ := fake.path.Load().(string); !strings.HasSuffix(path, "models/gemini-test:generateContent") {
		t.Fatalf("path = %q", path)
	}
	if key, _ := fake.key.Load().(string); key != "test-key" {
		t.Fatalf("api key header = %q", key)
	}
}

func TestGeminiCachesByImage(t *testing.T) {
	fake := &fakeGemini{text: `{"amount": 10, "category": "Outros"}`}
	g := newTestGemini(t, fake)

	for i := 0; i < 3; i++ {
		if _, ok := g.Suggest(context.Background(), receipt); !ok {
			t.Fatalf("call %d: expected a suggestion", i)
		}
	}
	if n := fake.calls.Load(); n != 1 {
		t.Fatalf("service called %d times, want 1", n)
	}
	if g.Cache().Size() != 1 {
		t.Fatalf("cache size = %d", g.Cache().Size())
	}
}

func TestGeminiFailuresCollapseToNoResult(t *testing.T) {
	cases := []struct {
		name string
		fake *fakeGemini
	}{
		{"http error", &fakeGemini{status: http.StatusBadRequest}},
		{"not json", &fakeGemini{text: "não consegui ler"}},
		{"nothing usable", &fakeGemini{text: `{"amount": 0, "category": "Pedágio"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGemini(t, tc.fake)
			if x, ok := g.Suggest(context.Background(), receipt); ok {
				t.Fatalf("expected no result, got %+v", x)
			}
			if g.Cache().Size() != 0 {
				t.Fatal("failures must not be cached")
			}
		})
	}
}

func TestDisabledWithoutKey(t *testing.T) {
	svc, err := New(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.(Disabled); !ok {
		t.Fatalf("got %T, want Disabled", svc)
	}
	if _, ok := svc.Suggest(context.Background(), receipt); ok {
		t.Fatal("disabled service must not suggest")
	}
}
