package prediction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGateway_Predict_PassThrough(t *testing.T) {
	var gotBody string
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictedSavings": 1200, "recommendations": ["ok"]}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	res := g.Predict(context.Background(), []byte(`{"income":5000}`))

	if res.Degraded {
		t.Fatal("expected a real prediction")
	}
	if gotBody != `{"income":5000}` {
		t.Errorf("predictor received %q", gotBody)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	var out map[string]any
	if err := json.Unmarshal(res.Body, &out); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if out["predictedSavings"] != float64(1200) {
		t.Errorf("unexpected body %s", res.Body)
	}
}

func TestGateway_Predict_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>nope</html>"))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := NewGateway(srv.URL, WithTimeout(50*time.Millisecond))
			res := g.Predict(context.Background(), []byte(`{}`))
			assertFallback(t, res)
		})
	}
}

func TestGateway_Predict_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewGateway(url).Predict(context.Background(), []byte(`{}`))
	assertFallback(t, res)
}

func TestGateway_Predict_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	NewGateway(srv.URL).Predict(context.Background(), []byte(`{}`))
	if calls != 1 {
		t.Errorf("predictor called %d times, want 1", calls)
	}
}

func TestNewGateway_DefaultURL(t *testing.T) {
	g := NewGateway("")
	if g.url != DefaultURL {
		t.Errorf("url = %q, want %q", g.url, DefaultURL)
	}
	if g.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", g.httpClient.Timeout, DefaultTimeout)
	}
}

func assertFallback(t *testing.T, res Result) {
	t.Helper()
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	var fb Fallback
	if err := json.Unmarshal(res.Body, &fb); err != nil {
		t.Fatalf("fallback is not JSON: %v", err)
	}
	if fb.Error != "Failed to get prediction" || fb.Message != "Failed to get prediction" {
		t.Errorf("unexpected fallback %+v", fb)
	}
	if len(fb.Recommendations) != 3 || fb.Recommendations[1] != "Consider maintaining a savings rate of 20% of your income." {
		t.Errorf("unexpected recommendations %v", fb.Recommendations)
	}
}
