package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSplitCaptions(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "three captions",
			raw:  "标题一\n正文一 #tag\n***\n标题二\n正文二\n***\n标题三\n正文三",
			want: []string{"标题一\n正文一 #tag", "标题二\n正文二", "标题三\n正文三"},
		},
		{
			name: "no separator yields one caption",
			raw:  "只有一篇\n内容",
			want: []string{"只有一篇\n内容"},
		},
		{
			name: "trailing separator and blanks dropped",
			raw:  "A\n***\n\n***\nB\n***\n",
			want: []string{"A", "B"},
		},
		{
			name: "separator must be alone on its line",
			raw:  "加粗 ***强调*** 不分割\n***\nB",
			want: []string{"加粗 ***强调*** 不分割", "B"},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitCaptions(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d captions %q, want %d", len(got), got, len(tc.want))
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("caption[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestCaptionClientRequiresAPIKey(t *testing.T) {
	if _, err := NewCaptionClient(&CaptionConfig{}); err == nil {
		t.Fatal("missing API key must fail at construction")
	}
	if _, err := NewCaptionClient(nil); err == nil {
		t.Fatal("nil config must fail at construction")
	}
}

func TestCaptionClientComplete(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "标题\n正文"}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewCaptionClient(&CaptionConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewCaptionClient: %v", err)
	}

	out, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "标题\n正文" {
		t.Errorf("completion = %q", out)
	}
	if gotReq.Temperature != 0.7 || gotReq.MaxTokens != 1500 {
		t.Errorf("request sampling = (%v, %d), want defaults (0.7, 1500)", gotReq.Temperature, gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestCaptionClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key", "type": "auth"},
		})
	}))
	defer srv.Close()

	c, err := NewCaptionClient(&CaptionConfig{APIKey: "bad", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewCaptionClient: %v", err)
	}
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error = %v, want upstream message surfaced", err)
	}
}
