package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hualin/rednote-studio/internal/acquire"
	"github.com/hualin/rednote-studio/internal/store"
)

func llmStub(t *testing.T, completion string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": completion}},
			},
		})
	}))
}

func testGenerateService(t *testing.T, llmURL string) (*GenerateService, *store.Results, *store.Images) {
	t.Helper()
	captions, err := NewCaptionClient(&CaptionConfig{APIKey: "k", BaseURL: llmURL})
	if err != nil {
		t.Fatalf("NewCaptionClient: %v", err)
	}
	results := store.NewResults()
	images := store.NewImages()
	svc := NewGenerateService(captions, results, images)
	svc.UseCoordinator(acquire.NewCoordinator(nil, acquire.NewStock("https://stock.test"), svc))
	return svc, results, images
}

func TestGenerateReplacesWorkingSet(t *testing.T) {
	srv := llmStub(t, "秋日穿搭 🍂\n厚外套配围巾\n#穿搭 #秋天 #OOTD\n***\n周末去哪\n city walk 路线分享\n#周末 #散步 #生活")
	defer srv.Close()

	svc, results, _ := testGenerateService(t, srv.URL)

	batch, err := svc.Generate(context.Background(), GenerateRequest{Topic: "秋天", Count: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].ID == "" || batch[0].ID == batch[1].ID {
		t.Error("cards must carry distinct non-empty ids")
	}
	if !strings.HasPrefix(batch[0].Content, "秋日穿搭") {
		t.Errorf("first caption = %q", batch[0].Content)
	}
	if batch[0].ImageURL != "" {
		t.Errorf("default image mode must leave cards text-only, got %q", batch[0].ImageURL)
	}

	// A second run replaces everything.
	prevID := batch[0].ID
	if _, err := svc.Generate(context.Background(), GenerateRequest{Topic: "冬天", Count: 1}); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if _, ok := results.Get(prevID); ok {
		t.Error("card from the previous batch survived the replace")
	}
}

func TestGenerateAttachesStockImages(t *testing.T) {
	srv := llmStub(t, "A\nbody\n#a #b #c\n***\nB\nbody\n#a #b #c")
	defer srv.Close()

	svc, _, _ := testGenerateService(t, srv.URL)
	batch, err := svc.Generate(context.Background(), GenerateRequest{Topic: "t", Count: 2, ImageMode: "random"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, res := range batch {
		if !strings.HasPrefix(res.ImageURL, "https://stock.test/seed/") {
			t.Errorf("card %s image = %q, want stock URL", res.ID, res.ImageURL)
		}
	}
}

func TestGenerateCapsCount(t *testing.T) {
	srv := llmStub(t, strings.Repeat("cap\nbody\n***\n", 12))
	defer srv.Close()

	svc, _, _ := testGenerateService(t, srv.URL)
	batch, err := svc.Generate(context.Background(), GenerateRequest{Topic: "t", Count: 99})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(batch) > maxCaptionCount {
		t.Errorf("batch size = %d, want at most %d", len(batch), maxCaptionCount)
	}
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	svc, _, _ := testGenerateService(t, "http://unused.invalid")
	if _, err := svc.Generate(context.Background(), GenerateRequest{}); err == nil {
		t.Fatal("empty topic must fail before any LLM call")
	}
}

func TestSwapImageModes(t *testing.T) {
	srv := llmStub(t, "Title\nbody\n#x #y #z")
	defer srv.Close()

	svc, results, _ := testGenerateService(t, srv.URL)
	batch, err := svc.Generate(context.Background(), GenerateRequest{Topic: "t", Count: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	id := batch[0].ID

	resp, err := svc.SwapImage(context.Background(), id, SwapImageRequest{Mode: "random"})
	if err != nil {
		t.Fatalf("SwapImage(random): %v", err)
	}
	if resp.Result == nil || resp.Result.ImageURL == "" {
		t.Fatalf("random swap response = %+v", resp)
	}

	// Mode none clears the image again.
	resp, err = svc.SwapImage(context.Background(), id, SwapImageRequest{Mode: "none"})
	if err != nil {
		t.Fatalf("SwapImage(none): %v", err)
	}
	if resp.Result == nil || resp.Result.ImageURL != "" {
		t.Fatalf("none swap response = %+v", resp)
	}

	if _, err := svc.SwapImage(context.Background(), "missing", SwapImageRequest{Mode: "random"}); err == nil {
		t.Error("swap on unknown card must fail")
	}
	if _, ok := results.Get(id); !ok {
		t.Error("card vanished during swaps")
	}
}

func TestImageReadyAttachesHandle(t *testing.T) {
	srv := llmStub(t, "Title\nbody")
	defer srv.Close()

	svc, results, images := testGenerateService(t, srv.URL)
	batch, err := svc.Generate(context.Background(), GenerateRequest{Topic: "t", Count: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	id := batch[0].ID

	svc.ImageReady(id, []byte{1, 2, 3})

	res, _ := results.Get(id)
	if !strings.HasPrefix(res.ImageURL, "memory://") {
		t.Fatalf("image URL = %q, want memory handle", res.ImageURL)
	}
	data, ok := images.ResolveHandle(strings.TrimPrefix(res.ImageURL, "memory://"))
	if !ok || len(data) != 3 {
		t.Errorf("handle payload = (%v, %v)", data, ok)
	}

	// Delivery for a card that no longer exists must not leak a handle.
	svc.ImageReady("gone", []byte{9})
	res2, _ := results.Get(id)
	if res2.ImageURL != res.ImageURL {
		t.Error("stale delivery altered an unrelated card")
	}
}
