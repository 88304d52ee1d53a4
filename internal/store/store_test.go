package store

import (
	"strings"
	"testing"
	"time"

	"github.com/hualin/rednote-studio/internal/domain"
)

func batch(ids ...string) []domain.GenerationResult {
	out := make([]domain.GenerationResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.GenerationResult{ID: id, Content: "caption " + id})
	}
	return out
}

func TestReplaceBatchPreservesOrder(t *testing.T) {
	r := NewResults()
	r.ReplaceBatch(batch("c", "a", "b"))

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"c", "a", "b"} {
		if list[i].ID != want {
			t.Errorf("list[%d].ID = %s, want %s", i, list[i].ID, want)
		}
	}

	r.ReplaceBatch(batch("x"))
	if r.Len() != 1 {
		t.Errorf("after replace Len = %d, want 1", r.Len())
	}
	if _, ok := r.Get("a"); ok {
		t.Error("old batch entry survived a replace")
	}
}

func TestUpdateContentAndImage(t *testing.T) {
	r := NewResults()
	r.ReplaceBatch(batch("a"))

	if err := r.UpdateContent("a", "edited"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if err := r.SetImageURL("a", "https://img.example/1.png"); err != nil {
		t.Fatalf("SetImageURL: %v", err)
	}

	got, _ := r.Get("a")
	if got.Content != "edited" || got.ImageURL != "https://img.example/1.png" {
		t.Errorf("result = %+v", got)
	}

	if err := r.UpdateContent("missing", "x"); err == nil {
		t.Error("UpdateContent on unknown id must fail")
	}
	if err := r.SetImageURL("missing", "x"); err == nil {
		t.Error("SetImageURL on unknown id must fail")
	}
}

func TestListReturnsSnapshots(t *testing.T) {
	r := NewResults()
	r.ReplaceBatch(batch("a"))

	list := r.List()
	list[0].Content = "mutated copy"

	got, _ := r.Get("a")
	if got.Content != "caption a" {
		t.Errorf("store content = %q, snapshot mutation leaked in", got.Content)
	}
}

func TestSubscribeSeesLatestSnapshot(t *testing.T) {
	r := NewResults()
	id, ch := r.Subscribe()
	defer r.Unsubscribe(id)

	// Two rapid mutations: a slow listener may miss the first snapshot but
	// must end up with the latest one.
	r.ReplaceBatch(batch("a"))
	if err := r.UpdateContent("a", "final"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-ch:
			if len(snap) == 1 && snap[0].Content == "final" {
				return
			}
		case <-deadline:
			t.Fatal("never observed the latest snapshot")
		}
	}
}

func TestImagesRoundTrip(t *testing.T) {
	s := NewImages()
	id := s.Put([]byte{0x89, 'P', 'N', 'G'})

	if !strings.HasPrefix(HandleURL(id), "memory://") {
		t.Errorf("HandleURL = %q", HandleURL(id))
	}
	data, ok := s.ResolveHandle(id)
	if !ok || len(data) != 4 {
		t.Fatalf("ResolveHandle = (%v, %v)", data, ok)
	}

	s.Delete(id)
	if _, ok := s.ResolveHandle(id); ok {
		t.Error("deleted handle still resolves")
	}

	id2 := s.Put([]byte{1})
	s.Clear()
	if _, ok := s.ResolveHandle(id2); ok {
		t.Error("cleared handle still resolves")
	}
}
