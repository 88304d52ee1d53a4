package acquire

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordSink struct {
	mu     sync.Mutex
	ready  map[string][]byte
	failed map[string]error
	events chan string
}

func newRecordSink() *recordSink {
	return &recordSink{
		ready:  make(map[string][]byte),
		failed: make(map[string]error),
		events: make(chan string, 16),
	}
}

func (s *recordSink) ImageReady(cardID string, data []byte) {
	s.mu.Lock()
	s.ready[cardID] = data
	s.mu.Unlock()
	s.events <- "ready:" + cardID
}

func (s *recordSink) ImageFailed(cardID string, err error) {
	s.mu.Lock()
	s.failed[cardID] = err
	s.mu.Unlock()
	s.events <- "failed:" + cardID
}

func (s *recordSink) payload(cardID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready[cardID]
}

func waitEvent(t *testing.T, s *recordSink, want string) {
	t.Helper()
	select {
	case got := <-s.events:
		if got != want {
			t.Fatalf("sink event = %q, want %q", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for sink event %q", want)
	}
}

// genServer fakes the asynchronous generation API: each submitted task
// reports PROCESSING for pollsUntilDone polls, then COMPLETED, and serves
// the payload registered for its prompt.
type genServer struct {
	mu             sync.Mutex
	nextID         int
	tasks          map[string]*genTask
	pollsUntilDone int
	failWith       string
	flakyStatus    int32
}

type genTask struct {
	prompt string
	polls  int
}

func newGenServer(pollsUntilDone int) *genServer {
	return &genServer{tasks: make(map[string]*genTask), pollsUntilDone: pollsUntilDone}
}

func (g *genServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/generate-async":
			var req struct {
				Prompt string `json:"prompt"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			g.mu.Lock()
			g.nextID++
			id := fmt.Sprintf("task-%d", g.nextID)
			g.tasks[id] = &genTask{prompt: req.Prompt}
			g.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]string{"task_id": id})

		case strings.HasPrefix(r.URL.Path, "/task/"):
			if atomic.AddInt32(&g.flakyStatus, -1) >= 0 {
				http.Error(w, "upstream hiccup", http.StatusBadGateway)
				return
			}
			id := strings.TrimPrefix(r.URL.Path, "/task/")
			g.mu.Lock()
			task := g.tasks[id]
			if task != nil {
				task.polls++
			}
			g.mu.Unlock()
			if task == nil {
				http.NotFound(w, r)
				return
			}
			if g.failWith != "" {
				json.NewEncoder(w).Encode(map[string]any{
					"status": "failed", "progress": 0, "total_steps": 20, "error": g.failWith,
				})
				return
			}
			if task.polls < g.pollsUntilDone {
				json.NewEncoder(w).Encode(map[string]any{
					"status": "processing", "progress": task.polls, "total_steps": g.pollsUntilDone,
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"status": "Completed", "progress": g.pollsUntilDone, "total_steps": g.pollsUntilDone,
			})

		case strings.HasPrefix(r.URL.Path, "/result/"):
			id := strings.TrimPrefix(r.URL.Path, "/result/")
			g.mu.Lock()
			task := g.tasks[id]
			g.mu.Unlock()
			if task == nil {
				http.NotFound(w, r)
				return
			}
			payload := base64.StdEncoding.EncodeToString([]byte("png-for-" + task.prompt))
			json.NewEncoder(w).Encode(map[string]string{"image_base64": payload})

		default:
			http.NotFound(w, r)
		}
	})
}

func (g *genServer) pollCount(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t := g.tasks[id]; t != nil {
		return t.polls
	}
	return 0
}

func testCoordinator(t *testing.T, srvURL string, sink Sink) *Coordinator {
	t.Helper()
	client, err := NewClient(&ClientConfig{BaseURL: srvURL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c := NewCoordinator(client, NewStock("https://stock.example"), sink)
	c.SetIntervals(5*time.Millisecond, 5*time.Millisecond)
	return c
}

func TestAcquireSynchronousModes(t *testing.T) {
	c := NewCoordinator(nil, NewStock("https://stock.example"), newRecordSink())

	acq, err := c.Acquire(context.Background(), "card-1", ModeNone, "")
	if err != nil || acq.URL != "" || acq.Task != nil {
		t.Fatalf("ModeNone = (%+v, %v), want empty acquisition", acq, err)
	}

	acq, err = c.Acquire(context.Background(), "card-1", ModeRandom, "")
	if err != nil {
		t.Fatalf("ModeRandom: %v", err)
	}
	if !strings.HasPrefix(acq.URL, "https://stock.example/seed/") {
		t.Errorf("random URL = %q, want stock seed URL", acq.URL)
	}

	acq, err = c.Acquire(context.Background(), "card-1", ModeWebSearch, "Autumn coffee walk")
	if err != nil {
		t.Fatalf("ModeWebSearch: %v", err)
	}
	if !strings.Contains(acq.URL, "autumn") {
		t.Errorf("search URL = %q, want query-derived seed", acq.URL)
	}

	if _, err := c.Acquire(context.Background(), "card-1", ModeAIGenerate, "prompt"); err == nil {
		t.Error("ModeAIGenerate without a client must fail")
	}
}

func TestGenerationDeliversPayload(t *testing.T) {
	gen := newGenServer(3)
	srv := httptest.NewServer(gen.handler())
	defer srv.Close()

	sink := newRecordSink()
	c := testCoordinator(t, srv.URL, sink)

	acq, err := c.Acquire(context.Background(), "card-1", ModeAIGenerate, "sunset over water")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if acq.Task == nil || acq.Task.TaskID == "" {
		t.Fatalf("acquisition carries no task state: %+v", acq)
	}

	waitEvent(t, sink, "ready:card-1")
	if got := string(sink.payload("card-1")); got != "png-for-sunset over water" {
		t.Errorf("payload = %q", got)
	}
	if _, ok := c.TaskFor("card-1"); ok {
		t.Error("completed task must leave the active set")
	}
}

func TestSupersededTaskNeverTouchesCard(t *testing.T) {
	gen := newGenServer(50)
	srv := httptest.NewServer(gen.handler())
	defer srv.Close()

	sink := newRecordSink()
	c := testCoordinator(t, srv.URL, sink)

	if _, err := c.Acquire(context.Background(), "card-1", ModeAIGenerate, "first prompt"); err != nil {
		t.Fatalf("Acquire first: %v", err)
	}
	// Let the first task poll a few times, then supersede it with a quick one.
	time.Sleep(30 * time.Millisecond)
	gen.mu.Lock()
	gen.pollsUntilDone = 1
	gen.mu.Unlock()

	if _, err := c.Acquire(context.Background(), "card-1", ModeAIGenerate, "second prompt"); err != nil {
		t.Fatalf("Acquire second: %v", err)
	}

	waitEvent(t, sink, "ready:card-1")
	if got := string(sink.payload("card-1")); got != "png-for-second prompt" {
		t.Errorf("card holds %q, want the superseding task's payload", got)
	}

	// The cancelled task must stop polling and deliver nothing further.
	polls := gen.pollCount("task-1")
	time.Sleep(50 * time.Millisecond)
	if after := gen.pollCount("task-1"); after > polls+1 {
		t.Errorf("cancelled task kept polling: %d -> %d", polls, after)
	}
	select {
	case ev := <-sink.events:
		t.Errorf("unexpected extra sink event %q", ev)
	default:
	}
}

func TestFailedTaskReportsAndStops(t *testing.T) {
	gen := newGenServer(10)
	gen.failWith = "NSFW content detected"
	srv := httptest.NewServer(gen.handler())
	defer srv.Close()

	sink := newRecordSink()
	c := testCoordinator(t, srv.URL, sink)

	if _, err := c.Acquire(context.Background(), "card-9", ModeAIGenerate, "prompt"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	waitEvent(t, sink, "failed:card-9")

	sink.mu.Lock()
	err := sink.failed["card-9"]
	sink.mu.Unlock()
	if err == nil || !strings.Contains(err.Error(), "NSFW content detected") {
		t.Errorf("failure error = %v, want wire error message", err)
	}

	polls := gen.pollCount("task-1")
	time.Sleep(30 * time.Millisecond)
	if after := gen.pollCount("task-1"); after != polls {
		t.Errorf("failed task kept polling: %d -> %d", polls, after)
	}
}

func TestTransientPollErrorRetries(t *testing.T) {
	gen := newGenServer(2)
	atomic.StoreInt32(&gen.flakyStatus, 2)
	srv := httptest.NewServer(gen.handler())
	defer srv.Close()

	sink := newRecordSink()
	c := testCoordinator(t, srv.URL, sink)

	if _, err := c.Acquire(context.Background(), "card-1", ModeAIGenerate, "retry me"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	waitEvent(t, sink, "ready:card-1")
	if got := string(sink.payload("card-1")); got != "png-for-retry me" {
		t.Errorf("payload = %q", got)
	}
}

func TestSearchSeed(t *testing.T) {
	testCases := []struct {
		query string
		want  string
	}{
		{"Autumn Coffee", "autumn-coffee"},
		{"  ", ""},
		{"!!!", ""},
	}
	for _, tc := range testCases {
		if got := searchSeed(tc.query); got != tc.want {
			t.Errorf("searchSeed(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
	if got := searchSeed("秋日穿搭"); got == "" {
		t.Error("CJK query must yield a non-empty seed")
	}
}
