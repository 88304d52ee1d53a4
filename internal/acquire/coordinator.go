package acquire

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/logger"
)

// Mode selects how a card gets its image.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeRandom     Mode = "random"
	ModeWebSearch  Mode = "web-search"
	ModeAIGenerate Mode = "ai-generate"
)

// ParseMode normalizes a wire mode string, defaulting to ModeNone.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeRandom, ModeWebSearch, ModeAIGenerate:
		return Mode(s)
	default:
		return ModeNone
	}
}

// Sink receives the outcome of asynchronous acquisitions. Implementations
// own the card state; the coordinator guarantees a cancelled or superseded
// task never reaches the sink.
type Sink interface {
	ImageReady(cardID string, data []byte)
	ImageFailed(cardID string, err error)
}

// Acquisition is the immediate outcome of an Acquire call. Exactly one of
// URL and Task is set for the async-capable modes; both are zero for
// ModeNone.
type Acquisition struct {
	URL  string
	Task *domain.TaskState
}

// Coordinator runs image acquisition for cards. It enforces the single-flight
// rule: at most one generation task per card, and starting a new acquisition
// for a card cancels the previous one before anything else happens.
type Coordinator struct {
	client *Client
	stock  *Stock
	sink   Sink

	pollInterval  time.Duration
	retryInterval time.Duration

	mu     sync.Mutex
	active map[string]*Task
}

// NewCoordinator creates a coordinator. client may be nil when AI generation
// is not configured; ModeAIGenerate then returns a configuration error.
func NewCoordinator(client *Client, stock *Stock, sink Sink) *Coordinator {
	if stock == nil {
		stock = NewStock("")
	}
	return &Coordinator{
		client:        client,
		stock:         stock,
		sink:          sink,
		pollInterval:  defaultPollInterval,
		retryInterval: defaultRetryInterval,
		active:        make(map[string]*Task),
	}
}

// SetIntervals overrides the poll cadence. Zero values keep the defaults.
func (c *Coordinator) SetIntervals(poll, retry time.Duration) {
	if poll > 0 {
		c.pollInterval = poll
	}
	if retry > 0 {
		c.retryInterval = retry
	}
}

// Acquire resolves an image for the card according to mode. Stock modes
// return a URL synchronously; ModeAIGenerate submits a generation task and
// returns its initial state, with completion delivered through the sink.
// Any acquisition already running for the card is cancelled first.
func (c *Coordinator) Acquire(ctx context.Context, cardID string, mode Mode, prompt string) (Acquisition, error) {
	c.CancelCard(cardID)

	switch mode {
	case ModeNone:
		return Acquisition{}, nil
	case ModeRandom:
		return Acquisition{URL: c.stock.RandomURL()}, nil
	case ModeWebSearch:
		return Acquisition{URL: c.stock.SearchURL(prompt)}, nil
	case ModeAIGenerate:
		return c.startGeneration(ctx, cardID, prompt)
	default:
		return Acquisition{}, fmt.Errorf("unsupported acquisition mode %q", mode)
	}
}

func (c *Coordinator) startGeneration(ctx context.Context, cardID, prompt string) (Acquisition, error) {
	if c.client == nil {
		return Acquisition{}, fmt.Errorf("AI image generation is not configured")
	}
	if prompt == "" {
		return Acquisition{}, fmt.Errorf("generation prompt is empty")
	}

	taskID, err := c.client.Submit(ctx, prompt, rand.IntN(1_000_000_000))
	if err != nil {
		return Acquisition{}, err
	}

	// The poll loop outlives the submitting request, so it runs on its own
	// context; Cancel is the only way to stop it early.
	task := newTask(context.Background(), c.client, cardID, taskID,
		c.pollInterval, c.retryInterval, c.onComplete, c.onFail)

	c.mu.Lock()
	c.active[cardID] = task
	c.mu.Unlock()

	task.Start()
	logger.CtxInfo(ctx, "Image generation task started: card_id=%s, task_id=%s", cardID, taskID)

	state := task.Snapshot()
	return Acquisition{Task: &state}, nil
}

// onComplete forwards a finished payload to the sink unless the task was
// superseded while its last response was in flight.
func (c *Coordinator) onComplete(t *Task, data []byte) {
	if !c.clearIfCurrent(t) {
		logger.Info("Discarding stale generation result: card_id=%s, task_id=%s", t.CardID, t.TaskID)
		return
	}
	c.sink.ImageReady(t.CardID, data)
}

func (c *Coordinator) onFail(t *Task, err error) {
	if !c.clearIfCurrent(t) {
		return
	}
	logger.Warn("Image generation failed: card_id=%s, task_id=%s, err=%v", t.CardID, t.TaskID, err)
	c.sink.ImageFailed(t.CardID, err)
}

// clearIfCurrent removes the task from the active set and reports whether it
// was still the card's current acquisition.
func (c *Coordinator) clearIfCurrent(t *Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[t.CardID] != t {
		return false
	}
	delete(c.active, t.CardID)
	return true
}

// TaskFor returns the state of the card's in-flight task, if any.
func (c *Coordinator) TaskFor(cardID string) (domain.TaskState, bool) {
	c.mu.Lock()
	task := c.active[cardID]
	c.mu.Unlock()
	if task == nil {
		return domain.TaskState{}, false
	}
	return task.Snapshot(), true
}

// CancelCard stops the card's in-flight acquisition, if any. The cancelled
// task's late responses are discarded and never touch the card.
func (c *Coordinator) CancelCard(cardID string) {
	c.mu.Lock()
	task := c.active[cardID]
	delete(c.active, cardID)
	c.mu.Unlock()
	if task != nil {
		task.Cancel()
	}
}

// CancelAll stops every in-flight acquisition. Called when a new generation
// batch replaces the working set.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	tasks := make([]*Task, 0, len(c.active))
	for _, t := range c.active {
		tasks = append(tasks, t)
	}
	c.active = make(map[string]*Task)
	c.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
}
