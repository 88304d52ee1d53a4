package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hualin/rednote-studio/internal/acquire"
	"github.com/hualin/rednote-studio/internal/content"
	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/logger"
	"github.com/hualin/rednote-studio/internal/prompts"
	"github.com/hualin/rednote-studio/internal/store"
)

// GenerateService orchestrates a generation run: captions from the LLM,
// image acquisition per card, and the session working set. It also receives
// asynchronous generation outcomes as the coordinator's sink.
type GenerateService struct {
	captions *CaptionClient
	coord    *acquire.Coordinator
	results  *store.Results
	images   *store.Images
}

// GenerateRequest describes one generation run.
type GenerateRequest struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Style      string `json:"style"`
	ImageMode  string `json:"imageMode"`
	ImageStyle string `json:"imageStyle"`
}

// SwapImageRequest replaces one card's image.
type SwapImageRequest struct {
	Mode       string `json:"mode"`
	ImageStyle string `json:"imageStyle"`
}

// SwapImageResponse reports the immediate outcome of an image swap: either
// the new URL already on the card, or the state of the generation task that
// will deliver it.
type SwapImageResponse struct {
	Result *domain.GenerationResult `json:"result,omitempty"`
	Task   *domain.TaskState        `json:"task,omitempty"`
}

// NewGenerateService creates the generation orchestrator. Attach the
// coordinator afterwards: it needs this service as its sink, so the two are
// built in sequence.
func NewGenerateService(captions *CaptionClient, results *store.Results, images *store.Images) *GenerateService {
	return &GenerateService{
		captions: captions,
		results:  results,
		images:   images,
	}
}

// UseCoordinator attaches the image acquisition coordinator. Must be called
// before the first Generate.
func (s *GenerateService) UseCoordinator(coord *acquire.Coordinator) {
	s.coord = coord
}

const (
	defaultCaptionCount = 3
	maxCaptionCount     = 9
)

// Generate runs one batch: asks the LLM for count captions, replaces the
// working set and kicks off image acquisition per card. In-flight tasks from
// the previous batch are cancelled first so a late result can never land on
// a card of the new batch.
func (s *GenerateService) Generate(ctx context.Context, req GenerateRequest) ([]domain.GenerationResult, error) {
	if req.Topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	count := req.Count
	if count <= 0 {
		count = defaultCaptionCount
	}
	if count > maxCaptionCount {
		count = maxCaptionCount
	}

	batchID := uuid.New().String()
	ctx = logger.SetBatchID(ctx, batchID)

	raw, err := s.captions.Complete(ctx,
		prompts.CaptionSystemPrompt,
		prompts.CaptionUserPrompt(req.Topic, count, req.Style))
	if err != nil {
		return nil, err
	}

	captions := SplitCaptions(raw)
	if len(captions) == 0 {
		return nil, fmt.Errorf("LLM returned no usable captions")
	}
	if len(captions) > count {
		captions = captions[:count]
	}

	// The previous batch is gone: its tasks, its handles, its cards.
	s.coord.CancelAll()
	s.images.Clear()

	results := make([]domain.GenerationResult, 0, len(captions))
	for _, caption := range captions {
		results = append(results, domain.GenerationResult{
			ID:      uuid.New().String(),
			Content: caption,
		})
	}
	s.results.ReplaceBatch(results)

	mode := acquire.ParseMode(req.ImageMode)
	if mode != acquire.ModeNone {
		for i := range results {
			s.acquireInto(ctx, &results[i], mode, req.ImageStyle)
		}
	}

	logger.With(logger.Fields{logger.FieldCount: len(results)}).
		Info(ctx, "Generation batch ready: topic=%s, mode=%s", req.Topic, mode)
	return s.results.List(), nil
}

// acquireInto starts image acquisition for one fresh card. Failures degrade
// the card to text-only rather than failing the batch.
func (s *GenerateService) acquireInto(ctx context.Context, res *domain.GenerationResult, mode acquire.Mode, imageStyle string) {
	prompt := ""
	if mode == acquire.ModeWebSearch {
		prompt = firstLine(res.Content)
	}
	if mode == acquire.ModeAIGenerate {
		prompt = prompts.ImagePrompt(firstLine(res.Content), imageStyle)
	}

	acq, err := s.coord.Acquire(ctx, res.ID, mode, prompt)
	if err != nil {
		logger.CtxWarn(ctx, "Image acquisition failed, card stays text-only: card_id=%s, err=%v", res.ID, err)
		return
	}
	if acq.URL != "" {
		if err := s.results.SetImageURL(res.ID, acq.URL); err != nil {
			logger.CtxWarn(ctx, "Failed to attach image URL: card_id=%s, err=%v", res.ID, err)
		}
	}
}

// UpdateContent replaces one card's caption text.
func (s *GenerateService) UpdateContent(ctx context.Context, id, content string) (domain.GenerationResult, error) {
	if content == "" {
		return domain.GenerationResult{}, fmt.Errorf("content must not be empty")
	}
	if err := s.results.UpdateContent(id, content); err != nil {
		return domain.GenerationResult{}, err
	}
	res, _ := s.results.Get(id)
	return res, nil
}

// SwapImage replaces one card's image according to the requested mode. Stock
// modes apply immediately; ai-generate returns the task state and delivers
// through the sink when done. Mode none clears the image.
func (s *GenerateService) SwapImage(ctx context.Context, id string, req SwapImageRequest) (SwapImageResponse, error) {
	res, ok := s.results.Get(id)
	if !ok {
		return SwapImageResponse{}, fmt.Errorf("unknown result %s", id)
	}
	ctx = logger.SetCardID(ctx, id)

	mode := acquire.ParseMode(req.Mode)
	prompt := firstLine(res.Content)
	if mode == acquire.ModeAIGenerate {
		prompt = prompts.ImagePrompt(prompt, req.ImageStyle)
	}

	acq, err := s.coord.Acquire(ctx, id, mode, prompt)
	if err != nil {
		return SwapImageResponse{}, err
	}

	if acq.Task != nil {
		return SwapImageResponse{Task: acq.Task}, nil
	}
	if err := s.results.SetImageURL(id, acq.URL); err != nil {
		return SwapImageResponse{}, err
	}
	res, _ = s.results.Get(id)
	return SwapImageResponse{Result: &res}, nil
}

// TaskState returns the card's in-flight generation task, if any.
func (s *GenerateService) TaskState(id string) (domain.TaskState, bool) {
	return s.coord.TaskFor(id)
}

// ============================================
// acquire.Sink implementation
// ============================================

// ImageReady stores a finished generation payload behind a memory handle and
// points the card at it. The coordinator already filtered stale tasks.
func (s *GenerateService) ImageReady(cardID string, data []byte) {
	handle := s.images.Put(data)
	if err := s.results.SetImageURL(cardID, store.HandleURL(handle)); err != nil {
		// Card vanished between completion and delivery (batch replaced).
		s.images.Delete(handle)
		logger.Warn("Dropping generated image for missing card: card_id=%s", cardID)
		return
	}
	logger.With(logger.Fields{logger.FieldSize: len(data)}).
		Info(context.Background(), "Generated image attached: card_id=%s", cardID)
}

// ImageFailed leaves the card text-only; the failure is surfaced through the
// task state the frontend polls.
func (s *GenerateService) ImageFailed(cardID string, err error) {
	logger.Warn("Image generation failed, card stays text-only: card_id=%s, err=%v", cardID, err)
}

// firstLine returns the caption title, the short text image prompts and
// search seeds are built from.
func firstLine(raw string) string {
	return content.Parse(raw).Title
}
